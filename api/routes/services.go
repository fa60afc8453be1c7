package routes

import (
	"fmt"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/cadets"
	"github.com/angelmondragon/quartermaster-backend/internal/catalog"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/internal/inspections"
	"github.com/angelmondragon/quartermaster-backend/internal/ordering"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
	"github.com/angelmondragon/quartermaster-backend/pkg/metrics"
)

// NewServices builds every domain service on one database client. m may be nil.
func NewServices(client *db.Client, m *metrics.DomainMetrics, logg *logger.Logger) (Services, error) {
	if client == nil {
		return Services{}, fmt.Errorf("db client required")
	}
	conn := client.DB()

	catalogSvc, err := catalog.NewService(client, ordering.NewManager(m))
	if err != nil {
		return Services{}, fmt.Errorf("catalog service: %w", err)
	}
	cadetSvc, err := cadets.NewService(cadets.NewRepository(conn), client)
	if err != nil {
		return Services{}, fmt.Errorf("cadets service: %w", err)
	}
	assignmentRepo := assignments.NewRepository(conn)
	assignmentSvc, err := assignments.NewService(assignmentRepo, client, m)
	if err != nil {
		return Services{}, fmt.Errorf("assignments service: %w", err)
	}
	deficiencyRepo := deficiencies.NewRepository(conn)
	deficiencySvc, err := deficiencies.NewService(deficiencyRepo, client)
	if err != nil {
		return Services{}, fmt.Errorf("deficiencies service: %w", err)
	}
	inspectionSvc, err := inspections.NewService(inspections.ServiceParams{
		Repo:         inspections.NewRepository(conn),
		Assignments:  assignmentRepo,
		Deficiencies: deficiencyRepo,
		Tx:           client,
		Metrics:      m,
		Logger:       logg,
	})
	if err != nil {
		return Services{}, fmt.Errorf("inspections service: %w", err)
	}

	return Services{
		Catalog:      catalogSvc,
		Cadets:       cadetSvc,
		Assignments:  assignmentSvc,
		Deficiencies: deficiencySvc,
		Inspections:  inspectionSvc,
	}, nil
}
