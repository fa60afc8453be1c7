package inspections

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/repo"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists inspections and per-cadet inspection results.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, inspection *models.Inspection) error
	Lock(ctx context.Context, id uuid.UUID) (*models.Inspection, error)
	FindActive(ctx context.Context, tenantID uuid.UUID) (*models.Inspection, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Dates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error)

	UpsertCadetInspection(ctx context.Context, record *models.CadetInspection) error
	FindCadetInspection(ctx context.Context, inspectionID, cadetID uuid.UUID) (*models.CadetInspection, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an inspections repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func take(query *gorm.DB) (*models.Inspection, error) {
	var inspection models.Inspection
	if err := query.Take(&inspection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inspection, nil
}

func (r *repository) Create(ctx context.Context, inspection *models.Inspection) error {
	return r.DB(ctx).Create(inspection).Error
}

func (r *repository) Lock(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	return take(r.ForUpdate(ctx).Where("id = ?", id))
}

func (r *repository) FindActive(ctx context.Context, tenantID uuid.UUID) (*models.Inspection, error) {
	return take(r.DB(ctx).Scopes(repo.TenantScope(tenantID)).Where("active = ?", true))
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Model(&models.Inspection{}).Where("id = ?", id).Update("active", false).Error
}

func (r *repository) DeactivateBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Inspection{}).
		Where("active = ? AND date < ?", true, cutoff).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *repository) Dates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Inspection
	if err := r.DB(ctx).Select("id", "date").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Date
	}
	return out, nil
}

// UpsertCadetInspection keeps one result per (inspection, cadet); a repeated
// submission replaces the earlier outcome.
func (r *repository) UpsertCadetInspection(ctx context.Context, record *models.CadetInspection) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inspection_id"}, {Name: "cadet_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"uniform_complete", "completeness_snapshot", "submitted_at"}),
	}).Create(record).Error
}

func (r *repository) FindCadetInspection(ctx context.Context, inspectionID, cadetID uuid.UUID) (*models.CadetInspection, error) {
	var record models.CadetInspection
	err := r.DB(ctx).Where("inspection_id = ? AND cadet_id = ?", inspectionID, cadetID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
