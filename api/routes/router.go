package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quartermaster-backend/api/controllers"
	"github.com/angelmondragon/quartermaster-backend/api/middleware"
	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/cadets"
	"github.com/angelmondragon/quartermaster-backend/internal/catalog"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/internal/inspections"
	"github.com/angelmondragon/quartermaster-backend/pkg/config"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
	"github.com/angelmondragon/quartermaster-backend/pkg/redis"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Catalog      catalog.Service
	Cadets       cadets.Service
	Assignments  assignments.Service
	Deficiencies deficiencies.Service
	Inspections  inspections.Service
}

// NewRouter wires the HTTP surface. redisClient may be nil, in which case
// idempotency keys are ignored and readiness skips redis. gatherer may be
// nil to omit /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	var (
		idempotencyStore redis.IdempotencyStore
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		redisPinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleUser, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/catalog/{kind}", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(svc.Catalog, logg))
			r.Post("/", controllers.CatalogCreate(svc.Catalog, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Post("/normalize", controllers.CatalogNormalize(svc.Catalog, logg))
			r.Post("/{id}/reorder", controllers.CatalogReorder(svc.Catalog, logg))
			r.Delete("/{id}", controllers.CatalogRemove(svc.Catalog, logg))
		})

		r.Route("/uniforms", func(r chi.Router) {
			r.Post("/issue", controllers.UniformIssue(svc.Assignments, logg))
			r.Post("/replace", controllers.UniformReplace(svc.Assignments, logg))
			r.Post("/{uniformId}/return", controllers.UniformReturn(svc.Assignments, logg))
			r.Get("/{uniformId}/history", controllers.UniformHistory(svc.Assignments, logg))
		})

		r.Route("/cadets", func(r chi.Router) {
			r.Get("/", controllers.CadetList(svc.Cadets, logg))
			r.Post("/", controllers.CadetCreate(svc.Cadets, logg))
			r.Route("/{cadetId}", func(r chi.Router) {
				r.Get("/", controllers.CadetGet(svc.Cadets, logg))
				r.Patch("/active", controllers.CadetSetActive(svc.Cadets, logg))
				r.Get("/uniforms", controllers.CadetInventory(svc.Assignments, logg))
				r.Post("/materials", controllers.CadetMaterialIssue(svc.Assignments, logg))
				r.Delete("/materials/{materialId}", controllers.CadetMaterialReturn(svc.Assignments, logg))
				r.Get("/deficiencies", controllers.CadetDeficiencies(svc.Inspections, logg))
			})
		})

		r.Route("/deficiency-types", func(r chi.Router) {
			r.Get("/", controllers.DeficiencyTypeList(svc.Deficiencies, logg))
			r.Post("/", controllers.DeficiencyTypeCreate(svc.Deficiencies, logg))
			r.Delete("/{id}", controllers.DeficiencyTypeDelete(svc.Deficiencies, logg))
		})

		r.Route("/inspections", func(r chi.Router) {
			r.Post("/", controllers.InspectionStart(svc.Inspections, logg))
			r.Get("/active", controllers.InspectionActive(svc.Inspections, logg))
			r.Post("/{inspectionId}/finish", controllers.InspectionFinish(svc.Inspections, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleInspector, logg))
				r.Get("/cadets/{cadetId}/begin", controllers.InspectionBegin(svc.Inspections, logg))
				r.Post("/{inspectionId}/cadets/{cadetId}", controllers.InspectionSubmit(svc.Inspections, logg))
			})
		})
	})

	return r
}
