package inspections

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
	"github.com/angelmondragon/quartermaster-backend/pkg/metrics"
	"github.com/angelmondragon/quartermaster-backend/pkg/validate"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives inspections. The wizard itself is client state; only Submit
// writes deficiency changes.
type Service interface {
	Start(ctx context.Context, actor auth.Actor, input StartInput) (*models.Inspection, error)
	Finish(ctx context.Context, actor auth.Actor, inspectionID uuid.UUID) (*models.Inspection, error)
	Active(ctx context.Context, actor auth.Actor) (*models.Inspection, error)
	OpenDeficiencies(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) ([]deficiencies.OpenDeficiency, error)
	Begin(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) (Wizard, error)
	Submit(ctx context.Context, actor auth.Actor, input SubmitInput) (*models.CadetInspection, error)
	// AutoClose deactivates inspections dated before cutoff. It runs without
	// an actor from the scheduler.
	AutoClose(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServiceParams groups the collaborators of NewService.
type ServiceParams struct {
	Repo         Repository
	Assignments  assignments.Repository
	Deficiencies deficiencies.Repository
	Tx           txRunner
	Metrics      *metrics.DomainMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         Repository
	assignments  assignments.Repository
	deficiencies deficiencies.Repository
	tx           txRunner
	metrics      *metrics.DomainMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService wires inspection dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("inspections repository required")
	}
	if p.Assignments == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if p.Deficiencies == nil {
		return nil, fmt.Errorf("deficiencies repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:         p.Repo,
		assignments:  p.Assignments,
		deficiencies: p.Deficiencies,
		tx:           p.Tx,
		metrics:      p.Metrics,
		logg:         p.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Start(ctx context.Context, actor auth.Actor, input StartInput) (*models.Inspection, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").
			WithDetails(map[string]string{"date": "is invalid"})
	}

	inspection := &models.Inspection{
		ID:       uuid.New(),
		TenantID: actor.TenantID,
		Name:     input.Name,
		Date:     date,
		Active:   true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.FindActive(ctx, actor.TenantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active inspection")
		}
		if active != nil {
			return activeConflict(active)
		}
		if err := repo.Create(ctx, inspection); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "another inspection is already active")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inspection")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

func activeConflict(active *models.Inspection) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "another inspection is already active").
		WithDetails(map[string]any{"active_inspection_id": active.ID, "name": active.Name})
}

func (s *service) Finish(ctx context.Context, actor auth.Actor, inspectionID uuid.UUID) (*models.Inspection, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}

	var inspection *models.Inspection
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		inspection, err = s.lockInspection(ctx, repo, actor, inspectionID)
		if err != nil {
			return err
		}
		if !inspection.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inspection is not active")
		}
		if err := repo.Deactivate(ctx, inspection.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finish inspection")
		}
		inspection.Active = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

// Active returns the tenant's active inspection, or nil when none is running.
func (s *service) Active(ctx context.Context, actor auth.Actor) (*models.Inspection, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	inspection, err := s.repo.FindActive(ctx, actor.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active inspection")
	}
	return inspection, nil
}

func (s *service) OpenDeficiencies(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) ([]deficiencies.OpenDeficiency, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	cadet, err := s.loadCadet(ctx, s.assignments, actor, cadetID)
	if err != nil {
		return nil, err
	}
	open, err := s.deficiencies.ListOpenForCadet(ctx, cadet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open deficiencies")
	}
	return open, nil
}

// Begin snapshots what the wizard shows on its first step. It reads only.
func (s *service) Begin(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) (Wizard, error) {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return Wizard{}, err
	}
	active, err := s.repo.FindActive(ctx, actor.TenantID)
	if err != nil {
		return Wizard{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active inspection")
	}
	if active == nil {
		return Wizard{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no active inspection")
	}
	cadet, err := s.loadCadet(ctx, s.assignments, actor, cadetID)
	if err != nil {
		return Wizard{}, err
	}
	open, err := s.deficiencies.ListOpenForCadet(ctx, cadet.ID)
	if err != nil {
		return Wizard{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open deficiencies")
	}
	counts, err := s.assignments.IssuedCounts(ctx, actor.TenantID, cadet.ID)
	if err != nil {
		return Wizard{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count issued uniforms")
	}
	return NewWizard(active.ID, cadet.ID, open, counts), nil
}

// Submit resolves, creates and records in one transaction. Field problems in
// resolutions and drafts are reported together under their request paths.
func (s *service) Submit(ctx context.Context, actor auth.Actor, input SubmitInput) (*models.CadetInspection, error) {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return nil, err
	}

	var result *models.CadetInspection
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.assignments.WithTx(tx)
		defRepo := s.deficiencies.WithTx(tx)

		inspection, err := s.lockInspection(ctx, repo, actor, input.InspectionID)
		if err != nil {
			return err
		}
		if !inspection.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inspection is not active")
		}
		cadet, err := s.loadCadet(ctx, ledger, actor, input.CadetID)
		if err != nil {
			return err
		}

		open, err := defRepo.ListOpenForCadet(ctx, cadet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open deficiencies")
		}
		var invalid error
		resolved, err := s.checkResolutions(ctx, repo, inspection, open, input.Resolutions)
		if err != nil {
			if !isFieldErrors(err) {
				return err
			}
			invalid = err
		}

		dc, err := s.draftContext(ctx, ledger, defRepo, actor, *cadet, input.NewDeficiencies)
		if err != nil {
			return err
		}
		created, err := validateDrafts(ctx, dc, input.NewDeficiencies)
		if err != nil {
			if !isFieldErrors(err) {
				return err
			}
			invalid = multierr.Append(invalid, err)
		}
		if invalid != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "inspection submission invalid").
				WithDetails(validationDetails(invalid))
		}

		now := s.now()
		if _, err := defRepo.Resolve(ctx, resolved, inspection.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve deficiencies")
		}
		for _, item := range created {
			def, cadetLink, uniformLink := item.record()
			def.InspectionCreatedID = &inspection.ID
			def.CreatedAt = now
			if err := defRepo.Create(ctx, &def, cadetLink, uniformLink); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deficiency")
			}
		}

		counts, err := ledger.IssuedCounts(ctx, actor.TenantID, cadet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count issued uniforms")
		}
		remaining := len(open) - len(resolved)
		for _, item := range created {
			if item.attachesTo(dc) {
				remaining++
			}
		}
		complete := uniformComplete(counts, remaining)
		if complete != input.UniformComplete && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"cadet_id":        cadet.ID.String(),
				"inspection_id":   inspection.ID.String(),
				"client_complete": input.UniformComplete,
				"derived":         complete,
			}), "uniform completeness differs from client preview")
		}

		snapshot, err := json.Marshal(Snapshot{
			Types:          counts,
			Resolved:       len(resolved),
			Created:        len(created),
			RemainingOpen:  remaining,
			EvaluatedAt:    now,
			ClientComplete: input.UniformComplete,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode completeness snapshot")
		}
		record := &models.CadetInspection{
			ID:                   uuid.New(),
			InspectionID:         inspection.ID,
			CadetID:              cadet.ID,
			UniformComplete:      complete,
			CompletenessSnapshot: datatypes.JSON(snapshot),
			SubmittedAt:          now,
		}
		if err := repo.UpsertCadetInspection(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cadet inspection")
		}
		result, err = repo.FindCadetInspection(ctx, inspection.ID, cadet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cadet inspection")
		}
		if result == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "cadet inspection missing after save")
		}
		s.metrics.InspectionSubmitted(complete)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkResolutions returns the ids to resolve. Unknown ids and resolutions
// that would predate the deficiency's own inspection are field errors.
func (s *service) checkResolutions(ctx context.Context, repo Repository, inspection *models.Inspection, open []deficiencies.OpenDeficiency, resolutions map[uuid.UUID]bool) ([]uuid.UUID, error) {
	byID := make(map[uuid.UUID]deficiencies.OpenDeficiency, len(open))
	var createdIn []uuid.UUID
	for _, d := range open {
		byID[d.ID] = d
		if d.InspectionCreatedID != nil {
			createdIn = append(createdIn, *d.InspectionCreatedID)
		}
	}
	dates, err := repo.Dates(ctx, createdIn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inspection dates")
	}

	var (
		resolved []uuid.UUID
		invalid  error
	)
	for id, isResolved := range resolutions {
		d, ok := byID[id]
		path := fmt.Sprintf("resolutions.%s", id)
		if !ok {
			invalid = multierr.Append(invalid, fieldError{Path: path, Message: "is not an open deficiency of this cadet"})
			continue
		}
		if !isResolved {
			continue
		}
		if d.InspectionCreatedID != nil {
			if created, ok := dates[*d.InspectionCreatedID]; ok && inspection.Date.Before(created) {
				invalid = multierr.Append(invalid, fieldError{Path: path, Message: "cannot be resolved before the inspection that recorded it"})
				continue
			}
		}
		resolved = append(resolved, id)
	}
	if invalid != nil {
		return nil, invalid
	}
	return resolved, nil
}

func (s *service) draftContext(ctx context.Context, ledger assignments.Repository, defRepo deficiencies.Repository, actor auth.Actor, cadet models.Cadet, drafts []DraftDeficiency) (draftContext, error) {
	dc := draftContext{
		actor:     actor,
		cadet:     cadet,
		repo:      ledger,
		types:     map[uuid.UUID]models.DeficiencyType{},
		uniforms:  map[uuid.UUID]assignments.IssuedUniform{},
		materials: map[uuid.UUID]assignments.IssuedMaterial{},
		typeNames: map[uuid.UUID]string{},
	}
	if len(drafts) == 0 {
		return dc, nil
	}

	for _, draft := range drafts {
		if draft.TypeID == uuid.Nil {
			continue
		}
		if _, seen := dc.types[draft.TypeID]; seen {
			continue
		}
		t, err := defRepo.FindType(ctx, draft.TypeID)
		if err != nil {
			return dc, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deficiency type")
		}
		if t != nil {
			dc.types[t.ID] = *t
		}
	}

	uniforms, err := ledger.ListOpenUniforms(ctx, cadet.ID)
	if err != nil {
		return dc, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issued uniforms")
	}
	for _, u := range uniforms {
		dc.uniforms[u.UniformID] = u
	}
	materials, err := ledger.ListOpenMaterials(ctx, cadet.ID)
	if err != nil {
		return dc, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issued materials")
	}
	for _, m := range materials {
		dc.materials[m.MaterialID] = m
	}
	types, err := ledger.ListUniformTypes(ctx, actor.TenantID)
	if err != nil {
		return dc, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uniform types")
	}
	for _, t := range types {
		dc.typeNames[t.ID] = t.Name
	}
	return dc, nil
}

func (s *service) AutoClose(ctx context.Context, cutoff time.Time) (int64, error) {
	closed, err := s.repo.DeactivateBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto close inspections")
	}
	return closed, nil
}

func (s *service) lockInspection(ctx context.Context, repo Repository, actor auth.Actor, inspectionID uuid.UUID) (*models.Inspection, error) {
	if inspectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection id required").
			WithDetails(map[string]string{"inspection_id": "is required"})
	}
	inspection, err := repo.Lock(ctx, inspectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inspection")
	}
	if inspection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inspection").
			WithDetails(map[string]string{"inspection_id": "does not exist"})
	}
	if err := actor.OwnsTenant(inspection.TenantID); err != nil {
		return nil, err
	}
	return inspection, nil
}

func (s *service) loadCadet(ctx context.Context, ledger assignments.Repository, actor auth.Actor, cadetID uuid.UUID) (*models.Cadet, error) {
	if cadetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cadet id required").
			WithDetails(map[string]string{"cadet_id": "is required"})
	}
	cadet, err := ledger.FindCadet(ctx, cadetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cadet")
	}
	if cadet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown cadet").
			WithDetails(map[string]string{"cadet_id": "does not exist"})
	}
	if err := actor.OwnsTenant(cadet.TenantID); err != nil {
		return nil, err
	}
	return cadet, nil
}
