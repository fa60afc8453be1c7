package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/metrics"
	"github.com/angelmondragon/quartermaster-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the assignment ledger: it guarantees at most one open issuance
// per uniform and reports recoverable conflicts as ASSIGNMENT_CONFLICT errors.
type Service interface {
	Issue(ctx context.Context, actor auth.Actor, input IssueInput) (*models.UniformIssuance, error)
	Return(ctx context.Context, actor auth.Actor, uniformID uuid.UUID) error
	Replace(ctx context.Context, actor auth.Actor, input ReplaceInput) (*models.UniformIssuance, error)
	ListIssued(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) (*IssuedInventory, error)
	History(ctx context.Context, actor auth.Actor, uniformID uuid.UUID, params pagination.Params) (*HistoryResult, error)
	IssueMaterial(ctx context.Context, actor auth.Actor, input MaterialIssueInput) (*models.MaterialIssuance, error)
	ReturnMaterial(ctx context.Context, actor auth.Actor, cadetID, materialID uuid.UUID) error
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.DomainMetrics
	now     func() time.Time
}

// NewService wires the ledger; m may be nil.
func NewService(repo Repository, tx txRunner, m *metrics.DomainMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Issue(ctx context.Context, actor auth.Actor, input IssueInput) (*models.UniformIssuance, error) {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return nil, err
	}

	var issued *models.UniformIssuance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cadet, err := s.loadCadet(ctx, repo, actor, input.CadetID)
		if err != nil {
			return err
		}
		issued, err = s.issue(ctx, repo, actor, cadet, input.Selector, input.Options)
		return err
	})
	s.record("issue", err)
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *service) Return(ctx context.Context, actor auth.Actor, uniformID uuid.UUID) error {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		uniform, _, err := s.loadUniform(ctx, repo, actor, uniformID)
		if err != nil {
			return err
		}
		open, err := repo.LockOpenIssuance(ctx, uniform.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open issuance")
		}
		if open == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "uniform is not issued").
				WithDetails(map[string]string{"uniform_id": "is not issued"})
		}
		if err := repo.CloseIssuance(ctx, open.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close issuance")
		}
		return nil
	})
	s.record("return", err)
	return err
}

// Replace returns the old uniform and issues the new one in one transaction,
// so a conflict on the new uniform also undoes the return.
func (s *service) Replace(ctx context.Context, actor auth.Actor, input ReplaceInput) (*models.UniformIssuance, error) {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return nil, err
	}

	var issued *models.UniformIssuance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cadet, err := s.loadCadet(ctx, repo, actor, input.CadetID)
		if err != nil {
			return err
		}
		old, _, err := s.loadUniform(ctx, repo, actor, input.OldUniformID)
		if err != nil {
			return err
		}
		open, err := repo.LockOpenIssuance(ctx, old.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open issuance")
		}
		if open == nil || open.CadetID != cadet.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "old uniform is not issued to cadet").
				WithDetails(map[string]string{"old_uniform_id": "is not issued to this cadet"})
		}
		if err := repo.CloseIssuance(ctx, open.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close issuance")
		}

		issued, err = s.issue(ctx, repo, actor, cadet, input.Selector, input.Options)
		return err
	})
	s.record("replace", err)
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// issue runs the per-item state machine. Checks happen in the order
// not_found, inactive, already_issued so that every override the caller adds
// moves it to the next decision.
func (s *service) issue(ctx context.Context, repo Repository, actor auth.Actor, cadet *models.Cadet, sel Selector, opts Options) (*models.UniformIssuance, error) {
	uniform, err := s.resolveSelector(ctx, repo, actor, sel, opts)
	if err != nil {
		return nil, err
	}

	if !uniform.Active && !opts.IgnoreInactive {
		data := InactiveData{UniformID: uniform.ID, UniformTypeID: uniform.UniformTypeID, Number: uniform.Number, Comment: uniform.Comment}
		if ut, err := repo.FindUniformType(ctx, uniform.UniformTypeID); err == nil && ut != nil {
			data.TypeName = ut.Name
		}
		return nil, s.conflict(enums.AssignmentConflictInactive, data)
	}

	open, err := repo.LockOpenIssuance(ctx, uniform.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open issuance")
	}
	if open != nil {
		if open.CadetID == cadet.ID {
			return open, nil
		}
		if !opts.Force {
			return nil, s.alreadyIssued(ctx, repo, uniform, open.CadetID)
		}
		if err := repo.CloseIssuance(ctx, open.ID, s.now()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close previous issuance")
		}
	}

	record := &models.UniformIssuance{
		ID:        uuid.New(),
		UniformID: uniform.ID,
		CadetID:   cadet.ID,
		IssuedAt:  s.now(),
	}
	if err := repo.CreateIssuance(ctx, record); err != nil {
		// The uniform_issuances table has no unique index besides the open
		// issuance guard, so any unique violation means a concurrent issue won.
		if db.IsUniqueViolation(err, "") {
			current, lookupErr := repo.LockOpenIssuance(ctx, uniform.ID)
			if lookupErr != nil || current == nil {
				return nil, s.conflict(enums.AssignmentConflictAlreadyIssued, AlreadyIssuedData{
					UniformID: uniform.ID, UniformTypeID: uniform.UniformTypeID, Number: uniform.Number,
				})
			}
			return nil, s.alreadyIssued(ctx, repo, uniform, current.CadetID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create issuance")
	}
	return record, nil
}

func (s *service) resolveSelector(ctx context.Context, repo Repository, actor auth.Actor, sel Selector, opts Options) (*models.Uniform, error) {
	if sel.UniformID != nil && *sel.UniformID != uuid.Nil {
		uniform, _, err := s.loadUniform(ctx, repo, actor, *sel.UniformID)
		return uniform, err
	}

	if sel.UniformTypeID == uuid.Nil || sel.Number <= 0 {
		details := map[string]string{}
		if sel.UniformTypeID == uuid.Nil {
			details["uniform_type_id"] = "is required"
		}
		if sel.Number <= 0 {
			details["number"] = "must be at least 1"
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uniform selector incomplete").WithDetails(details)
	}

	ut, err := s.loadUniformType(ctx, repo, actor, sel.UniformTypeID)
	if err != nil {
		return nil, err
	}
	uniform, err := repo.FindUniformByNumber(ctx, ut.ID, sel.Number)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load uniform by number")
	}
	if uniform != nil {
		return uniform, nil
	}
	if !opts.Create {
		return nil, s.conflict(enums.AssignmentConflictNotFound, NotFoundData{
			UniformTypeID: ut.ID, TypeName: ut.Name, Number: sel.Number,
		})
	}
	return s.createUniform(ctx, repo, actor, ut, sel)
}

func (s *service) createUniform(ctx context.Context, repo Repository, actor auth.Actor, ut *models.UniformType, sel Selector) (*models.Uniform, error) {
	details := map[string]string{}
	if sel.GenerationID != nil {
		gen, err := repo.FindGeneration(ctx, *sel.GenerationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load generation")
		}
		if gen == nil || gen.UniformTypeID != ut.ID {
			details["generation_id"] = "does not belong to the uniform type"
		}
	}
	if sel.SizeID != nil {
		size, err := repo.FindSize(ctx, *sel.SizeID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size")
		}
		if size == nil {
			details["size_id"] = "does not exist"
		} else if err := actor.OwnsTenant(size.TenantID); err != nil {
			return nil, err
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uniform attributes").WithDetails(details)
	}

	uniform := &models.Uniform{
		ID:            uuid.New(),
		UniformTypeID: ut.ID,
		Number:        sel.Number,
		GenerationID:  sel.GenerationID,
		SizeID:        sel.SizeID,
		Active:        true,
	}
	if err := repo.CreateUniform(ctx, uniform); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create uniform")
		}
		// A concurrent caller created the same number first; carry on with
		// its row so the inactive and already_issued checks still apply.
		existing, lookupErr := repo.FindUniformByNumber(ctx, ut.ID, sel.Number)
		if lookupErr != nil || existing == nil {
			return nil, s.conflict(enums.AssignmentConflictNotFound, NotFoundData{
				UniformTypeID: ut.ID, TypeName: ut.Name, Number: sel.Number,
			})
		}
		return existing, nil
	}
	return uniform, nil
}

func (s *service) alreadyIssued(ctx context.Context, repo Repository, uniform *models.Uniform, holderID uuid.UUID) error {
	data := AlreadyIssuedData{
		UniformID:     uniform.ID,
		UniformTypeID: uniform.UniformTypeID,
		Number:        uniform.Number,
		Holder:        Holder{ID: holderID},
	}
	holder, err := repo.FindCadet(ctx, holderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current holder")
	}
	if holder != nil {
		data.Holder = Holder{ID: holder.ID, FirstName: holder.FirstName, LastName: holder.LastName, Active: holder.Active}
	}
	return s.conflict(enums.AssignmentConflictAlreadyIssued, data)
}

func (s *service) conflict(kind enums.AssignmentConflictKind, data any) error {
	s.metrics.Conflict(kind.String())
	return newConflict(kind, data)
}

func (s *service) ListIssued(ctx context.Context, actor auth.Actor, cadetID uuid.UUID) (*IssuedInventory, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}

	cadet, err := s.loadCadet(ctx, s.repo, actor, cadetID)
	if err != nil {
		return nil, err
	}
	types, err := s.repo.ListUniformTypes(ctx, actor.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uniform types")
	}
	uniforms, err := s.repo.ListOpenUniforms(ctx, cadet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issued uniforms")
	}
	materials, err := s.repo.ListOpenMaterials(ctx, cadet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issued materials")
	}

	byType := map[uuid.UUID][]IssuedUniform{}
	for _, u := range uniforms {
		byType[u.UniformTypeID] = append(byType[u.UniformTypeID], u)
	}
	groups := make([]IssuedGroup, 0, len(types))
	for _, ut := range types {
		items := byType[ut.ID]
		if items == nil {
			items = []IssuedUniform{}
		}
		groups = append(groups, IssuedGroup{
			UniformTypeID: ut.ID,
			Name:          ut.Name,
			Acronym:       ut.Acronym,
			IssuedDefault: ut.IssuedDefault,
			Uniforms:      items,
		})
	}
	if materials == nil {
		materials = []IssuedMaterial{}
	}

	return &IssuedInventory{CadetID: cadet.ID, Uniforms: groups, Materials: materials}, nil
}

func (s *service) History(ctx context.Context, actor auth.Actor, uniformID uuid.UUID, params pagination.Params) (*HistoryResult, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	uniform, _, err := s.loadUniform(ctx, s.repo, actor, uniformID)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListHistory(ctx, uniform.ID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issuance history")
	}

	items, next := pagination.Page(rows, params.Limit, func(e HistoryEntry) pagination.Cursor {
		return pagination.Cursor{At: e.IssuedAt, ID: e.ID}
	})
	if items == nil {
		items = []HistoryEntry{}
	}
	return &HistoryResult{Items: items, Cursor: next}, nil
}

func (s *service) loadCadet(ctx context.Context, repo Repository, actor auth.Actor, cadetID uuid.UUID) (*models.Cadet, error) {
	if cadetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cadet id required").
			WithDetails(map[string]string{"cadet_id": "is required"})
	}
	cadet, err := repo.FindCadet(ctx, cadetID)
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

func (s *service) loadUniformType(ctx context.Context, repo Repository, actor auth.Actor, typeID uuid.UUID) (*models.UniformType, error) {
	ut, err := repo.FindUniformType(ctx, typeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load uniform type")
	}
	if ut == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown uniform type").
			WithDetails(map[string]string{"uniform_type_id": "does not exist"})
	}
	if err := actor.OwnsTenant(ut.TenantID); err != nil {
		return nil, err
	}
	return ut, nil
}

// loadUniform resolves a uniform and its type, enforcing the tenant boundary
// through the type.
func (s *service) loadUniform(ctx context.Context, repo Repository, actor auth.Actor, uniformID uuid.UUID) (*models.Uniform, *models.UniformType, error) {
	if uniformID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "uniform id required").
			WithDetails(map[string]string{"uniform_id": "is required"})
	}
	uniform, err := repo.FindUniform(ctx, uniformID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load uniform")
	}
	if uniform == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown uniform").
			WithDetails(map[string]string{"uniform_id": "does not exist"})
	}
	ut, err := s.loadUniformType(ctx, repo, actor, uniform.UniformTypeID)
	if err != nil {
		return nil, nil, err
	}
	return uniform, ut, nil
}

func (s *service) record(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.LedgerOperation(operation, "ok")
	case pkgerrors.Is(err, pkgerrors.CodeAssignmentConflict):
		s.metrics.LedgerOperation(operation, "conflict")
	default:
		s.metrics.LedgerOperation(operation, "error")
	}
}
