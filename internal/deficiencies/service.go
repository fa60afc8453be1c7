package deficiencies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the deficiency type taxonomy of a tenant.
type Service interface {
	CreateType(ctx context.Context, actor auth.Actor, input CreateTypeInput) (*models.DeficiencyType, error)
	ListTypes(ctx context.Context, actor auth.Actor, includeDisabled bool) ([]models.DeficiencyType, error)
	// DeleteType removes an unused type, or disables it when deficiencies
	// still reference it. The boolean reports which happened.
	DeleteType(ctx context.Context, actor auth.Actor, typeID uuid.UUID) (disabled bool, err error)
	LoadType(ctx context.Context, actor auth.Actor, typeID uuid.UUID) (*models.DeficiencyType, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService wires deficiency taxonomy dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deficiencies repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) CreateType(ctx context.Context, actor auth.Actor, input CreateTypeInput) (*models.DeficiencyType, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	variant := Variant{
		Dependent: enums.DeficiencyDependent(input.Dependent),
		Relation:  enums.DeficiencyRelation(input.Relation),
	}
	if !variant.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported deficiency variant").
			WithDetails(map[string]string{"relation": fmt.Sprintf("is not allowed for dependent %s", input.Dependent)})
	}

	t := &models.DeficiencyType{
		ID:        uuid.New(),
		TenantID:  actor.TenantID,
		Name:      input.Name,
		Dependent: variant.Dependent,
		Relation:  variant.RelationPtr(),
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deficiency type")
	}
	return t, nil
}

func (s *service) ListTypes(ctx context.Context, actor auth.Actor, includeDisabled bool) ([]models.DeficiencyType, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	types, err := s.repo.ListTypes(ctx, actor.TenantID, includeDisabled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deficiency types")
	}
	if types == nil {
		types = []models.DeficiencyType{}
	}
	return types, nil
}

func (s *service) DeleteType(ctx context.Context, actor auth.Actor, typeID uuid.UUID) (bool, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return false, err
	}

	disabled := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		t, err := loadType(ctx, repo, actor, typeID)
		if err != nil {
			return err
		}
		refs, err := repo.CountByType(ctx, t.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count deficiencies")
		}
		if refs == 0 {
			if err := repo.DeleteType(ctx, t.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete deficiency type")
			}
			return nil
		}
		disabled = true
		if err := repo.DisableType(ctx, t.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "disable deficiency type")
		}
		return nil
	})
	return disabled, err
}

func (s *service) LoadType(ctx context.Context, actor auth.Actor, typeID uuid.UUID) (*models.DeficiencyType, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	return loadType(ctx, s.repo, actor, typeID)
}

func loadType(ctx context.Context, repo Repository, actor auth.Actor, typeID uuid.UUID) (*models.DeficiencyType, error) {
	t, err := repo.FindType(ctx, typeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deficiency type")
	}
	if t == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown deficiency type").
			WithDetails(map[string]string{"deficiency_type_id": "does not exist"})
	}
	if err := actor.OwnsTenant(t.TenantID); err != nil {
		return nil, err
	}
	return t, nil
}
