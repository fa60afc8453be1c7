package cadets

import (
	"context"
	"fmt"
	"strings"

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

// Service exposes the cadet roster of a tenant.
type Service interface {
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.Cadet, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Cadet, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Cadet, error)
	SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Cadet, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cadets repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.Cadet, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, actor.TenantID, params.IncludeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cadets")
	}
	if out == nil {
		out = []models.Cadet{}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Cadet, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	return load(ctx, s.repo, actor, id)
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Cadet, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	cadet := &models.Cadet{
		ID:        uuid.New(),
		TenantID:  actor.TenantID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Active:    true,
		Comment:   input.Comment,
	}
	if err := s.repo.Create(ctx, cadet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cadet")
	}
	return cadet, nil
}

// SetActive flips the active flag. Issued items stay with an inactive cadet;
// new issues to them need the inactive override.
func (s *service) SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Cadet, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	var cadet *models.Cadet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if cadet, err = load(ctx, repo, actor, id); err != nil {
			return err
		}
		if cadet.Active == active {
			return nil
		}
		if err := repo.SetActive(ctx, id, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cadet")
		}
		cadet.Active = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cadet, nil
}

func load(ctx context.Context, repo Repository, actor auth.Actor, id uuid.UUID) (*models.Cadet, error) {
	cadet, err := repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cadet")
	}
	if cadet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cadet not found")
	}
	if err := actor.OwnsTenant(cadet.TenantID); err != nil {
		return nil, err
	}
	return cadet, nil
}
