package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/quartermaster-backend/internal/ordering"
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

// Service manages the ordered configuration lists of a tenant: sizes, uniform
// types and their generations, material groups and their materials.
type Service interface {
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]ordering.Member, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*ordering.Member, error)
	Reorder(ctx context.Context, actor auth.Actor, params ListParams, id uuid.UUID, move ordering.Move) ([]ordering.Member, error)
	Remove(ctx context.Context, actor auth.Actor, params ListParams, id uuid.UUID) ([]ordering.Member, error)
	Normalize(ctx context.Context, actor auth.Actor, params ListParams) ([]ordering.Member, error)
}

type service struct {
	tx      txRunner
	manager *ordering.Manager
}

// NewService wires catalog dependencies.
func NewService(tx txRunner, manager *ordering.Manager) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if manager == nil {
		return nil, fmt.Errorf("ordering manager required")
	}
	return &service{tx: tx, manager: manager}, nil
}

func scopeOf(actor auth.Actor, kind enums.CatalogKind, parentID uuid.UUID) ordering.Scope {
	return ordering.Scope{Kind: kind, TenantID: actor.TenantID, ParentID: parentID}
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]ordering.Member, error) {
	if err := actor.Require(enums.UserRoleUser); err != nil {
		return nil, err
	}
	var members []ordering.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		members, err = s.manager.List(ctx, tx, scopeOf(actor, params.Kind, params.ParentID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []ordering.Member{}
	}
	return members, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*ordering.Member, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Acronym = strings.TrimSpace(input.Acronym)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Kind == enums.CatalogKindUniformType && input.Acronym == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"acronym": "is required"})
	}

	var member *ordering.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		member, err = s.create(ctx, tx, actor, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// create appends the row at the end of its scope inside tx.
func (s *service) create(ctx context.Context, tx *gorm.DB, actor auth.Actor, input CreateInput) (*ordering.Member, error) {
	scope := scopeOf(actor, input.Kind, input.ParentID)
	position, err := s.manager.Append(ctx, tx, scope)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	var row any
	switch input.Kind {
	case enums.CatalogKindSize:
		row = &models.UniformSize{ID: id, TenantID: actor.TenantID, Name: input.Name, Position: position}
	case enums.CatalogKindUniformType:
		issued := 1
		if input.IssuedDefault != nil {
			issued = *input.IssuedDefault
		}
		row = &models.UniformType{
			ID:               id,
			TenantID:         actor.TenantID,
			Name:             input.Name,
			Acronym:          input.Acronym,
			IssuedDefault:    issued,
			UsingGenerations: input.UsingGenerations,
			UsingSizes:       input.UsingSizes,
			Position:         position,
		}
	case enums.CatalogKindGeneration:
		row = &models.UniformGeneration{ID: id, UniformTypeID: input.ParentID, Name: input.Name, Outdated: input.Outdated, Position: position}
	case enums.CatalogKindMaterialGroup:
		row = &models.MaterialGroup{
			ID:               id,
			TenantID:         actor.TenantID,
			Name:             input.Name,
			IssuedDefault:    input.IssuedDefault,
			MultitypeAllowed: input.MultitypeAllowed,
			Position:         position,
		}
	case enums.CatalogKindMaterial:
		row = &models.Material{
			ID:              id,
			MaterialGroupID: input.ParentID,
			Name:            input.Name,
			TargetQuantity:  input.TargetQuantity,
			ActualQuantity:  input.ActualQuantity,
			Position:        position,
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog kind").
			WithDetails(map[string]string{"kind": "is invalid"})
	}

	if err := s.manager.Insert(ctx, tx, scope, row); err != nil {
		return nil, err
	}
	return &ordering.Member{ID: id, Name: input.Name, Position: position}, nil
}

func (s *service) Reorder(ctx context.Context, actor auth.Actor, params ListParams, id uuid.UUID, move ordering.Move) ([]ordering.Member, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	var members []ordering.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		members, err = s.manager.Reorder(ctx, tx, scopeOf(actor, params.Kind, params.ParentID), id, move)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *service) Remove(ctx context.Context, actor auth.Actor, params ListParams, id uuid.UUID) ([]ordering.Member, error) {
	if err := actor.Require(enums.UserRoleMaterialManager); err != nil {
		return nil, err
	}
	var members []ordering.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		members, err = s.manager.Remove(ctx, tx, scopeOf(actor, params.Kind, params.ParentID), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *service) Normalize(ctx context.Context, actor auth.Actor, params ListParams) ([]ordering.Member, error) {
	if err := actor.Require(enums.UserRoleAdmin); err != nil {
		return nil, err
	}
	var members []ordering.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		members, err = s.manager.Normalize(ctx, tx, scopeOf(actor, params.Kind, params.ParentID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
