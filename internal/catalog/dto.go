package catalog

import (
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateInput adds one row to a catalog list. Only the attributes of the
// chosen kind are read; the rest are ignored.
type CreateInput struct {
	Kind     enums.CatalogKind `json:"-"`
	ParentID uuid.UUID         `json:"-"`
	Name     string            `json:"name" validate:"required,max=60,freetext"`

	// uniform_type
	Acronym          string `json:"acronym" validate:"max=5"`
	IssuedDefault    *int   `json:"issued_default" validate:"omitempty,min=0"`
	UsingGenerations bool   `json:"using_generations"`
	UsingSizes       bool   `json:"using_sizes"`

	// generation
	Outdated bool `json:"outdated"`

	// material_group
	MultitypeAllowed bool `json:"multitype_allowed"`

	// material
	TargetQuantity int `json:"target_quantity" validate:"min=0"`
	ActualQuantity int `json:"actual_quantity" validate:"min=0"`
}

// ListParams selects one catalog list.
type ListParams struct {
	Kind     enums.CatalogKind
	ParentID uuid.UUID
}
