package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UniformSize is an ordered size label scoped to a tenant.
type UniformSize struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	Name     string    `gorm:"column:name;not null" json:"name"`
	Position int       `gorm:"column:position;not null" json:"position"`
}

func (s *UniformSize) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// UniformType is a family of uniform parts, e.g. "Jacket".
type UniformType struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID         uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	Name             string     `gorm:"column:name;not null" json:"name"`
	Acronym          string     `gorm:"column:acronym;not null" json:"acronym"`
	IssuedDefault    int        `gorm:"column:issued_default;not null" json:"issued_default"`
	UsingGenerations bool       `gorm:"column:using_generations;not null" json:"using_generations"`
	UsingSizes       bool       `gorm:"column:using_sizes;not null" json:"using_sizes"`
	Position         int        `gorm:"column:position;not null" json:"position"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"-"`
}

func (t *UniformType) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// UniformGeneration is an ordered revision of a uniform type.
type UniformGeneration struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UniformTypeID uuid.UUID `gorm:"column:uniform_type_id;type:uuid;not null" json:"uniform_type_id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	Outdated      bool      `gorm:"column:outdated;not null" json:"outdated"`
	Position      int       `gorm:"column:position;not null" json:"position"`
}

func (g *UniformGeneration) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
