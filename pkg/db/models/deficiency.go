package models

import (
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeficiencyType declares which references a deficiency of this type carries.
type DeficiencyType struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   uuid.UUID                 `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	Name       string                    `gorm:"column:name;not null" json:"name"`
	Dependent  enums.DeficiencyDependent `gorm:"column:dependent;not null" json:"dependent"`
	Relation   *enums.DeficiencyRelation `gorm:"column:relation" json:"relation"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DisabledAt *time.Time                `gorm:"column:disabled_at" json:"disabled_at,omitempty"`
}

func (t *DeficiencyType) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Deficiency is a recorded shortfall; exactly one of CadetDeficiency or
// UniformDeficiency links it to its subject.
type Deficiency struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DeficiencyTypeID     uuid.UUID  `gorm:"column:deficiency_type_id;type:uuid;not null" json:"deficiency_type_id"`
	Description          string     `gorm:"column:description;not null" json:"description"`
	Comment              *string    `gorm:"column:comment" json:"comment,omitempty"`
	InspectionCreatedID  *uuid.UUID `gorm:"column:inspection_created_id;type:uuid" json:"inspection_created_id,omitempty"`
	InspectionResolvedID *uuid.UUID `gorm:"column:inspection_resolved_id;type:uuid" json:"inspection_resolved_id,omitempty"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ResolvedAt           *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (d *Deficiency) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// CadetDeficiency links a deficiency to a cadet, optionally narrowed to one
// uniform or material.
type CadetDeficiency struct {
	DeficiencyID uuid.UUID  `gorm:"column:deficiency_id;type:uuid;primaryKey"`
	CadetID      uuid.UUID  `gorm:"column:cadet_id;type:uuid;not null"`
	UniformID    *uuid.UUID `gorm:"column:uniform_id;type:uuid"`
	MaterialID   *uuid.UUID `gorm:"column:material_id;type:uuid"`
}

// UniformDeficiency links a deficiency to a uniform regardless of holder.
type UniformDeficiency struct {
	DeficiencyID uuid.UUID `gorm:"column:deficiency_id;type:uuid;primaryKey"`
	UniformID    uuid.UUID `gorm:"column:uniform_id;type:uuid;not null"`
}
