package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialGroup is an ordered bucket of bulk materials.
type MaterialGroup struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID         uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	Name             string     `gorm:"column:name;not null" json:"name"`
	IssuedDefault    *int       `gorm:"column:issued_default" json:"issued_default,omitempty"`
	MultitypeAllowed bool       `gorm:"column:multitype_allowed;not null" json:"multitype_allowed"`
	Position         int        `gorm:"column:position;not null" json:"position"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"-"`
}

func (g *MaterialGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// Material is one issuable material type inside a group.
type Material struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MaterialGroupID uuid.UUID  `gorm:"column:material_group_id;type:uuid;not null" json:"material_group_id"`
	Name            string     `gorm:"column:name;not null" json:"name"`
	ActualQuantity  int        `gorm:"column:actual_quantity;not null" json:"actual_quantity"`
	TargetQuantity  int        `gorm:"column:target_quantity;not null" json:"target_quantity"`
	Position        int        `gorm:"column:position;not null" json:"position"`
	DeletedAt       *time.Time `gorm:"column:deleted_at" json:"-"`
}

func (m *Material) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// MaterialIssuance records a quantity of material held by a cadet.
type MaterialIssuance struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MaterialID uuid.UUID  `gorm:"column:material_id;type:uuid;not null" json:"material_id"`
	CadetID    uuid.UUID  `gorm:"column:cadet_id;type:uuid;not null" json:"cadet_id"`
	Quantity   int        `gorm:"column:quantity;not null" json:"quantity"`
	IssuedAt   time.Time  `gorm:"column:issued_at;not null" json:"issued_at"`
	ReturnedAt *time.Time `gorm:"column:returned_at" json:"returned_at,omitempty"`
}

func (i *MaterialIssuance) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
