package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Inspection is a dated review cycle; at most one per tenant is active.
type Inspection struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Date      time.Time `gorm:"column:date;type:date;not null" json:"date"`
	Active    bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *Inspection) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// CadetInspection freezes the outcome of inspecting one cadet.
type CadetInspection struct {
	ID                   uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InspectionID         uuid.UUID      `gorm:"column:inspection_id;type:uuid;not null" json:"inspection_id"`
	CadetID              uuid.UUID      `gorm:"column:cadet_id;type:uuid;not null" json:"cadet_id"`
	UniformComplete      bool           `gorm:"column:uniform_complete;not null" json:"uniform_complete"`
	CompletenessSnapshot datatypes.JSON `gorm:"column:completeness_snapshot;type:jsonb" json:"completeness_snapshot,omitempty"`
	SubmittedAt          time.Time      `gorm:"column:submitted_at;not null" json:"submitted_at"`
}

func (c *CadetInspection) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
