package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cadet is a member who can hold uniforms and material.
type Cadet struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null" json:"-"`
	FirstName string     `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string     `gorm:"column:last_name;not null" json:"last_name"`
	Active    bool       `gorm:"column:active;not null" json:"active"`
	Comment   *string    `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"-"`
}

func (c *Cadet) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
