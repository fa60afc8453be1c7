package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Uniform is one physical, numbered uniform part. The current holder is not
// stored here; it is the cadet on the single open UniformIssuance.
type Uniform struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UniformTypeID uuid.UUID  `gorm:"column:uniform_type_id;type:uuid;not null" json:"uniform_type_id"`
	Number        int        `gorm:"column:number;not null" json:"number"`
	GenerationID  *uuid.UUID `gorm:"column:generation_id;type:uuid" json:"generation_id,omitempty"`
	SizeID        *uuid.UUID `gorm:"column:size_id;type:uuid" json:"size_id,omitempty"`
	Active        bool       `gorm:"column:active;not null" json:"active"`
	Comment       *string    `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt     *time.Time `gorm:"column:deleted_at" json:"-"`
}

func (u *Uniform) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UniformIssuance records possession of a uniform; ReturnedAt nil means held.
type UniformIssuance struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UniformID  uuid.UUID  `gorm:"column:uniform_id;type:uuid;not null" json:"uniform_id"`
	CadetID    uuid.UUID  `gorm:"column:cadet_id;type:uuid;not null" json:"cadet_id"`
	IssuedAt   time.Time  `gorm:"column:issued_at;not null" json:"issued_at"`
	ReturnedAt *time.Time `gorm:"column:returned_at" json:"returned_at,omitempty"`
}

func (i *UniformIssuance) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IsOpen reports whether the issuance still denotes current possession.
func (i UniformIssuance) IsOpen() bool {
	return i.ReturnedAt == nil
}
