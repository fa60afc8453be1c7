package assignments

import (
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Options are the overrides a caller may set after seeing a conflict.
type Options struct {
	Force          bool `json:"force"`
	IgnoreInactive bool `json:"ignore_inactive"`
	Create         bool `json:"create"`
}

// Selector identifies the uniform to issue, either directly by id or by its
// number within a uniform type. GenerationID and SizeID are only used when the
// uniform is created on the fly.
type Selector struct {
	UniformID     *uuid.UUID `json:"uniform_id,omitempty"`
	UniformTypeID uuid.UUID  `json:"uniform_type_id"`
	Number        int        `json:"number"`
	GenerationID  *uuid.UUID `json:"generation_id,omitempty"`
	SizeID        *uuid.UUID `json:"size_id,omitempty"`
}

type IssueInput struct {
	Selector Selector
	CadetID  uuid.UUID
	Options  Options
}

type ReplaceInput struct {
	OldUniformID uuid.UUID
	Selector     Selector
	CadetID      uuid.UUID
	Options      Options
}

type MaterialIssueInput struct {
	CadetID    uuid.UUID
	MaterialID uuid.UUID
	Quantity   int
}

// IssuedUniform is one uniform currently held by a cadet.
type IssuedUniform struct {
	UniformID     uuid.UUID  `json:"uniform_id"`
	UniformTypeID uuid.UUID  `json:"uniform_type_id"`
	Number        int        `json:"number"`
	Active        bool       `json:"active"`
	GenerationID  *uuid.UUID `json:"generation_id,omitempty"`
	SizeID        *uuid.UUID `json:"size_id,omitempty"`
	IssuanceID    uuid.UUID  `json:"issuance_id"`
	IssuedAt      time.Time  `json:"issued_at"`
}

// IssuedGroup lists a cadet's uniforms of one type next to the type's quota.
type IssuedGroup struct {
	UniformTypeID uuid.UUID       `json:"uniform_type_id"`
	Name          string          `json:"name"`
	Acronym       string          `json:"acronym"`
	IssuedDefault int             `json:"issued_default"`
	Uniforms      []IssuedUniform `json:"uniforms"`
}

// IssuedMaterial is one open material issuance of a cadet.
type IssuedMaterial struct {
	MaterialID      uuid.UUID `json:"material_id"`
	MaterialGroupID uuid.UUID `json:"material_group_id"`
	Name            string    `json:"name"`
	GroupName       string    `json:"group_name"`
	Quantity        int       `json:"quantity"`
	IssuedAt        time.Time `json:"issued_at"`
}

// IssuedInventory is everything a cadet currently holds.
type IssuedInventory struct {
	CadetID   uuid.UUID        `json:"cadet_id"`
	Uniforms  []IssuedGroup    `json:"uniforms"`
	Materials []IssuedMaterial `json:"materials"`
}

// TypeCount is the issued-versus-required tally for one uniform type.
type TypeCount struct {
	UniformTypeID uuid.UUID `json:"uniform_type_id"`
	Name          string    `json:"name"`
	Issued        int       `json:"issued"`
	Required      int       `json:"required"`
}

// Satisfied reports whether the cadet holds at least the required amount.
func (c TypeCount) Satisfied() bool {
	return c.Issued >= c.Required
}

// HistoryEntry is one issuance of a uniform with the holder's name.
type HistoryEntry struct {
	models.UniformIssuance
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// HistoryResult is one page of a uniform's issuance history.
type HistoryResult struct {
	Items  []HistoryEntry `json:"items"`
	Cursor string         `json:"cursor"`
}
