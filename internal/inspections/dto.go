package inspections

import (
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/google/uuid"
)

// StartInput opens a new inspection; Date uses the YYYY-MM-DD layout.
type StartInput struct {
	Name string `json:"name" validate:"required,max=100,freetext"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SubmitInput is everything a cadet inspection commits at once.
// UniformComplete is the caller's preview; the stored value is derived.
type SubmitInput struct {
	CadetID         uuid.UUID          `json:"cadet_id"`
	InspectionID    uuid.UUID          `json:"inspection_id"`
	Resolutions     map[uuid.UUID]bool `json:"resolutions"`
	NewDeficiencies []DraftDeficiency  `json:"new_deficiencies"`
	UniformComplete bool               `json:"uniform_complete"`
}

// Snapshot is the completeness data frozen on a CadetInspection.
type Snapshot struct {
	Types          []assignments.TypeCount `json:"types"`
	Resolved       int                     `json:"resolved"`
	Created        int                     `json:"created"`
	RemainingOpen  int                     `json:"remaining_open"`
	EvaluatedAt    time.Time               `json:"evaluated_at"`
	ClientComplete bool                    `json:"client_complete"`
}
