package deficiencies

import (
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateTypeInput is the payload for a new deficiency type.
type CreateTypeInput struct {
	Name      string `json:"name" validate:"required,max=60,freetext"`
	Dependent string `json:"dependent" validate:"required,oneof=cadet uniform"`
	Relation  string `json:"relation" validate:"omitempty,oneof=uniform material"`
}

// OpenDeficiency is an unresolved deficiency as shown to an inspector.
type OpenDeficiency struct {
	ID                  uuid.UUID                 `json:"id"`
	TypeID              uuid.UUID                 `json:"deficiency_type_id"`
	TypeName            string                    `json:"type_name"`
	Dependent           enums.DeficiencyDependent `json:"dependent"`
	Relation            *enums.DeficiencyRelation `json:"relation,omitempty"`
	Description         string                    `json:"description"`
	Comment             *string                   `json:"comment,omitempty"`
	UniformID           *uuid.UUID                `json:"uniform_id,omitempty"`
	MaterialID          *uuid.UUID                `json:"material_id,omitempty"`
	InspectionCreatedID *uuid.UUID                `json:"inspection_created_id,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
}

// openRow is the raw join row behind OpenDeficiency; the uniform can come from
// either join table.
type openRow struct {
	ID                  uuid.UUID
	DeficiencyTypeID    uuid.UUID
	TypeName            string
	Dependent           enums.DeficiencyDependent
	Relation            *enums.DeficiencyRelation
	Description         string
	Comment             *string
	CadetUniformID      *uuid.UUID
	SubjectUniformID    *uuid.UUID
	MaterialID          *uuid.UUID
	InspectionCreatedID *uuid.UUID
	CreatedAt           time.Time
}

func (r openRow) toOpen() OpenDeficiency {
	out := OpenDeficiency{
		ID:                  r.ID,
		TypeID:              r.DeficiencyTypeID,
		TypeName:            r.TypeName,
		Dependent:           r.Dependent,
		Relation:            r.Relation,
		Description:         r.Description,
		Comment:             r.Comment,
		UniformID:           r.CadetUniformID,
		MaterialID:          r.MaterialID,
		InspectionCreatedID: r.InspectionCreatedID,
		CreatedAt:           r.CreatedAt,
	}
	if out.UniformID == nil {
		out.UniformID = r.SubjectUniformID
	}
	return out
}
