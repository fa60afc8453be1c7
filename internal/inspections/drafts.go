package inspections

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/validate"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// DraftDeficiency is a new deficiency as authored in the wizard. Which
// reference fields matter depends on the type's variant.
type DraftDeficiency struct {
	TypeID          uuid.UUID  `json:"deficiency_type_id" validate:"required"`
	Description     string     `json:"description" validate:"omitempty,freetext"`
	Comment         *string    `json:"comment,omitempty" validate:"omitempty,freetext"`
	UniformID       *uuid.UUID `json:"uniform_id,omitempty"`
	MaterialID      *uuid.UUID `json:"material_id,omitempty"`
	MaterialOther   bool       `json:"material_other"`
	MaterialGroupID *uuid.UUID `json:"material_group_id,omitempty"`
}

// newDeficiency is a validated draft narrowed to its variant.
type newDeficiency interface {
	record() (models.Deficiency, *models.CadetDeficiency, *models.UniformDeficiency)
	// attachesTo reports whether the deficiency shows up among the cadet's
	// open deficiencies: cadet links always do, uniform links only while the
	// cadet holds the uniform.
	attachesTo(dc draftContext) bool
}

type base struct {
	typeID      uuid.UUID
	description string
	comment     *string
}

func (b base) deficiency() models.Deficiency {
	return models.Deficiency{ID: uuid.New(), DeficiencyTypeID: b.typeID, Description: b.description, Comment: b.comment}
}

type cadetNote struct {
	base
	cadetID uuid.UUID
}

func (d cadetNote) record() (models.Deficiency, *models.CadetDeficiency, *models.UniformDeficiency) {
	return d.deficiency(), &models.CadetDeficiency{CadetID: d.cadetID}, nil
}

func (d cadetNote) attachesTo(draftContext) bool { return true }

type uniformDefect struct {
	base
	uniformID uuid.UUID
}

func (d uniformDefect) record() (models.Deficiency, *models.CadetDeficiency, *models.UniformDeficiency) {
	return d.deficiency(), nil, &models.UniformDeficiency{UniformID: d.uniformID}
}

func (d uniformDefect) attachesTo(dc draftContext) bool {
	_, held := dc.uniforms[d.uniformID]
	return held
}

type cadetUniform struct {
	base
	cadetID   uuid.UUID
	uniformID uuid.UUID
}

func (d cadetUniform) record() (models.Deficiency, *models.CadetDeficiency, *models.UniformDeficiency) {
	id := d.uniformID
	return d.deficiency(), &models.CadetDeficiency{CadetID: d.cadetID, UniformID: &id}, nil
}

func (d cadetUniform) attachesTo(draftContext) bool { return true }

type cadetMaterial struct {
	base
	cadetID    uuid.UUID
	materialID uuid.UUID
}

func (d cadetMaterial) record() (models.Deficiency, *models.CadetDeficiency, *models.UniformDeficiency) {
	id := d.materialID
	return d.deficiency(), &models.CadetDeficiency{CadetID: d.cadetID, MaterialID: &id}, nil
}

func (d cadetMaterial) attachesTo(draftContext) bool { return true }

// fieldError is one field scoped failure; rows aggregate them with multierr.
type fieldError struct {
	Path    string
	Message string
}

func (e fieldError) Error() string {
	return e.Path + ": " + e.Message
}

func fieldErr(row int, field deficiencies.Field, msg string) error {
	return fieldError{Path: fmt.Sprintf("new_deficiencies[%d].%s", row, field), Message: msg}
}

// validationDetails flattens aggregated field errors into the response map.
func validationDetails(err error) map[string]string {
	out := map[string]string{}
	for _, e := range multierr.Errors(err) {
		if fe, ok := e.(fieldError); ok {
			out[fe.Path] = fe.Message
		}
	}
	return out
}

// draftContext is everything draft validation needs about the cadet.
type draftContext struct {
	actor     auth.Actor
	cadet     models.Cadet
	types     map[uuid.UUID]models.DeficiencyType
	uniforms  map[uuid.UUID]assignments.IssuedUniform
	materials map[uuid.UUID]assignments.IssuedMaterial
	repo      assignments.Repository
	typeNames map[uuid.UUID]string
}

// validateDrafts checks every row and returns all variants, or an error. Field
// problems of all rows are aggregated so one bad row never hides another; a
// fatal error (tenant violation, store failure) aborts immediately.
func validateDrafts(ctx context.Context, dc draftContext, drafts []DraftDeficiency) ([]newDeficiency, error) {
	var (
		out     = make([]newDeficiency, 0, len(drafts))
		invalid error
	)
	for i, draft := range drafts {
		item, err := validateDraft(ctx, dc, i, draft)
		if err != nil {
			if !isFieldErrors(err) {
				return nil, err
			}
			invalid = multierr.Append(invalid, err)
			continue
		}
		out = append(out, item)
	}
	if invalid != nil {
		return nil, invalid
	}
	return out, nil
}

func isFieldErrors(err error) bool {
	if err == nil {
		return false
	}
	for _, e := range multierr.Errors(err) {
		if _, ok := e.(fieldError); !ok {
			return false
		}
	}
	return true
}

func validateDraft(ctx context.Context, dc draftContext, row int, draft DraftDeficiency) (newDeficiency, error) {
	var errs error
	if err := validate.Validator().Struct(draft); err != nil {
		for path, msg := range validate.FieldErrors(err, fmt.Sprintf("new_deficiencies[%d]", row)) {
			errs = multierr.Append(errs, fieldError{Path: path, Message: msg})
		}
		if draft.TypeID == uuid.Nil {
			return nil, errs
		}
	}

	t, ok := dc.types[draft.TypeID]
	if !ok {
		return nil, multierr.Append(errs, fieldErr(row, "deficiency_type_id", "does not exist"))
	}
	if err := dc.actor.OwnsTenant(t.TenantID); err != nil {
		return nil, err
	}
	if t.DisabledAt != nil {
		errs = multierr.Append(errs, fieldErr(row, "deficiency_type_id", "is disabled"))
	}

	variant := deficiencies.VariantOf(t)
	for _, field := range deficiencies.RequiredFields(variant, draft.MaterialOther) {
		if missing(draft, field) {
			errs = multierr.Append(errs, fieldErr(row, field, "is required"))
		}
	}
	if errs != nil {
		return nil, errs
	}
	if variant.CadetScoped() && !draft.MaterialOther {
		if field, held := dc.held(variant.Relation, draft); !held {
			return nil, fieldErr(row, field, "is not issued to this cadet")
		}
	}

	b := base{typeID: t.ID, description: strings.TrimSpace(draft.Description), comment: draft.Comment}
	switch variant {
	case deficiencies.VariantCadet:
		return cadetNote{base: b, cadetID: dc.cadet.ID}, nil

	case deficiencies.VariantUniform, deficiencies.VariantUniformSelf:
		uniform, typeName, err := dc.tenantUniform(ctx, row, *draft.UniformID)
		if err != nil {
			return nil, err
		}
		b.describe(fmt.Sprintf("%s %d", typeName, uniform.Number))
		return uniformDefect{base: b, uniformID: uniform.ID}, nil

	case deficiencies.VariantCadetUniform:
		issued := dc.uniforms[*draft.UniformID]
		b.describe(fmt.Sprintf("%s %d", dc.typeNames[issued.UniformTypeID], issued.Number))
		return cadetUniform{base: b, cadetID: dc.cadet.ID, uniformID: issued.UniformID}, nil

	case deficiencies.VariantCadetMaterial:
		if !draft.MaterialOther {
			issued := dc.materials[*draft.MaterialID]
			b.describe(issued.Name)
			return cadetMaterial{base: b, cadetID: dc.cadet.ID, materialID: issued.MaterialID}, nil
		}
		material, group, err := dc.repo.FindMaterial(ctx, *draft.MaterialID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
		}
		if material == nil {
			return nil, fieldErr(row, deficiencies.FieldMaterial, "does not exist")
		}
		if err := dc.actor.OwnsTenant(group.TenantID); err != nil {
			return nil, err
		}
		if material.MaterialGroupID != *draft.MaterialGroupID {
			return nil, fieldErr(row, deficiencies.FieldMaterial, "does not belong to the material group")
		}
		b.describe(material.Name)
		return cadetMaterial{base: b, cadetID: dc.cadet.ID, materialID: material.ID}, nil
	}
	return nil, fieldErr(row, "deficiency_type_id", "has an unsupported variant")
}

func (b *base) describe(fallback string) {
	if b.description == "" {
		b.description = fallback
	}
}

func missing(draft DraftDeficiency, field deficiencies.Field) bool {
	switch field {
	case deficiencies.FieldDescription:
		return strings.TrimSpace(draft.Description) == ""
	case deficiencies.FieldUniform:
		return draft.UniformID == nil || *draft.UniformID == uuid.Nil
	case deficiencies.FieldMaterial:
		return draft.MaterialID == nil || *draft.MaterialID == uuid.Nil
	case deficiencies.FieldMaterialGroup:
		return draft.MaterialGroupID == nil || *draft.MaterialGroupID == uuid.Nil
	}
	return false
}

// held reports whether the cadet currently holds the item a cadet-scoped
// draft references, and the field naming that reference.
func (dc draftContext) held(relation enums.DeficiencyRelation, draft DraftDeficiency) (deficiencies.Field, bool) {
	switch relation {
	case enums.DeficiencyRelationUniform:
		_, ok := dc.uniforms[*draft.UniformID]
		return deficiencies.FieldUniform, ok
	case enums.DeficiencyRelationMaterial:
		_, ok := dc.materials[*draft.MaterialID]
		return deficiencies.FieldMaterial, ok
	}
	return "deficiency_type_id", false
}

// tenantUniform resolves any uniform of the tenant, issued or not.
func (dc draftContext) tenantUniform(ctx context.Context, row int, id uuid.UUID) (*models.Uniform, string, error) {
	uniform, err := dc.repo.FindUniform(ctx, id)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load uniform")
	}
	if uniform == nil {
		return nil, "", fieldErr(row, deficiencies.FieldUniform, "does not exist")
	}
	ut, err := dc.repo.FindUniformType(ctx, uniform.UniformTypeID)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load uniform type")
	}
	if ut == nil {
		return nil, "", fieldErr(row, deficiencies.FieldUniform, "does not exist")
	}
	if err := dc.actor.OwnsTenant(ut.TenantID); err != nil {
		return nil, "", err
	}
	return uniform, ut.Name, nil
}
