package deficiencies

import (
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
)

// Variant is the (dependent, relation) pair of a deficiency type. An empty
// Relation stands for "no relation".
type Variant struct {
	Dependent enums.DeficiencyDependent
	Relation  enums.DeficiencyRelation
}

// Field names a draft attribute that a variant may require.
type Field string

const (
	FieldDescription   Field = "description"
	FieldUniform       Field = "uniform_id"
	FieldMaterial      Field = "material_id"
	FieldMaterialGroup Field = "material_group_id"
)

var (
	VariantCadet         = Variant{Dependent: enums.DeficiencyDependentCadet}
	VariantCadetUniform  = Variant{Dependent: enums.DeficiencyDependentCadet, Relation: enums.DeficiencyRelationUniform}
	VariantCadetMaterial = Variant{Dependent: enums.DeficiencyDependentCadet, Relation: enums.DeficiencyRelationMaterial}
	VariantUniform       = Variant{Dependent: enums.DeficiencyDependentUniform}
	VariantUniformSelf   = Variant{Dependent: enums.DeficiencyDependentUniform, Relation: enums.DeficiencyRelationUniform}
)

var requiredFields = map[Variant][]Field{
	VariantCadet:         {FieldDescription},
	VariantUniform:       {FieldUniform},
	VariantUniformSelf:   {FieldUniform},
	VariantCadetUniform:  {FieldUniform},
	VariantCadetMaterial: {FieldMaterial},
}

// VariantOf returns the variant declared by a deficiency type.
func VariantOf(t models.DeficiencyType) Variant {
	v := Variant{Dependent: t.Dependent}
	if t.Relation != nil {
		v.Relation = *t.Relation
	}
	return v
}

// Valid reports whether v is one of the supported combinations.
func (v Variant) Valid() bool {
	_, ok := requiredFields[v]
	return ok
}

// CadetScoped reports whether references must be issued to the inspected cadet.
func (v Variant) CadetScoped() bool {
	return v.Dependent == enums.DeficiencyDependentCadet && v.Relation != ""
}

// RelationPtr is the nullable relation as stored on deficiency_types.
func (v Variant) RelationPtr() *enums.DeficiencyRelation {
	if v.Relation == "" {
		return nil
	}
	rel := v.Relation
	return &rel
}

// RequiredFields lists the draft fields a variant needs. materialOther is the
// "other" sentinel of cadet/material drafts, which swaps the issued material
// for an explicit group and material pick.
func RequiredFields(v Variant, materialOther bool) []Field {
	fields, ok := requiredFields[v]
	if !ok {
		return nil
	}
	if v == VariantCadetMaterial && materialOther {
		return []Field{FieldMaterialGroup, FieldMaterial}
	}
	return append([]Field(nil), fields...)
}
