package deficiencies

import (
	"testing"

	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		variant Variant
		other   bool
		want    []Field
	}{
		{"cadet note", VariantCadet, false, []Field{FieldDescription}},
		{"uniform", VariantUniform, false, []Field{FieldUniform}},
		{"uniform self", VariantUniformSelf, false, []Field{FieldUniform}},
		{"cadet uniform", VariantCadetUniform, false, []Field{FieldUniform}},
		{"cadet material", VariantCadetMaterial, false, []Field{FieldMaterial}},
		{"cadet material other", VariantCadetMaterial, true, []Field{FieldMaterialGroup, FieldMaterial}},
		{"invalid", Variant{Dependent: enums.DeficiencyDependentUniform, Relation: enums.DeficiencyRelationMaterial}, false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RequiredFields(tc.variant, tc.other))
		})
	}
}

func TestVariantOf(t *testing.T) {
	rel := enums.DeficiencyRelationMaterial
	v := VariantOf(models.DeficiencyType{Dependent: enums.DeficiencyDependentCadet, Relation: &rel})
	assert.Equal(t, VariantCadetMaterial, v)
	assert.True(t, v.Valid())
	assert.True(t, v.CadetScoped())
	assert.Equal(t, &rel, v.RelationPtr())

	plain := VariantOf(models.DeficiencyType{Dependent: enums.DeficiencyDependentCadet})
	assert.Equal(t, VariantCadet, plain)
	assert.False(t, plain.CadetScoped())
	assert.Nil(t, plain.RelationPtr())

	assert.False(t, VariantUniformSelf.CadetScoped())
}
