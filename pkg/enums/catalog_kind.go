package enums

import "fmt"

// CatalogKind names an ordered configuration family.
type CatalogKind string

const (
	CatalogKindSize          CatalogKind = "size"
	CatalogKindUniformType   CatalogKind = "uniform_type"
	CatalogKindGeneration    CatalogKind = "generation"
	CatalogKindMaterialGroup CatalogKind = "material_group"
	CatalogKindMaterial      CatalogKind = "material"
)

var validCatalogKinds = []CatalogKind{
	CatalogKindSize,
	CatalogKindUniformType,
	CatalogKindGeneration,
	CatalogKindMaterialGroup,
	CatalogKindMaterial,
}

// String implements fmt.Stringer.
func (k CatalogKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CatalogKind.
func (k CatalogKind) IsValid() bool {
	for _, candidate := range validCatalogKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// HasParent reports whether the kind is scoped under another catalog row.
func (k CatalogKind) HasParent() bool {
	return k == CatalogKindGeneration || k == CatalogKindMaterial
}

// ParseCatalogKind converts raw input into a CatalogKind.
func ParseCatalogKind(value string) (CatalogKind, error) {
	for _, candidate := range validCatalogKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog kind %q", value)
}
