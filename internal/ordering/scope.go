package ordering

import (
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/google/uuid"
)

// kindDef describes where the members of one catalog kind live.
type kindDef struct {
	table       string
	scopeColumn string
	softDelete  bool
	// parentTable is set for kinds scoped under another catalog row; the
	// parent carries the tenant_id.
	parentTable      string
	parentSoftDelete bool
}

var kinds = map[enums.CatalogKind]kindDef{
	enums.CatalogKindSize: {
		table:       "uniform_sizes",
		scopeColumn: "tenant_id",
	},
	enums.CatalogKindUniformType: {
		table:       "uniform_types",
		scopeColumn: "tenant_id",
		softDelete:  true,
	},
	enums.CatalogKindGeneration: {
		table:       "uniform_generations",
		scopeColumn: "uniform_type_id",
		parentTable: "uniform_types",

		parentSoftDelete: true,
	},
	enums.CatalogKindMaterialGroup: {
		table:       "material_groups",
		scopeColumn: "tenant_id",
		softDelete:  true,
	},
	enums.CatalogKindMaterial: {
		table:       "materials",
		scopeColumn: "material_group_id",
		softDelete:  true,
		parentTable: "material_groups",

		parentSoftDelete: true,
	},
}

// Scope identifies one position sequence. ParentID is required for kinds
// nested under another catalog row and ignored otherwise.
type Scope struct {
	Kind     enums.CatalogKind
	TenantID uuid.UUID
	ParentID uuid.UUID
}

// Member is one ranked row of a scope.
type Member struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
}

func (s Scope) value() uuid.UUID {
	if s.Kind.HasParent() {
		return s.ParentID
	}
	return s.TenantID
}
