package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/internal/ordering"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/angelmondragon/quartermaster-backend/pkg/validate"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Taxonomy is the YAML document loaded by the seed command.
type Taxonomy struct {
	Sizes           []string             `yaml:"sizes"`
	UniformTypes    []UniformTypeSeed    `yaml:"uniform_types"`
	MaterialGroups  []MaterialGroupSeed  `yaml:"material_groups"`
	DeficiencyTypes []DeficiencyTypeSeed `yaml:"deficiency_types"`
}

type UniformTypeSeed struct {
	Name             string           `yaml:"name"`
	Acronym          string           `yaml:"acronym"`
	IssuedDefault    *int             `yaml:"issued_default"`
	UsingGenerations bool             `yaml:"using_generations"`
	UsingSizes       bool             `yaml:"using_sizes"`
	Generations      []GenerationSeed `yaml:"generations"`
}

type GenerationSeed struct {
	Name     string `yaml:"name"`
	Outdated bool   `yaml:"outdated"`
}

type MaterialGroupSeed struct {
	Name             string         `yaml:"name"`
	IssuedDefault    *int           `yaml:"issued_default"`
	MultitypeAllowed bool           `yaml:"multitype_allowed"`
	Materials        []MaterialSeed `yaml:"materials"`
}

type MaterialSeed struct {
	Name           string `yaml:"name"`
	TargetQuantity int    `yaml:"target_quantity"`
	ActualQuantity int    `yaml:"actual_quantity"`
}

type DeficiencyTypeSeed struct {
	Name      string `yaml:"name"`
	Dependent string `yaml:"dependent"`
	Relation  string `yaml:"relation"`
}

// SeedResult counts the rows a seed created.
type SeedResult struct {
	Sizes           int `json:"sizes"`
	UniformTypes    int `json:"uniform_types"`
	Generations     int `json:"generations"`
	MaterialGroups  int `json:"material_groups"`
	Materials       int `json:"materials"`
	DeficiencyTypes int `json:"deficiency_types"`
}

// LoadTaxonomy decodes a taxonomy document, rejecting unknown keys.
func LoadTaxonomy(r io.Reader) (Taxonomy, error) {
	var tax Taxonomy
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tax); err != nil {
		if errors.Is(err, io.EOF) {
			return tax, nil
		}
		return Taxonomy{}, fmt.Errorf("decode taxonomy: %w", err)
	}
	return tax, nil
}

// Seeder appends a taxonomy to a tenant's catalog through the ordering
// manager, in one transaction.
type Seeder struct {
	tx           txRunner
	catalog      *service
	deficiencies deficiencies.Repository
}

func NewSeeder(tx txRunner, manager *ordering.Manager, defRepo deficiencies.Repository) (*Seeder, error) {
	if defRepo == nil {
		return nil, fmt.Errorf("deficiencies repository required")
	}
	svc, err := NewService(tx, manager)
	if err != nil {
		return nil, err
	}
	return &Seeder{tx: tx, catalog: svc.(*service), deficiencies: defRepo}, nil
}

func (s *Seeder) Apply(ctx context.Context, actor auth.Actor, tax Taxonomy) (SeedResult, error) {
	var result SeedResult
	if err := actor.Require(enums.UserRoleAdmin); err != nil {
		return result, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		add := func(input CreateInput) (*ordering.Member, error) {
			if err := validate.Struct(input); err != nil {
				return nil, err
			}
			return s.catalog.create(ctx, tx, actor, input)
		}

		for _, name := range tax.Sizes {
			if _, err := add(CreateInput{Kind: enums.CatalogKindSize, Name: name}); err != nil {
				return fmt.Errorf("size %q: %w", name, err)
			}
			result.Sizes++
		}
		for _, ut := range tax.UniformTypes {
			parent, err := add(CreateInput{
				Kind:             enums.CatalogKindUniformType,
				Name:             ut.Name,
				Acronym:          ut.Acronym,
				IssuedDefault:    ut.IssuedDefault,
				UsingGenerations: ut.UsingGenerations,
				UsingSizes:       ut.UsingSizes,
			})
			if err != nil {
				return fmt.Errorf("uniform type %q: %w", ut.Name, err)
			}
			result.UniformTypes++
			for _, gen := range ut.Generations {
				if _, err := add(CreateInput{Kind: enums.CatalogKindGeneration, ParentID: parent.ID, Name: gen.Name, Outdated: gen.Outdated}); err != nil {
					return fmt.Errorf("generation %q of %q: %w", gen.Name, ut.Name, err)
				}
				result.Generations++
			}
		}
		for _, mg := range tax.MaterialGroups {
			parent, err := add(CreateInput{
				Kind:             enums.CatalogKindMaterialGroup,
				Name:             mg.Name,
				IssuedDefault:    mg.IssuedDefault,
				MultitypeAllowed: mg.MultitypeAllowed,
			})
			if err != nil {
				return fmt.Errorf("material group %q: %w", mg.Name, err)
			}
			result.MaterialGroups++
			for _, m := range mg.Materials {
				if _, err := add(CreateInput{
					Kind:           enums.CatalogKindMaterial,
					ParentID:       parent.ID,
					Name:           m.Name,
					TargetQuantity: m.TargetQuantity,
					ActualQuantity: m.ActualQuantity,
				}); err != nil {
					return fmt.Errorf("material %q of %q: %w", m.Name, mg.Name, err)
				}
				result.Materials++
			}
		}

		defRepo := s.deficiencies.WithTx(tx)
		for _, dt := range tax.DeficiencyTypes {
			variant := deficiencies.Variant{
				Dependent: enums.DeficiencyDependent(dt.Dependent),
				Relation:  enums.DeficiencyRelation(dt.Relation),
			}
			if !variant.Valid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("deficiency type %q: unsupported variant %s/%s", dt.Name, dt.Dependent, dt.Relation))
			}
			if err := defRepo.CreateType(ctx, &models.DeficiencyType{
				ID:        uuid.New(),
				TenantID:  actor.TenantID,
				Name:      dt.Name,
				Dependent: variant.Dependent,
				Relation:  variant.RelationPtr(),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("create deficiency type %q", dt.Name))
			}
			result.DeficiencyTypes++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
