package assignments

import (
	"context"

	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssueMaterial records that the cadet holds quantity units of a material.
// Re-issuing the same quantity is a no-op; a different quantity closes the
// open record and opens a new one so the history keeps both.
func (s *service) IssueMaterial(ctx context.Context, actor auth.Actor, input MaterialIssueInput) (*models.MaterialIssuance, error) {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}

	var issued *models.MaterialIssuance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cadet, err := s.loadCadet(ctx, repo, actor, input.CadetID)
		if err != nil {
			return err
		}
		material, err := s.loadMaterial(ctx, repo, actor, input.MaterialID)
		if err != nil {
			return err
		}

		open, err := repo.LockOpenMaterialIssuance(ctx, material.ID, cadet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open material issuance")
		}
		if open != nil {
			if open.Quantity == input.Quantity {
				issued = open
				return nil
			}
			if err := repo.CloseMaterialIssuance(ctx, open.ID, s.now()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close material issuance")
			}
		}

		record := &models.MaterialIssuance{
			ID:         uuid.New(),
			MaterialID: material.ID,
			CadetID:    cadet.ID,
			Quantity:   input.Quantity,
			IssuedAt:   s.now(),
		}
		if err := repo.CreateMaterialIssuance(ctx, record); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "material issuance changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create material issuance")
		}
		issued = record
		return nil
	})
	s.record("issue_material", err)
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *service) ReturnMaterial(ctx context.Context, actor auth.Actor, cadetID, materialID uuid.UUID) error {
	if err := actor.Require(enums.UserRoleInspector); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cadet, err := s.loadCadet(ctx, repo, actor, cadetID)
		if err != nil {
			return err
		}
		material, err := s.loadMaterial(ctx, repo, actor, materialID)
		if err != nil {
			return err
		}
		open, err := repo.LockOpenMaterialIssuance(ctx, material.ID, cadet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open material issuance")
		}
		if open == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "material is not issued").
				WithDetails(map[string]string{"material_id": "is not issued to this cadet"})
		}
		if err := repo.CloseMaterialIssuance(ctx, open.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close material issuance")
		}
		return nil
	})
	s.record("return_material", err)
	return err
}

func (s *service) loadMaterial(ctx context.Context, repo Repository, actor auth.Actor, materialID uuid.UUID) (*models.Material, error) {
	if materialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required").
			WithDetails(map[string]string{"material_id": "is required"})
	}
	material, group, err := repo.FindMaterial(ctx, materialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	if material == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown material").
			WithDetails(map[string]string{"material_id": "does not exist"})
	}
	if err := actor.OwnsTenant(group.TenantID); err != nil {
		return nil, err
	}
	return material, nil
}
