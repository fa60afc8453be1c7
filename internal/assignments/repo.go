package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/repo"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for the uniform and material ledgers.
// Find* methods return (nil, nil) when nothing matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindCadet(ctx context.Context, id uuid.UUID) (*models.Cadet, error)
	FindUniformType(ctx context.Context, id uuid.UUID) (*models.UniformType, error)
	FindUniform(ctx context.Context, id uuid.UUID) (*models.Uniform, error)
	FindUniformByNumber(ctx context.Context, uniformTypeID uuid.UUID, number int) (*models.Uniform, error)
	FindGeneration(ctx context.Context, id uuid.UUID) (*models.UniformGeneration, error)
	FindSize(ctx context.Context, id uuid.UUID) (*models.UniformSize, error)
	CreateUniform(ctx context.Context, uniform *models.Uniform) error

	LockOpenIssuance(ctx context.Context, uniformID uuid.UUID) (*models.UniformIssuance, error)
	CreateIssuance(ctx context.Context, issuance *models.UniformIssuance) error
	CloseIssuance(ctx context.Context, issuanceID uuid.UUID, at time.Time) error
	ListOpenUniforms(ctx context.Context, cadetID uuid.UUID) ([]IssuedUniform, error)
	ListUniformTypes(ctx context.Context, tenantID uuid.UUID) ([]models.UniformType, error)
	IssuedCounts(ctx context.Context, tenantID, cadetID uuid.UUID) ([]TypeCount, error)
	ListHistory(ctx context.Context, uniformID uuid.UUID, limit int, cursor *pagination.Cursor) ([]HistoryEntry, error)

	FindMaterial(ctx context.Context, id uuid.UUID) (*models.Material, *models.MaterialGroup, error)
	LockOpenMaterialIssuance(ctx context.Context, materialID, cadetID uuid.UUID) (*models.MaterialIssuance, error)
	CreateMaterialIssuance(ctx context.Context, issuance *models.MaterialIssuance) error
	CloseMaterialIssuance(ctx context.Context, issuanceID uuid.UUID, at time.Time) error
	ListOpenMaterials(ctx context.Context, cadetID uuid.UUID) ([]IssuedMaterial, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an assignments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func first[T any](query *gorm.DB) (*T, error) {
	var out T
	if err := query.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *repository) FindCadet(ctx context.Context, id uuid.UUID) (*models.Cadet, error) {
	return first[models.Cadet](r.DB(ctx).Where("id = ? AND deleted_at IS NULL", id))
}

func (r *repository) FindUniformType(ctx context.Context, id uuid.UUID) (*models.UniformType, error) {
	return first[models.UniformType](r.DB(ctx).Where("id = ? AND deleted_at IS NULL", id))
}

func (r *repository) FindUniform(ctx context.Context, id uuid.UUID) (*models.Uniform, error) {
	return first[models.Uniform](r.DB(ctx).Where("id = ? AND deleted_at IS NULL", id))
}

func (r *repository) FindUniformByNumber(ctx context.Context, uniformTypeID uuid.UUID, number int) (*models.Uniform, error) {
	return first[models.Uniform](r.DB(ctx).
		Where("uniform_type_id = ? AND number = ? AND deleted_at IS NULL", uniformTypeID, number))
}

func (r *repository) FindGeneration(ctx context.Context, id uuid.UUID) (*models.UniformGeneration, error) {
	return first[models.UniformGeneration](r.DB(ctx).Where("id = ?", id))
}

func (r *repository) FindSize(ctx context.Context, id uuid.UUID) (*models.UniformSize, error) {
	return first[models.UniformSize](r.DB(ctx).Where("id = ?", id))
}

// CreateUniform inserts inside a savepoint so losing the race on
// ux_uniforms_type_number leaves the transaction usable for a re-read.
func (r *repository) CreateUniform(ctx context.Context, uniform *models.Uniform) error {
	return r.insertGuarded(ctx, "uniform", uniform)
}

func (r *repository) LockOpenIssuance(ctx context.Context, uniformID uuid.UUID) (*models.UniformIssuance, error) {
	return first[models.UniformIssuance](r.ForUpdate(ctx).
		Where("uniform_id = ? AND returned_at IS NULL", uniformID))
}

// CreateIssuance inserts inside a savepoint so a lost race on the open
// issuance index leaves the surrounding transaction usable for the follow-up
// holder lookup.
func (r *repository) CreateIssuance(ctx context.Context, issuance *models.UniformIssuance) error {
	return r.insertGuarded(ctx, "uniform_issuance", issuance)
}

func (r *repository) insertGuarded(ctx context.Context, savepoint string, value any) error {
	db := r.DB(ctx)
	if err := db.SavePoint(savepoint).Error; err != nil {
		return err
	}
	if err := db.Create(value).Error; err != nil {
		if rbErr := db.RollbackTo(savepoint).Error; rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}

func (r *repository) CloseIssuance(ctx context.Context, issuanceID uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.UniformIssuance{}).
		Where("id = ? AND returned_at IS NULL", issuanceID).
		Update("returned_at", at).Error
}

func (r *repository) ListOpenUniforms(ctx context.Context, cadetID uuid.UUID) ([]IssuedUniform, error) {
	var rows []IssuedUniform
	err := r.DB(ctx).
		Table("uniform_issuances AS ui").
		Select(`u.id AS uniform_id, u.uniform_type_id, u.number, u.active, u.generation_id, u.size_id,
			ui.id AS issuance_id, ui.issued_at`).
		Joins("JOIN uniforms AS u ON u.id = ui.uniform_id AND u.deleted_at IS NULL").
		Where("ui.cadet_id = ? AND ui.returned_at IS NULL", cadetID).
		Order("u.number ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListUniformTypes(ctx context.Context, tenantID uuid.UUID) ([]models.UniformType, error) {
	var types []models.UniformType
	err := r.DB(ctx).
		Scopes(repo.TenantScope(tenantID), repo.NotDeleted("uniform_types")).
		Order("position ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) IssuedCounts(ctx context.Context, tenantID, cadetID uuid.UUID) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.DB(ctx).
		Table("uniform_types AS t").
		Select(`t.id AS uniform_type_id, t.name, t.issued_default AS required,
			COUNT(ui.id) AS issued`).
		Joins(`LEFT JOIN uniforms AS u ON u.uniform_type_id = t.id AND u.deleted_at IS NULL`).
		Joins(`LEFT JOIN uniform_issuances AS ui ON ui.uniform_id = u.id AND ui.returned_at IS NULL AND ui.cadet_id = ?`, cadetID).
		Where("t.tenant_id = ? AND t.deleted_at IS NULL", tenantID).
		Group("t.id, t.name, t.issued_default, t.position").
		Order("t.position ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListHistory(ctx context.Context, uniformID uuid.UUID, limit int, cursor *pagination.Cursor) ([]HistoryEntry, error) {
	query := r.DB(ctx).
		Table("uniform_issuances AS ui").
		Select("ui.id, ui.uniform_id, ui.cadet_id, ui.issued_at, ui.returned_at, c.first_name, c.last_name").
		Joins("JOIN cadets AS c ON c.id = ui.cadet_id").
		Where("ui.uniform_id = ?", uniformID)
	if cursor != nil {
		query = query.Where("(ui.issued_at < ?) OR (ui.issued_at = ? AND ui.id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []HistoryEntry
	err := query.Order("ui.issued_at DESC, ui.id DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}

func (r *repository) FindMaterial(ctx context.Context, id uuid.UUID) (*models.Material, *models.MaterialGroup, error) {
	material, err := first[models.Material](r.DB(ctx).Where("id = ? AND deleted_at IS NULL", id))
	if err != nil || material == nil {
		return nil, nil, err
	}
	group, err := first[models.MaterialGroup](r.DB(ctx).Where("id = ? AND deleted_at IS NULL", material.MaterialGroupID))
	if err != nil || group == nil {
		return nil, nil, err
	}
	return material, group, nil
}

func (r *repository) LockOpenMaterialIssuance(ctx context.Context, materialID, cadetID uuid.UUID) (*models.MaterialIssuance, error) {
	return first[models.MaterialIssuance](r.ForUpdate(ctx).
		Where("material_id = ? AND cadet_id = ? AND returned_at IS NULL", materialID, cadetID))
}

func (r *repository) CreateMaterialIssuance(ctx context.Context, issuance *models.MaterialIssuance) error {
	return r.insertGuarded(ctx, "material_issuance", issuance)
}

func (r *repository) CloseMaterialIssuance(ctx context.Context, issuanceID uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.MaterialIssuance{}).
		Where("id = ? AND returned_at IS NULL", issuanceID).
		Update("returned_at", at).Error
}

func (r *repository) ListOpenMaterials(ctx context.Context, cadetID uuid.UUID) ([]IssuedMaterial, error) {
	var rows []IssuedMaterial
	err := r.DB(ctx).
		Table("material_issuances AS mi").
		Select(`m.id AS material_id, m.material_group_id, m.name, g.name AS group_name,
			mi.quantity, mi.issued_at`).
		Joins("JOIN materials AS m ON m.id = mi.material_id").
		Joins("JOIN material_groups AS g ON g.id = m.material_group_id").
		Where("mi.cadet_id = ? AND mi.returned_at IS NULL", cadetID).
		Order("g.position ASC, m.position ASC").
		Scan(&rows).Error
	return rows, err
}
