package deficiencies

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/quartermaster-backend/internal/repo"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists deficiency types, deficiencies and their join rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateType(ctx context.Context, t *models.DeficiencyType) error
	FindType(ctx context.Context, id uuid.UUID) (*models.DeficiencyType, error)
	ListTypes(ctx context.Context, tenantID uuid.UUID, includeDisabled bool) ([]models.DeficiencyType, error)
	CountByType(ctx context.Context, typeID uuid.UUID) (int64, error)
	DeleteType(ctx context.Context, id uuid.UUID) error
	DisableType(ctx context.Context, id uuid.UUID, at time.Time) error

	Create(ctx context.Context, d *models.Deficiency, cadetLink *models.CadetDeficiency, uniformLink *models.UniformDeficiency) error
	ListOpenForCadet(ctx context.Context, cadetID uuid.UUID) ([]OpenDeficiency, error)
	Resolve(ctx context.Context, ids []uuid.UUID, inspectionID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a deficiencies repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) CreateType(ctx context.Context, t *models.DeficiencyType) error {
	return r.DB(ctx).Create(t).Error
}

func (r *repository) FindType(ctx context.Context, id uuid.UUID) (*models.DeficiencyType, error) {
	var t models.DeficiencyType
	if err := r.DB(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListTypes(ctx context.Context, tenantID uuid.UUID, includeDisabled bool) ([]models.DeficiencyType, error) {
	query := r.DB(ctx).Scopes(repo.TenantScope(tenantID))
	if !includeDisabled {
		query = query.Where("disabled_at IS NULL")
	}
	var types []models.DeficiencyType
	err := query.Order("name ASC, id ASC").Find(&types).Error
	return types, err
}

func (r *repository) CountByType(ctx context.Context, typeID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Deficiency{}).Where("deficiency_type_id = ?", typeID).Count(&count).Error
	return count, err
}

func (r *repository) DeleteType(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.DeficiencyType{}).Error
}

func (r *repository) DisableType(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.DeficiencyType{}).
		Where("id = ? AND disabled_at IS NULL", id).
		Update("disabled_at", at).Error
}

// Create inserts the deficiency and exactly one join row.
func (r *repository) Create(ctx context.Context, d *models.Deficiency, cadetLink *models.CadetDeficiency, uniformLink *models.UniformDeficiency) error {
	if (cadetLink == nil) == (uniformLink == nil) {
		return errors.New("deficiency needs exactly one link")
	}
	db := r.DB(ctx)
	if err := db.Create(d).Error; err != nil {
		return err
	}
	if cadetLink != nil {
		cadetLink.DeficiencyID = d.ID
		return db.Create(cadetLink).Error
	}
	uniformLink.DeficiencyID = d.ID
	return db.Create(uniformLink).Error
}

// ListOpenForCadet returns unresolved deficiencies attached to the cadet plus
// those attached to uniforms the cadet currently holds.
func (r *repository) ListOpenForCadet(ctx context.Context, cadetID uuid.UUID) ([]OpenDeficiency, error) {
	var rows []openRow
	err := r.DB(ctx).
		Table("deficiencies AS d").
		Select(`d.id, d.deficiency_type_id, t.name AS type_name, t.dependent, t.relation,
			d.description, d.comment, cd.uniform_id AS cadet_uniform_id, ud.uniform_id AS subject_uniform_id,
			cd.material_id, d.inspection_created_id, d.created_at`).
		Joins("JOIN deficiency_types AS t ON t.id = d.deficiency_type_id").
		Joins("LEFT JOIN cadet_deficiencies AS cd ON cd.deficiency_id = d.id").
		Joins("LEFT JOIN uniform_deficiencies AS ud ON ud.deficiency_id = d.id").
		Where("d.resolved_at IS NULL").
		Where(`cd.cadet_id = ? OR ud.uniform_id IN (
			SELECT ui.uniform_id FROM uniform_issuances AS ui WHERE ui.cadet_id = ? AND ui.returned_at IS NULL)`, cadetID, cadetID).
		Order("d.created_at ASC, d.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]OpenDeficiency, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toOpen())
	}
	return out, nil
}

func (r *repository) Resolve(ctx context.Context, ids []uuid.UUID, inspectionID uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Model(&models.Deficiency{}).
		Where("id IN ? AND resolved_at IS NULL", ids).
		Updates(map[string]any{"resolved_at": at, "inspection_resolved_id": inspectionID})
	return res.RowsAffected, res.Error
}
