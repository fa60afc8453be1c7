package cadets

import (
	"context"
	"errors"

	"github.com/angelmondragon/quartermaster-backend/internal/repo"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists cadets. Find returns (nil, nil) when nothing matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cadet *models.Cadet) error
	Find(ctx context.Context, id uuid.UUID) (*models.Cadet, error)
	List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]models.Cadet, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a cadets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, cadet *models.Cadet) error {
	return r.DB(ctx).Create(cadet).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Cadet, error) {
	var cadet models.Cadet
	err := r.DB(ctx).Scopes(repo.NotDeleted("cadets")).Where("id = ?", id).Take(&cadet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cadet, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]models.Cadet, error) {
	query := r.DB(ctx).Scopes(repo.TenantScope(tenantID), repo.NotDeleted("cadets"))
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var out []models.Cadet
	if err := query.Order("last_name ASC, first_name ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.DB(ctx).Model(&models.Cadet{}).Where("id = ?", id).Update("active", active).Error
}
