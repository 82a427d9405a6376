package repositories

import (
	"context"

	"gitrdun/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AccessRepository interface {
	Create(ctx context.Context, grant *models.AccessGrant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccessGrant, error)
	FindByGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.AccessGrant, error)
	ListIDsForGrantee(ctx context.Context, granteeID uuid.UUID) ([]uuid.UUID, error)
	Exists(ctx context.Context, granteeID, listID uuid.UUID) (bool, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.AccessGrant, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByList(ctx context.Context, listID uuid.UUID) (int64, error)
}

type GormAccessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *GormAccessRepository {
	return &GormAccessRepository{db: db}
}

// Create returns ErrDuplicate when the (grantee, list) index already holds a row.
func (r *GormAccessRepository) Create(ctx context.Context, grant *models.AccessGrant) error {
	return translate(r.db.WithContext(ctx).Create(grant).Error)
}

func (r *GormAccessRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessGrant, error) {
	var grant models.AccessGrant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&grant).Error; err != nil {
		return nil, translate(err)
	}
	return &grant, nil
}

func (r *GormAccessRepository) FindByGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.AccessGrant, error) {
	grants := []models.AccessGrant{}
	err := r.db.WithContext(ctx).
		Where("grantee_id = ?", granteeID).
		Order("created_at asc").
		Find(&grants).Error
	return grants, translate(err)
}

func (r *GormAccessRepository) ListIDsForGrantee(ctx context.Context, granteeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.AccessGrant{}).
		Where("grantee_id = ?", granteeID).
		Order("created_at asc").
		Pluck("list_id", &ids).Error
	return ids, translate(err)
}

func (r *GormAccessRepository) Exists(ctx context.Context, granteeID, listID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessGrant{}).
		Where("grantee_id = ? AND list_id = ?", granteeID, listID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *GormAccessRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.AccessGrant, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AccessGrant{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormAccessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AccessGrant{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormAccessRepository) CountByList(ctx context.Context, listID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccessGrant{}).Where("list_id = ?", listID).Count(&count).Error
	return count, translate(err)
}
