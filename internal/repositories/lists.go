package repositories

import (
	"context"

	"gitrdun/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ListRepository interface {
	Create(ctx context.Context, list *models.List) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.List, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.List, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.List, error)
	UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, updates map[string]interface{}) (*models.List, error)
	DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error
}

type GormListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *GormListRepository {
	return &GormListRepository{db: db}
}

func (r *GormListRepository) Create(ctx context.Context, list *models.List) error {
	return translate(r.db.WithContext(ctx).Create(list).Error)
}

func (r *GormListRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.List, error) {
	var list models.List
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		return nil, translate(err)
	}
	return &list, nil
}

func (r *GormListRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.List, error) {
	lists := []models.List{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at asc").
		Find(&lists).Error
	return lists, translate(err)
}

func (r *GormListRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.List, error) {
	lists := []models.List{}
	if len(ids) == 0 {
		return lists, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at asc").
		Find(&lists).Error
	return lists, translate(err)
}

// UpdateOwned applies updates only when both id and owner match.
func (r *GormListRepository) UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, updates map[string]interface{}) (*models.List, error) {
	result := r.db.WithContext(ctx).
		Model(&models.List{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormListRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.List{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
