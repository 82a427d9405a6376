package repositories

import (
	"context"

	"gitrdun/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskQuery selects tasks owned by OwnerID or living in one of ListIDs.
type TaskQuery struct {
	OwnerID uuid.UUID
	ListIDs []uuid.UUID
	Status  string
	ListID  *uuid.UUID
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	FindVisible(ctx context.Context, query TaskQuery) ([]models.Task, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByList(ctx context.Context, listID uuid.UUID) (int64, error)
}

type GormTaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

func (r *GormTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// FindVisible returns each matching task once, oldest first.
func (r *GormTaskRepository) FindVisible(ctx context.Context, query TaskQuery) ([]models.Task, error) {
	tx := r.db.WithContext(ctx)

	scope := tx.Where("owner_id = ?", query.OwnerID)
	if len(query.ListIDs) > 0 {
		scope = scope.Or("list_id IN ?", query.ListIDs)
	}

	q := tx.Model(&models.Task{}).Where(scope)
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.ListID != nil {
		q = q.Where("list_id = ?", *query.ListID)
	}

	tasks := []models.Task{}
	err := q.Order("created_at asc").Find(&tasks).Error
	return tasks, translate(err)
}

func (r *GormTaskRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Task, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTaskRepository) CountByList(ctx context.Context, listID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("list_id = ?", listID).Count(&count).Error
	return count, translate(err)
}
