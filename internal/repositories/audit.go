package repositories

import (
	"context"

	"gitrdun/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *GormAuditRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	entries := []models.AuditLog{}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return entries, translate(q.Find(&entries).Error)
}
