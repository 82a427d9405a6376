package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

// AuditLog records one authorization decision taken on a mutating request.
type AuditLog struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;index"`
	Action     string    `json:"action" gorm:"not null"`
	Resource   string    `json:"resource" gorm:"not null"`
	ResourceID uuid.UUID `json:"resourceId" gorm:"type:uuid"`
	Decision   string    `json:"decision" gorm:"not null"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return assignID(&a.ID)
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &List{}, &Task{}, &AccessGrant{}, &AuditLog{}}
}
