package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	StatusInbox    = "inbox"
	StatusDoing    = "doing"
	StatusDone     = "done"
	StatusDelegate = "delegate"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	TaskStatuses   = []string{StatusInbox, StatusDoing, StatusDone, StatusDelegate}
	TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;index"`
	ListID      uuid.UUID `json:"listId" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status" gorm:"not null;default:'inbox'"`
	Priority    string    `json:"priority" gorm:"not null;default:'medium'"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = StatusInbox
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return assignID(&t.ID)
}

func IsValidStatus(status string) bool {
	return contains(TaskStatuses, status)
}

func IsValidPriority(priority string) bool {
	return contains(TaskPriorities, priority)
}

type TaskPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	ListID      *string `json:"listId"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.ListID == nil
}

// TaskFilter narrows a visible-task query. Empty fields are ignored.
type TaskFilter struct {
	Status string
	ListID string
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
