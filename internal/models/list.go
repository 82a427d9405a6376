package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type List struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (l *List) BeforeCreate(tx *gorm.DB) error {
	return assignID(&l.ID)
}

func (l *List) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

type ListPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p ListPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	generated, err := uuid.NewV4()
	if err != nil {
		return err
	}
	*id = generated
	return nil
}
