package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	GoogleID    *string    `json:"-" gorm:"uniqueIndex"`
	Name        string     `json:"name" gorm:"not null"`
	Email       string     `json:"email" gorm:"uniqueIndex;not null"`
	Password    string     `json:"-"`
	Role        string     `json:"role" gorm:"not null;default:'user'"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	return assignID(&u.ID)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func IsValidUserRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserPatch carries the mutable profile fields of an admin update.
type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.Password == nil
}
