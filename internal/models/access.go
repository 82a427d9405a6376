package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	GrantRoleRead   = "read"
	GrantRoleViewer = "viewer"
	GrantRoleEditor = "editor"
)

var GrantRoles = []string{GrantRoleRead, GrantRoleViewer, GrantRoleEditor}

// AccessGrant gives a non-owner a role on one list. The composite unique
// index allows at most one grant per (grantee, list).
type AccessGrant struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	GranteeID uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_access_grantee_list"`
	ListID    uuid.UUID `json:"listId" gorm:"type:uuid;not null;uniqueIndex:idx_access_grantee_list;index"`
	Role      string    `json:"role" gorm:"not null;default:'read'"`
	GrantedBy uuid.UUID `json:"grantedBy" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AccessGrant) TableName() string {
	return "access_grants"
}

func (g *AccessGrant) BeforeCreate(tx *gorm.DB) error {
	if g.Role == "" {
		g.Role = GrantRoleRead
	}
	return assignID(&g.ID)
}

func IsValidGrantRole(role string) bool {
	return contains(GrantRoles, role)
}
