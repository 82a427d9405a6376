package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Session is the server-side record behind a session cookie. It lives in redis, not SQL.
type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Role      string    `json:"role"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
