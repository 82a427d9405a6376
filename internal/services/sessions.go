package services

import (
	"context"
	"errors"
	"time"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const SessionIssuer = "gitrdun-backend"

type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionService issues signed session tokens backed by a server-side record,
// so logging out invalidates a token before it expires.
type SessionService interface {
	CreateSession(ctx context.Context, user *models.User, provider string) (string, *models.Session, error)
	ResolveSession(ctx context.Context, token string) (*models.Session, error)
	RevokeSession(ctx context.Context, token string) error
}

type SessionServiceImpl struct {
	sessions repositories.SessionRepository
	secret   []byte
	ttl      time.Duration
}

func NewSessionService(sessions repositories.SessionRepository, secret string, ttl time.Duration) *SessionServiceImpl {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionServiceImpl{sessions: sessions, secret: []byte(secret), ttl: ttl}
}

func (s *SessionServiceImpl) CreateSession(ctx context.Context, user *models.User, provider string) (string, *models.Session, error) {
	sid, err := uuid.NewV4()
	if err != nil {
		return "", nil, NewInternal("failed to generate session id", err)
	}
	now := time.Now()

	session := &models.Session{
		ID:        sid.String(),
		UserID:    user.ID,
		Role:      user.Role,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", nil, NewInternal("failed to store session", err)
	}

	claims := SessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    SessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, NewInternal("failed to sign session token", err)
	}
	return token, session, nil
}

func (s *SessionServiceImpl) ResolveSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewUnauthenticated("session expired or revoked")
		}
		return nil, NewInternal("failed to load session", err)
	}
	if session.UserID.String() != claims.Subject {
		return nil, NewUnauthenticated("session does not match token")
	}
	return session, nil
}

func (s *SessionServiceImpl) RevokeSession(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return NewInternal("failed to revoke session", err)
	}
	return nil
}

func (s *SessionServiceImpl) parse(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, NewUnauthenticated("missing session token")
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(SessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, NewUnauthenticated("invalid session token")
	}
	return claims, nil
}
