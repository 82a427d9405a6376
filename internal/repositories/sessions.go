package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gitrdun/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type SessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionRepository{client: client, prefix: "session:", ttl: ttl}
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.key(session.ID), payload, ttl).Err()
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisSessionRepository) key(id string) string {
	return r.prefix + id
}
