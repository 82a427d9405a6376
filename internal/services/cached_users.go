package services

import (
	"context"
	"time"

	"gitrdun/backend/internal/cache"
	"gitrdun/backend/internal/models"

	"go.uber.org/zap"
)

// CachedUserService fronts profile reads with the multi-level cache. Writes
// go through to the wrapped service and then drop the cached profile.
type CachedUserService struct {
	UserService
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedUserService(inner UserService, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedUserService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserService{UserService: inner, cache: c, ttl: ttl, logger: logger}
}

func (s *CachedUserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	key := userCacheKey(userID)

	var cached models.User
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	user, err := s.UserService.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, user, s.ttl); err != nil {
		s.logger.Warn("failed to cache user", zap.String("user_id", userID), zap.Error(err))
	}
	return user, nil
}

func (s *CachedUserService) UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	user, err := s.UserService.UpdateUser(ctx, userID, patch)
	s.invalidate(ctx, userID)
	return user, err
}

func (s *CachedUserService) DeleteUser(ctx context.Context, userID string) error {
	err := s.UserService.DeleteUser(ctx, userID)
	s.invalidate(ctx, userID)
	return err
}

func (s *CachedUserService) UpsertExternalUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	user, err := s.UserService.UpsertExternalUser(ctx, identity)
	if err == nil {
		s.invalidate(ctx, user.ID.String())
	}
	return user, err
}

func (s *CachedUserService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userCacheKey(userID)); err != nil {
		s.logger.Error("failed to invalidate cached user", zap.String("user_id", userID), zap.Error(err))
	}
}

func userCacheKey(userID string) string {
	return "user:" + userID
}
