package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// ExternalIdentity is the profile an identity provider hands back after login.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	UpsertExternalUser(ctx context.Context, identity ExternalIdentity) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type UserServiceImpl struct {
	users      repositories.UserRepository
	validate   *validator.Validate
	bcryptCost int
}

func NewUserService(users repositories.UserRepository, bcryptCost int) *UserServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserServiceImpl{users: users, validate: validator.New(), bcryptCost: bcryptCost}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	name, err := requiredName(input.Name)
	if err != nil {
		return nil, err
	}
	email, err := s.normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidUserRole(role) {
		return nil, NewValidationError(`role must be either "user" or "admin"`)
	}

	user := &models.User{Name: name, Email: email, Role: role}
	if input.Password != "" {
		if user.Password, err = s.hashPassword(input.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflict("email already exists")
		}
		return nil, storeError("user", err)
	}
	return user, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("user", err)
	}
	return user, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError("user", err)
	}
	return users, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	id, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, NewValidationError("no updatable fields provided")
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name, err := requiredName(*patch.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if patch.Email != nil {
		email, err := s.normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if patch.Role != nil {
		if !models.IsValidUserRole(*patch.Role) {
			return nil, NewValidationError(`role must be either "user" or "admin"`)
		}
		updates["role"] = *patch.Role
	}
	if patch.Password != nil {
		hashed, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}

	user, err := s.users.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflict("email already exists")
		}
		return nil, storeError("user", err)
	}
	return user, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID string) error {
	id, err := parseID("user id", userID)
	if err != nil {
		return err
	}
	return storeError("user", s.users.Delete(ctx, id))
}

// UpsertExternalUser links a provider login to a user, creating one on first login.
func (s *UserServiceImpl) UpsertExternalUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	if identity.Subject == "" {
		return nil, NewValidationError("identity subject is required")
	}
	now := time.Now()

	user, err := s.users.GetByGoogleID(ctx, identity.Subject)
	switch {
	case err == nil:
		updates := map[string]interface{}{"last_login_at": now}
		if identity.Name != "" {
			updates["name"] = identity.Name
		}
		if identity.Email != "" {
			updates["email"] = strings.ToLower(identity.Email)
		}
		updated, err := s.users.Update(ctx, user.ID, updates)
		return updated, storeError("user", err)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storeError("user", err)
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if existing, err := s.users.GetByEmail(ctx, email); err == nil {
		updated, err := s.users.Update(ctx, existing.ID, map[string]interface{}{
			"google_id":     identity.Subject,
			"last_login_at": now,
		})
		return updated, storeError("user", err)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, storeError("user", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = email
	}
	subject := identity.Subject
	user = &models.User{GoogleID: &subject, Name: name, Email: email, Role: models.RoleUser, LastLoginAt: &now}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError("user", err)
	}
	return user, nil
}

// Authenticate checks a legacy email/password login.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := NewUnauthenticated("invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid
		}
		return nil, storeError("user", err)
	}
	if user.Password == "" {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}

	now := time.Now()
	if updated, err := s.users.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err == nil {
		user = updated
	}
	return user, nil
}

func (s *UserServiceImpl) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", NewValidationError("email is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", NewValidationError("email must be a valid email address")
	}
	return email, nil
}

func (s *UserServiceImpl) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", NewValidationError("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", NewInternal("failed to hash password", err)
	}
	return string(hashed), nil
}
