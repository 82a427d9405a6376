package services

import (
	"context"
	"errors"
	"strings"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

type CreateGrantInput struct {
	UserID string `json:"userId"`
	ListID string `json:"listId"`
	Role   string `json:"role"`
}

type AccessService interface {
	CreateGrant(ctx context.Context, ownerID string, input CreateGrantInput) (*models.AccessGrant, error)
	ListGrantsForGrantee(ctx context.Context, userID string) ([]models.AccessGrant, error)
	UpdateGrantRole(ctx context.Context, userID, grantID, role string) (*models.AccessGrant, error)
	RevokeGrant(ctx context.Context, userID, grantID string) error
}

type AccessServiceImpl struct {
	access repositories.AccessRepository
	lists  repositories.ListRepository
	users  repositories.UserRepository
	authz  AuthorizationService
}

func NewAccessService(
	access repositories.AccessRepository,
	lists repositories.ListRepository,
	users repositories.UserRepository,
	authz AuthorizationService,
) *AccessServiceImpl {
	return &AccessServiceImpl{access: access, lists: lists, users: users, authz: authz}
}

// CreateGrant lets a list owner share the list with another user. The
// (grantee, list) unique index turns a concurrent duplicate into a Conflict.
func (s *AccessServiceImpl) CreateGrant(ctx context.Context, ownerID string, input CreateGrantInput) (*models.AccessGrant, error) {
	uid, err := parseID("user id", ownerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.ListID) == "" {
		return nil, NewValidationError("userId and listId are required")
	}
	granteeID, err := parseID("userId", input.UserID)
	if err != nil {
		return nil, err
	}
	listID, err := parseID("listId", input.ListID)
	if err != nil {
		return nil, err
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.GrantRoleRead
	}
	if !models.IsValidGrantRole(role) {
		return nil, invalidRole()
	}

	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, storeError("list", err)
	}
	decision := s.authz.AuthorizeGrantMutation(ctx, AuthorizationRequest{
		UserID: uid, Resource: ResourceAccess, Action: ActionCreate, ResourceID: listID,
	}, nil, list)
	if !decision.Allowed() {
		return nil, NewForbidden(decision.Reason)
	}
	if granteeID == uid {
		return nil, NewValidationError("you already own this list")
	}

	if s.users != nil {
		if _, err := s.users.GetByID(ctx, granteeID); err != nil {
			return nil, storeError("user", err)
		}
	}

	exists, err := s.access.Exists(ctx, granteeID, listID)
	if err != nil {
		return nil, storeError("access grant", err)
	}
	if exists {
		return nil, duplicateGrant()
	}

	grant := &models.AccessGrant{GranteeID: granteeID, ListID: listID, Role: role, GrantedBy: uid}
	if err := s.access.Create(ctx, grant); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, duplicateGrant()
		}
		return nil, storeError("access grant", err)
	}
	return grant, nil
}

func (s *AccessServiceImpl) ListGrantsForGrantee(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	grants, err := s.access.FindByGrantee(ctx, uid)
	if err != nil {
		return nil, storeError("access grant", err)
	}
	return grants, nil
}

func (s *AccessServiceImpl) UpdateGrantRole(ctx context.Context, userID, grantID, role string) (*models.AccessGrant, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	gid, err := parseID("access id", grantID)
	if err != nil {
		return nil, err
	}
	role = strings.TrimSpace(role)
	if !models.IsValidGrantRole(role) {
		return nil, invalidRole()
	}

	if _, err := s.authorizeGrant(ctx, uid, gid, ActionUpdate); err != nil {
		return nil, err
	}

	updated, err := s.access.UpdateRole(ctx, gid, role)
	if err != nil {
		return nil, storeError("access grant", err)
	}
	return updated, nil
}

// RevokeGrant deletes the grant. Revoking an already revoked grant is NotFound.
func (s *AccessServiceImpl) RevokeGrant(ctx context.Context, userID, grantID string) error {
	uid, err := parseID("user id", userID)
	if err != nil {
		return err
	}
	gid, err := parseID("access id", grantID)
	if err != nil {
		return err
	}

	if _, err := s.authorizeGrant(ctx, uid, gid, ActionDelete); err != nil {
		return err
	}
	if err := s.access.Delete(ctx, gid); err != nil {
		return storeError("access grant", err)
	}
	return nil
}

func (s *AccessServiceImpl) authorizeGrant(ctx context.Context, uid, gid uuid.UUID, action string) (*models.AccessGrant, error) {
	grant, err := s.access.GetByID(ctx, gid)
	if err != nil {
		return nil, storeError("access grant", err)
	}

	list, err := s.lists.GetByID(ctx, grant.ListID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, storeError("list", err)
	}

	decision := s.authz.AuthorizeGrantMutation(ctx, AuthorizationRequest{
		UserID: uid, Resource: ResourceAccess, Action: action, ResourceID: gid,
	}, grant, list)
	if !decision.Allowed() {
		return nil, NewForbidden(decision.Reason)
	}
	return grant, nil
}

func duplicateGrant() *Error {
	return NewConflict("user already has access to this list")
}

func invalidRole() *Error {
	return NewValidationError("role must be one of: %s", strings.Join(models.GrantRoles, ", "))
}
