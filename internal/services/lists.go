package services

import (
	"context"
	"strings"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"
	"gitrdun/backend/internal/worker"

	"go.uber.org/zap"
)

type CreateListInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type ListService interface {
	CreateList(ctx context.Context, userID string, input CreateListInput) (*models.List, error)
	ResolveVisibleLists(ctx context.Context, userID string) ([]models.List, error)
	ResolveListByID(ctx context.Context, userID, listID string) (*models.List, error)
	UpdateList(ctx context.Context, userID, listID string, patch models.ListPatch) (*models.List, error)
	DeleteList(ctx context.Context, userID, listID string) error
}

type ListServiceImpl struct {
	lists  repositories.ListRepository
	access repositories.AccessRepository
	authz  AuthorizationService
	jobs   worker.Enqueuer
	logger *zap.Logger
}

func NewListService(
	lists repositories.ListRepository,
	access repositories.AccessRepository,
	authz AuthorizationService,
	jobs worker.Enqueuer,
	logger *zap.Logger,
) *ListServiceImpl {
	return &ListServiceImpl{lists: lists, access: access, authz: authz, jobs: jobs, logger: logger}
}

func (s *ListServiceImpl) CreateList(ctx context.Context, userID string, input CreateListInput) (*models.List, error) {
	ownerID, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	name, err := requiredName(input.Name)
	if err != nil {
		return nil, err
	}

	list := &models.List{OwnerID: ownerID, Name: name, Description: input.Description}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, storeError("list", err)
	}
	return list, nil
}

// ResolveVisibleLists returns the caller's own lists followed by the lists shared with them.
func (s *ListServiceImpl) ResolveVisibleLists(ctx context.Context, userID string) ([]models.List, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.lists.FindByOwner(ctx, uid)
	if err != nil {
		return nil, storeError("list", err)
	}

	sharedIDs, err := s.access.ListIDsForGrantee(ctx, uid)
	if err != nil {
		return nil, storeError("access grant", err)
	}
	shared, err := s.lists.FindByIDs(ctx, sharedIDs)
	if err != nil {
		return nil, storeError("list", err)
	}

	return append(owned, shared...), nil
}

// ResolveListByID answers NotFound both for missing lists and for lists the caller cannot see.
func (s *ListServiceImpl) ResolveListByID(ctx context.Context, userID, listID string) (*models.List, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	lid, err := parseID("list id", listID)
	if err != nil {
		return nil, err
	}

	list, err := s.lists.GetByID(ctx, lid)
	if err != nil {
		return nil, storeError("list", err)
	}

	visible, err := s.authz.HasListAccess(ctx, uid, list)
	if err != nil {
		return nil, storeError("access grant", err)
	}
	if !visible {
		return nil, NewNotFound("list")
	}
	return list, nil
}

func (s *ListServiceImpl) UpdateList(ctx context.Context, userID, listID string, patch models.ListPatch) (*models.List, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	lid, err := parseID("list id", listID)
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
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}

	list, err := s.lists.GetByID(ctx, lid)
	if err != nil {
		return nil, storeError("list", err)
	}
	decision := s.authz.AuthorizeListMutation(ctx, AuthorizationRequest{
		UserID: uid, Resource: ResourceList, Action: ActionUpdate, ResourceID: lid,
	}, list)
	if !decision.Allowed() {
		return nil, NewForbidden(decision.Reason)
	}

	updated, err := s.lists.UpdateOwned(ctx, lid, uid, updates)
	if err != nil {
		return nil, storeError("list", err)
	}
	return updated, nil
}

// DeleteList removes only the list itself. Its tasks and grants are left in
// place and an orphan audit job is queued for them.
func (s *ListServiceImpl) DeleteList(ctx context.Context, userID, listID string) error {
	uid, err := parseID("user id", userID)
	if err != nil {
		return err
	}
	lid, err := parseID("list id", listID)
	if err != nil {
		return err
	}

	list, err := s.lists.GetByID(ctx, lid)
	if err != nil {
		return storeError("list", err)
	}
	decision := s.authz.AuthorizeListMutation(ctx, AuthorizationRequest{
		UserID: uid, Resource: ResourceList, Action: ActionDelete, ResourceID: lid,
	}, list)
	if !decision.Allowed() {
		return NewForbidden(decision.Reason)
	}

	if err := s.lists.DeleteOwned(ctx, lid, uid); err != nil {
		return storeError("list", err)
	}

	if s.jobs != nil {
		payload := map[string]interface{}{"list_id": lid.String(), "owner_id": uid.String()}
		if err := s.jobs.Enqueue(ctx, worker.JobTypeListOrphanAudit, payload); err != nil && s.logger != nil {
			s.logger.Warn("failed to enqueue orphan audit", zap.String("list_id", lid.String()), zap.Error(err))
		}
	}
	return nil
}
