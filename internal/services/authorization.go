package services

import (
	"context"
	"errors"
	"time"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	ResourceList   = "list"
	ResourceTask   = "task"
	ResourceAccess = "access"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type AuthorizationRequest struct {
	UserID     uuid.UUID
	Resource   string
	Action     string
	ResourceID uuid.UUID
}

type AuthorizationDecision struct {
	UserID     uuid.UUID `json:"userId"`
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	ResourceID uuid.UUID `json:"resourceId"`
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

func (d *AuthorizationDecision) Allowed() bool {
	return d.Decision == models.DecisionAllowed
}

// AuthorizationService is the single place where ownership and grant rules live.
type AuthorizationService interface {
	HasListAccess(ctx context.Context, userID uuid.UUID, list *models.List) (bool, error)
	HasTaskAccess(ctx context.Context, userID uuid.UUID, task *models.Task) (bool, string, error)
	AuthorizeListMutation(ctx context.Context, request AuthorizationRequest, list *models.List) *AuthorizationDecision
	AuthorizeGrantMutation(ctx context.Context, request AuthorizationRequest, grant *models.AccessGrant, list *models.List) *AuthorizationDecision
	AuthorizeTaskMutation(ctx context.Context, request AuthorizationRequest, task *models.Task) (*AuthorizationDecision, error)
	LogAuthorizationDecision(ctx context.Context, decision AuthorizationDecision) error
}

type AuthorizationServiceImpl struct {
	lists  repositories.ListRepository
	access repositories.AccessRepository
	audit  repositories.AuditRepository
	logger *zap.Logger
}

func NewAuthorizationService(
	lists repositories.ListRepository,
	access repositories.AccessRepository,
	audit repositories.AuditRepository,
	logger *zap.Logger,
) *AuthorizationServiceImpl {
	return &AuthorizationServiceImpl{lists: lists, access: access, audit: audit, logger: logger}
}

// HasListAccess reports whether userID owns the list or holds any grant on it.
func (s *AuthorizationServiceImpl) HasListAccess(ctx context.Context, userID uuid.UUID, list *models.List) (bool, error) {
	if list.IsOwnedBy(userID) {
		return true, nil
	}
	return s.access.Exists(ctx, userID, list.ID)
}

// HasTaskAccess allows the task creator, any grantee of the task's list and
// the list owner. Grants keep working for a list that no longer exists.
func (s *AuthorizationServiceImpl) HasTaskAccess(ctx context.Context, userID uuid.UUID, task *models.Task) (bool, string, error) {
	if task.OwnerID == userID {
		return true, "task owner", nil
	}

	granted, err := s.access.Exists(ctx, userID, task.ListID)
	if err != nil {
		return false, "", err
	}
	if granted {
		return true, "list grantee", nil
	}

	list, err := s.lists.GetByID(ctx, task.ListID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, "list no longer exists", nil
		}
		return false, "", err
	}
	if list.IsOwnedBy(userID) {
		return true, "list owner", nil
	}
	return false, "no access to list", nil
}

func (s *AuthorizationServiceImpl) AuthorizeListMutation(ctx context.Context, request AuthorizationRequest, list *models.List) *AuthorizationDecision {
	decision := newDecision(request)
	if list.IsOwnedBy(request.UserID) {
		decision.allow("list owner")
	} else {
		decision.deny("only the list owner may " + request.Action + " a " + request.Resource)
	}
	s.record(ctx, decision)
	return decision
}

// AuthorizeGrantMutation requires the current list owner. When the list is
// gone (list == nil) the user who issued the grant may still manage it.
func (s *AuthorizationServiceImpl) AuthorizeGrantMutation(ctx context.Context, request AuthorizationRequest, grant *models.AccessGrant, list *models.List) *AuthorizationDecision {
	decision := newDecision(request)
	switch {
	case list != nil && list.IsOwnedBy(request.UserID):
		decision.allow("list owner")
	case list == nil && grant != nil && grant.GrantedBy == request.UserID:
		decision.allow("granter of a grant on a deleted list")
	default:
		decision.deny("only the list owner may manage access")
	}
	s.record(ctx, decision)
	return decision
}

func (s *AuthorizationServiceImpl) AuthorizeTaskMutation(ctx context.Context, request AuthorizationRequest, task *models.Task) (*AuthorizationDecision, error) {
	allowed, reason, err := s.HasTaskAccess(ctx, request.UserID, task)
	if err != nil {
		return nil, err
	}

	decision := newDecision(request)
	if allowed {
		decision.allow(reason)
	} else {
		decision.deny(reason)
	}
	s.record(ctx, decision)
	return decision, nil
}

func (s *AuthorizationServiceImpl) LogAuthorizationDecision(ctx context.Context, decision AuthorizationDecision) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Create(ctx, &models.AuditLog{
		UserID:     decision.UserID,
		Action:     decision.Action,
		Resource:   decision.Resource,
		ResourceID: decision.ResourceID,
		Decision:   decision.Decision,
		Reason:     decision.Reason,
		Timestamp:  decision.Timestamp,
	})
}

// record persists the decision. Audit failures never change the outcome.
func (s *AuthorizationServiceImpl) record(ctx context.Context, decision *AuthorizationDecision) {
	if err := s.LogAuthorizationDecision(ctx, *decision); err != nil && s.logger != nil {
		s.logger.Error("failed to write audit log",
			zap.String("resource", decision.Resource),
			zap.String("action", decision.Action),
			zap.Error(err),
		)
	}
	if s.logger != nil && !decision.Allowed() {
		s.logger.Info("authorization denied",
			zap.String("user_id", decision.UserID.String()),
			zap.String("resource", decision.Resource),
			zap.String("resource_id", decision.ResourceID.String()),
			zap.String("action", decision.Action),
			zap.String("reason", decision.Reason),
		)
	}
}

func newDecision(request AuthorizationRequest) *AuthorizationDecision {
	return &AuthorizationDecision{
		UserID:     request.UserID,
		Resource:   request.Resource,
		Action:     request.Action,
		ResourceID: request.ResourceID,
		Decision:   models.DecisionDenied,
		Timestamp:  time.Now(),
	}
}

func (d *AuthorizationDecision) allow(reason string) {
	d.Decision = models.DecisionAllowed
	d.Reason = reason
}

func (d *AuthorizationDecision) deny(reason string) {
	d.Decision = models.DecisionDenied
	d.Reason = reason
}
