package services

import (
	"context"
	"strings"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

type CreateTaskInput struct {
	Name        string  `json:"name"`
	ListID      string  `json:"listId"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
}

type TaskService interface {
	CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*models.Task, error)
	ResolveVisibleTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error)
	ResolveTaskByID(ctx context.Context, userID, taskID string) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

type TaskServiceImpl struct {
	tasks  repositories.TaskRepository
	lists  repositories.ListRepository
	access repositories.AccessRepository
	authz  AuthorizationService
}

func NewTaskService(
	tasks repositories.TaskRepository,
	lists repositories.ListRepository,
	access repositories.AccessRepository,
	authz AuthorizationService,
) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: tasks, lists: lists, access: access, authz: authz}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*models.Task, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	name, err := requiredName(input.Name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ListID) == "" {
		return nil, NewValidationError("listId is required")
	}
	lid, err := parseID("listId", input.ListID)
	if err != nil {
		return nil, err
	}
	if input.Status != "" && !models.IsValidStatus(input.Status) {
		return nil, invalidStatus()
	}
	if input.Priority != "" && !models.IsValidPriority(input.Priority) {
		return nil, invalidPriority()
	}

	if err := s.requireVisibleList(ctx, uid, lid); err != nil {
		return nil, err
	}

	task := &models.Task{
		OwnerID:     uid,
		ListID:      lid,
		Name:        name,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storeError("task", err)
	}
	return task, nil
}

// ResolveVisibleTasks returns tasks the caller created plus tasks in every
// list they own or hold a grant on, each task once.
func (s *TaskServiceImpl) ResolveVisibleTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}

	query := repositories.TaskQuery{OwnerID: uid}
	if filter.Status != "" {
		if !models.IsValidStatus(filter.Status) {
			return nil, invalidStatus()
		}
		query.Status = filter.Status
	}
	if filter.ListID != "" {
		lid, err := parseID("listId filter", filter.ListID)
		if err != nil {
			return nil, err
		}
		query.ListID = &lid
	}

	listIDs, err := s.visibleListIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	query.ListIDs = listIDs

	tasks, err := s.tasks.FindVisible(ctx, query)
	if err != nil {
		return nil, storeError("task", err)
	}
	return tasks, nil
}

func (s *TaskServiceImpl) ResolveTaskByID(ctx context.Context, userID, taskID string) (*models.Task, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("task id", taskID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, tid)
	if err != nil {
		return nil, storeError("task", err)
	}

	visible, _, err := s.authz.HasTaskAccess(ctx, uid, task)
	if err != nil {
		return nil, storeError("task", err)
	}
	if !visible {
		return nil, NewNotFound("task")
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, userID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	uid, err := parseID("user id", userID)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("task id", taskID)
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
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		if !models.IsValidStatus(*patch.Status) {
			return nil, invalidStatus()
		}
		updates["status"] = *patch.Status
	}
	if patch.Priority != nil {
		if !models.IsValidPriority(*patch.Priority) {
			return nil, invalidPriority()
		}
		updates["priority"] = *patch.Priority
	}
	var newListID uuid.UUID
	if patch.ListID != nil {
		newListID, err = parseID("listId", *patch.ListID)
		if err != nil {
			return nil, err
		}
		updates["list_id"] = newListID
	}

	task, err := s.authorizeTask(ctx, uid, tid, ActionUpdate)
	if err != nil {
		return nil, err
	}
	if patch.ListID != nil && newListID != task.ListID {
		if err := s.requireVisibleList(ctx, uid, newListID); err != nil {
			return nil, err
		}
	}

	updated, err := s.tasks.Update(ctx, tid, updates)
	if err != nil {
		return nil, storeError("task", err)
	}
	return updated, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, userID, taskID string) error {
	uid, err := parseID("user id", userID)
	if err != nil {
		return err
	}
	tid, err := parseID("task id", taskID)
	if err != nil {
		return err
	}

	if _, err := s.authorizeTask(ctx, uid, tid, ActionDelete); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, tid); err != nil {
		return storeError("task", err)
	}
	return nil
}

// authorizeTask loads the task and hides it behind NotFound when the caller may not touch it.
func (s *TaskServiceImpl) authorizeTask(ctx context.Context, uid, tid uuid.UUID, action string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, tid)
	if err != nil {
		return nil, storeError("task", err)
	}

	decision, err := s.authz.AuthorizeTaskMutation(ctx, AuthorizationRequest{
		UserID: uid, Resource: ResourceTask, Action: action, ResourceID: tid,
	}, task)
	if err != nil {
		return nil, storeError("task", err)
	}
	if !decision.Allowed() {
		return nil, NewNotFound("task")
	}
	return task, nil
}

func (s *TaskServiceImpl) requireVisibleList(ctx context.Context, uid, lid uuid.UUID) error {
	list, err := s.lists.GetByID(ctx, lid)
	if err != nil {
		return storeError("list", err)
	}
	visible, err := s.authz.HasListAccess(ctx, uid, list)
	if err != nil {
		return storeError("access grant", err)
	}
	if !visible {
		return NewNotFound("list")
	}
	return nil
}

func (s *TaskServiceImpl) visibleListIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error) {
	owned, err := s.lists.FindByOwner(ctx, uid)
	if err != nil {
		return nil, storeError("list", err)
	}
	granted, err := s.access.ListIDsForGrantee(ctx, uid)
	if err != nil {
		return nil, storeError("access grant", err)
	}

	ids := make([]uuid.UUID, 0, len(owned)+len(granted))
	for _, list := range owned {
		ids = append(ids, list.ID)
	}
	return append(ids, granted...), nil
}

func invalidStatus() *Error {
	return NewValidationError("status must be one of: %s", strings.Join(models.TaskStatuses, ", "))
}

func invalidPriority() *Error {
	return NewValidationError("priority must be one of: %s", strings.Join(models.TaskPriorities, ", "))
}
