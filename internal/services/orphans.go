package services

import (
	"context"

	"gitrdun/backend/internal/repositories"
	"gitrdun/backend/internal/worker"

	"go.uber.org/zap"
)

// OrphanReport counts the rows still pointing at a deleted list.
type OrphanReport struct {
	ListID string `json:"listId"`
	Tasks  int64  `json:"tasks"`
	Grants int64  `json:"grants"`
}

// OrphanAuditor reports tasks and grants left behind by a list deletion.
// It only reports; list deletion never cascades.
type OrphanAuditor struct {
	tasks  repositories.TaskRepository
	access repositories.AccessRepository
	logger *zap.Logger
}

func NewOrphanAuditor(tasks repositories.TaskRepository, access repositories.AccessRepository, logger *zap.Logger) *OrphanAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrphanAuditor{tasks: tasks, access: access, logger: logger}
}

func (a *OrphanAuditor) Audit(ctx context.Context, listID string) (*OrphanReport, error) {
	lid, err := parseID("list id", listID)
	if err != nil {
		return nil, err
	}

	tasks, err := a.tasks.CountByList(ctx, lid)
	if err != nil {
		return nil, storeError("task", err)
	}
	grants, err := a.access.CountByList(ctx, lid)
	if err != nil {
		return nil, storeError("access grant", err)
	}

	report := &OrphanReport{ListID: lid.String(), Tasks: tasks, Grants: grants}
	if tasks > 0 || grants > 0 {
		a.logger.Warn("deleted list left orphaned records",
			zap.String("list_id", report.ListID),
			zap.Int64("tasks", tasks),
			zap.Int64("grants", grants),
		)
	}
	return report, nil
}

// HandleJob adapts Audit to the worker's job handler signature.
func (a *OrphanAuditor) HandleJob(ctx context.Context, job *worker.Job) error {
	_, err := a.Audit(ctx, job.PayloadString("list_id"))
	if IsCode(err, ErrCodeValidation) {
		a.logger.Error("dropping malformed orphan audit job", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	return err
}
