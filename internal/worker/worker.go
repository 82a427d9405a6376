package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeListOrphanAudit JobType = "list_orphan_audit"
)

const (
	DefaultQueue = "jobs:default"
	RetryQueue   = "jobs:retry"
	DeadQueue    = "jobs:dead"
)

var errNotDue = errors.New("job not due yet")

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

// PayloadString returns a string payload value, or "" when absent.
func (j *Job) PayloadString(key string) string {
	if v, ok := j.Payload[key].(string); ok {
		return v
	}
	return ""
}

type JobHandler func(ctx context.Context, job *Job) error

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queues       []string
	pollInterval time.Duration
	jobTimeout   time.Duration
	retryBase    time.Duration
	logger       *zap.Logger
	mu           sync.RWMutex
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient  *redis.Client
	PollInterval time.Duration
	JobTimeout   time.Duration
	RetryBase    time.Duration
	Queues       []string
	Logger       *zap.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	queues := config.Queues
	if len(queues) == 0 {
		queues = []string{DefaultQueue}
	}
	queues = append(append([]string{}, queues...), RetryQueue)

	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.RetryBase <= 0 {
		config.RetryBase = time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		client:       config.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       queues,
		pollInterval: config.PollInterval,
		jobTimeout:   config.JobTimeout,
		retryBase:    config.RetryBase,
		logger:       logger,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("starting worker", zap.Int("concurrency", concurrency), zap.Strings("queues", w.queues))

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
}

func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.logger.Info("stopping worker")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.ProcessNext(ctx, w.pollInterval); err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, errNotDue) {
				w.logger.Error("error processing job", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// ProcessNext pops at most one job, waiting up to wait for it.
func (w *Worker) ProcessNext(ctx context.Context, wait time.Duration) error {
	result, err := w.client.BLPop(ctx, wait, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return errors.New("invalid job result")
	}

	queue, data := result[0], result[1]

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if time.Now().Before(job.ProcessAt) {
		if err := push(ctx, w.client, queue, &job); err != nil {
			return err
		}
		return errNotDue
	}

	return w.execute(ctx, &job)
}

func (w *Worker) execute(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))
	log.Debug("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.Warn("job failed, retrying", zap.Int("attempt", job.Attempts), zap.Int("max_tries", job.MaxTries), zap.Error(err))
			job.ProcessAt = time.Now().Add(w.retryBase * time.Duration(1<<(job.Attempts-1)))
			return push(ctx, w.client, RetryQueue, job)
		}

		log.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
		return w.moveToDeadQueue(ctx, job, err)
	}

	log.Debug("job completed")
	return nil
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	data, err := json.Marshal(map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return w.client.RPush(ctx, DeadQueue, data).Err()
}

// Enqueuer is what request-path code needs to schedule background work.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) error
}

type JobQueue struct {
	client   *redis.Client
	queue    string
	maxTries int
}

func NewJobQueue(client *redis.Client, queue string, maxTries int) *JobQueue {
	if queue == "" {
		queue = DefaultQueue
	}
	if maxTries <= 0 {
		maxTries = 3
	}
	return &JobQueue{client: client, queue: queue, maxTries: maxTries}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(ctx, jobType, payload, time.Now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   payload,
		MaxTries:  q.maxTries,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}
	return push(ctx, q.client, q.queue, job)
}

func (q *JobQueue) Size(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, queue).Result()
}

func push(ctx context.Context, client *redis.Client, queue string, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return client.RPush(ctx, queue, data).Err()
}
