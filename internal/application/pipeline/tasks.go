package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

var (
	// ErrTaskFinished is returned when cancelling a task that already ended.
	ErrTaskFinished = errors.New("task already finished")

	// ErrTaskNotPending is returned by RunTask when another runner claimed the task.
	ErrTaskNotPending = errors.New("task is not pending")
)

// Runner executes a run request. *Pipeline satisfies it.
type Runner interface {
	Normalize(req domain.RunRequest) (domain.RunRequest, error)
	Run(ctx context.Context, req domain.RunRequest, progress ProgressFunc) (*domain.Report, error)
}

// TaskOption configures a TaskManager
type TaskOption func(*TaskManager)

// WithTaskTimeout bounds each task execution
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(m *TaskManager) {
		m.timeout = d
	}
}

// WithTaskMetrics sets the metrics collector
func WithTaskMetrics(c ports.MetricsCollector) TaskOption {
	return func(m *TaskManager) {
		if c != nil {
			m.metrics = c
		}
	}
}

// WithTaskClock replaces time.Now
func WithTaskClock(now func() time.Time) TaskOption {
	return func(m *TaskManager) {
		m.now = now
	}
}

type runningTask struct {
	cancel    context.CancelFunc
	cancelled bool
}

// TaskManager persists tasks and drives them through their lifecycle
type TaskManager struct {
	runner  Runner
	storage ports.TaskStorage
	events  ports.EventBus
	metrics ports.MetricsCollector
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	// mu serializes state transitions of every task
	mu      sync.Mutex
	running map[string]*runningTask
}

// NewTaskManager creates a task manager
func NewTaskManager(runner Runner, storage ports.TaskStorage, events ports.EventBus, logger *zap.Logger, opts ...TaskOption) *TaskManager {
	m := &TaskManager{
		runner:  runner,
		storage: storage,
		events:  events,
		metrics: noopMetrics{},
		logger:  logger,
		timeout: 30 * time.Minute,
		now:     time.Now,
		running: make(map[string]*runningTask),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates req, stores a pending task and announces it
func (m *TaskManager) Submit(ctx context.Context, req domain.RunRequest) (*domain.Task, error) {
	req, err := m.runner.Normalize(req)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:          uuid.New().String(),
		Request:     req,
		Status:      domain.TaskStatusPending,
		Progress:    domain.Progress{Stage: "queued"},
		SubmittedAt: m.now(),
	}

	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	m.metrics.RecordTaskSubmitted()
	m.publish(ctx, task.ID, domain.EventTypeTaskSubmitted, map[string]interface{}{
		"query": req.Query,
	})

	m.logger.Info("task submitted",
		zap.String("task_id", task.ID),
		zap.String("query", req.Query))

	return task, nil
}

// RunTask claims a pending task and runs it to completion. It returns the
// run error, if any, after the final state has been saved.
func (m *TaskManager) RunTask(ctx context.Context, id string) error {
	task, runCtx, cancel, err := m.claim(ctx, id)
	if err != nil {
		return err
	}
	defer cancel()

	m.publish(ctx, id, domain.EventTypeTaskStarted, nil)
	m.logger.Info("task started", zap.String("task_id", id))

	report, runErr := m.runner.Run(runCtx, task.Request, func(p domain.Progress) {
		m.updateProgress(runCtx, task, p)
	})

	return m.finish(ctx, task, report, runErr)
}

func (m *TaskManager) claim(ctx context.Context, id string) (*domain.Task, context.Context, context.CancelFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if task.Status != domain.TaskStatusPending {
		return nil, nil, nil, fmt.Errorf("%w: %s is %s", ErrTaskNotPending, id, task.Status)
	}

	started := m.now()
	task.Status = domain.TaskStatusRunning
	task.StartedAt = &started
	task.Progress = domain.Progress{Stage: StageScrape}
	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to save task: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	m.running[id] = &runningTask{cancel: cancel}
	return task, runCtx, cancel, nil
}

func (m *TaskManager) updateProgress(ctx context.Context, task *domain.Task, p domain.Progress) {
	m.mu.Lock()
	task.Progress = p
	snapshot := *task
	m.mu.Unlock()

	if err := m.storage.SaveTask(ctx, &snapshot); err != nil {
		m.logger.Warn("failed to save task progress", zap.String("task_id", task.ID), zap.Error(err))
	}
	m.publish(ctx, task.ID, domain.EventTypeTaskProgress, map[string]interface{}{
		"stage":     p.Stage,
		"processed": p.Processed,
		"total":     p.Total,
		"message":   p.Message,
	})
}

func (m *TaskManager) finish(ctx context.Context, task *domain.Task, report *domain.Report, runErr error) error {
	// The final state must be saved even when the caller is gone
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	rt := m.running[task.ID]
	delete(m.running, task.ID)

	completed := m.now()
	task.CompletedAt = &completed

	var eventType domain.EventType
	data := map[string]interface{}{}
	switch {
	case runErr == nil:
		task.Status = domain.TaskStatusCompleted
		task.ReportID = report.ID
		eventType = domain.EventTypeTaskCompleted
		data["report_id"] = report.ID
	case rt != nil && rt.cancelled:
		task.Status = domain.TaskStatusCancelled
		task.Error = "cancelled"
		eventType = domain.EventTypeTaskCancelled
	default:
		task.Status = domain.TaskStatusFailed
		task.Error = runErr.Error()
		if errors.Is(runErr, context.DeadlineExceeded) {
			task.Error = fmt.Sprintf("task timed out after %s", m.timeout)
		}
		eventType = domain.EventTypeTaskFailed
		data["error"] = task.Error
	}
	snapshot := *task
	m.mu.Unlock()

	if err := m.storage.SaveTask(ctx, &snapshot); err != nil {
		m.logger.Error("failed to save final task state", zap.String("task_id", task.ID), zap.Error(err))
	}

	duration := completed.Sub(*task.StartedAt)
	m.metrics.RecordTaskCompleted(string(snapshot.Status), duration)
	m.publish(ctx, task.ID, eventType, data)

	m.logger.Info("task finished",
		zap.String("task_id", task.ID),
		zap.String("status", string(snapshot.Status)),
		zap.Duration("duration", duration))

	if snapshot.Status == domain.TaskStatusCompleted {
		return nil
	}
	return runErr
}

// Get returns one task
func (m *TaskManager) Get(ctx context.Context, id string) (*domain.Task, error) {
	return m.storage.GetTask(ctx, id)
}

// List returns every stored task, newest first
func (m *TaskManager) List(ctx context.Context) ([]*domain.Task, error) {
	return m.storage.ListTasks(ctx)
}

// Cancel stops a task. Pending tasks are cancelled immediately; running ones
// are interrupted and reach the cancelled state when their run unwinds.
func (m *TaskManager) Cancel(ctx context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, fmt.Errorf("%w: %s is %s", ErrTaskFinished, id, task.Status)
	}

	if rt, ok := m.running[id]; ok {
		rt.cancelled = true
		rt.cancel()
		m.logger.Info("task cancellation requested", zap.String("task_id", id))
		return task, nil
	}

	now := m.now()
	task.Status = domain.TaskStatusCancelled
	task.Error = "cancelled"
	task.CompletedAt = &now
	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	m.publish(ctx, id, domain.EventTypeTaskCancelled, nil)
	m.logger.Info("task cancelled", zap.String("task_id", id))
	return task, nil
}

// Running returns the number of tasks currently executing
func (m *TaskManager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

func (m *TaskManager) publish(ctx context.Context, taskID string, eventType domain.EventType, data map[string]interface{}) {
	if m.events == nil {
		return
	}
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TaskID:    taskID,
		Timestamp: m.now(),
		Data:      data,
	}
	if err := m.events.Publish(ctx, domain.TopicTaskEvents, event); err != nil {
		m.logger.Error("failed to publish event",
			zap.String("task_id", taskID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
