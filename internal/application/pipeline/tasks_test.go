package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/adapters/storage/memory"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// stubRunner blocks until release is closed or ctx ends
type stubRunner struct {
	release chan struct{}
	err     error
	started chan struct{}
}

func (r *stubRunner) Normalize(req domain.RunRequest) (domain.RunRequest, error) {
	if req.Query == "" {
		return req, ErrInvalidRequest
	}
	return req, nil
}

func (r *stubRunner) Run(ctx context.Context, req domain.RunRequest, progress ProgressFunc) (*domain.Report, error) {
	if r.started != nil {
		close(r.started)
	}
	progress(domain.Progress{Stage: StageAnalyze, Processed: 1, Total: 2})
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Report{ID: "report-1"}, nil
}

// eventLog is a synchronous EventBus that records everything published
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) Publish(ctx context.Context, topic string, e domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) Subscribe(context.Context, string, ports.EventHandler) error { return nil }
func (l *eventLog) Unsubscribe(context.Context, string) error                  { return nil }
func (l *eventLog) Close() error                                                { return nil }

func (l *eventLog) types() []domain.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func newTaskManager(runner Runner, opts ...TaskOption) (*TaskManager, *eventLog) {
	events := &eventLog{}
	return NewTaskManager(runner, memory.NewTaskStorage(), events, zap.NewNop(), opts...), events
}

func TestSubmitAndRun(t *testing.T) {
	m, events := newTaskManager(&stubRunner{})
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	require.NoError(t, m.RunTask(ctx, task.ID))

	got, err := m.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "report-1", got.ReportID)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, StageAnalyze, got.Progress.Stage)

	assert.Equal(t, []domain.EventType{
		domain.EventTypeTaskSubmitted,
		domain.EventTypeTaskStarted,
		domain.EventTypeTaskProgress,
		domain.EventTypeTaskCompleted,
	}, events.types())
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	m, events := newTaskManager(&stubRunner{})

	_, err := m.Submit(context.Background(), domain.RunRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, events.types())
}

func TestRunTaskFailure(t *testing.T) {
	m, events := newTaskManager(&stubRunner{err: errors.New("scrape blocked")})
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)

	err = m.RunTask(ctx, task.ID)
	assert.EqualError(t, err, "scrape blocked")

	got, err := m.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "scrape blocked", got.Error)
	assert.Contains(t, events.types(), domain.EventTypeTaskFailed)
}

func TestRunTaskTimeout(t *testing.T) {
	m, _ := newTaskManager(&stubRunner{release: make(chan struct{})}, WithTaskTimeout(10*time.Millisecond))
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)

	err = m.RunTask(ctx, task.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := m.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Error, "timed out")
}

func TestRunTaskOnlyOnce(t *testing.T) {
	m, _ := newTaskManager(&stubRunner{})
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)
	require.NoError(t, m.RunTask(ctx, task.ID))

	assert.ErrorIs(t, m.RunTask(ctx, task.ID), ErrTaskNotPending)
	assert.ErrorIs(t, m.RunTask(ctx, "missing"), ports.ErrNotFound)
}

func TestCancelPending(t *testing.T) {
	m, events := newTaskManager(&stubRunner{})
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)

	got, err := m.Cancel(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, got.Status)
	assert.Contains(t, events.types(), domain.EventTypeTaskCancelled)

	assert.ErrorIs(t, m.RunTask(ctx, task.ID), ErrTaskNotPending)

	_, err = m.Cancel(ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskFinished)
}

func TestCancelRunning(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{}), started: make(chan struct{})}
	m, _ := newTaskManager(runner)
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "go"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.RunTask(ctx, task.ID) }()
	<-runner.started
	assert.Equal(t, 1, m.Running())

	_, err = m.Cancel(ctx, task.ID)
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}

	got, err := m.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, got.Status)
	assert.Zero(t, m.Running())
}

func TestList(t *testing.T) {
	m, _ := newTaskManager(&stubRunner{})
	ctx := context.Background()

	_, err := m.Submit(ctx, domain.RunRequest{Query: "one"})
	require.NoError(t, err)
	_, err = m.Submit(ctx, domain.RunRequest{Query: "two"})
	require.NoError(t, err)

	tasks, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestTasksWithRealPipeline(t *testing.T) {
	f := newFixture(t)
	m, _ := newTaskManager(f.pipeline)
	ctx := context.Background()

	task, err := m.Submit(ctx, domain.RunRequest{Query: "golang"})
	require.NoError(t, err)
	require.NoError(t, m.RunTask(ctx, task.ID))

	got, err := m.Get(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, StageDone, got.Progress.Stage)

	report, err := f.repo.GetReport(ctx, got.ReportID)
	require.NoError(t, err)
	assert.Len(t, report.Items, 3)
}
