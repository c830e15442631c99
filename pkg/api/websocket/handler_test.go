package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// scriptedTasks returns the next state from a script on every Get, then
// repeats the last one.
type scriptedTasks struct {
	mu     sync.Mutex
	states []domain.Task
	calls  int
}

func (s *scriptedTasks) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 || id != s.states[0].ID {
		return nil, fmt.Errorf("task %s: %w", id, ports.ErrNotFound)
	}
	i := min(s.calls, len(s.states)-1)
	s.calls++
	task := s.states[i]
	return &task, nil
}

func newTestServer(t *testing.T, tasks TaskGetter) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/tasks/:id/ws", NewHandler(tasks, 5*time.Millisecond, zap.NewNop()).HandleTaskStream)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/tasks/" + id + "/ws"
}

func TestHandleTaskStreamSendsChangesUntilTerminal(t *testing.T) {
	tasks := &scriptedTasks{states: []domain.Task{
		{ID: "t1", Status: domain.TaskStatusPending},
		{ID: "t1", Status: domain.TaskStatusPending},
		{ID: "t1", Status: domain.TaskStatusRunning, Progress: domain.Progress{Stage: "scrape"}},
		{ID: "t1", Status: domain.TaskStatusRunning, Progress: domain.Progress{Stage: "analyze", Processed: 1, Total: 2}},
		{ID: "t1", Status: domain.TaskStatusCompleted, Progress: domain.Progress{Stage: "done"}, ReportID: "r1"},
	}}
	srv := newTestServer(t, tasks)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "t1"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var received []domain.Task
	for {
		var task domain.Task
		if err := conn.ReadJSON(&task); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		received = append(received, task)
	}

	require.Len(t, received, 4)
	assert.Equal(t, domain.TaskStatusPending, received[0].Status)
	assert.Equal(t, "scrape", received[1].Progress.Stage)
	assert.Equal(t, 1, received[2].Progress.Processed)
	assert.Equal(t, domain.TaskStatusCompleted, received[3].Status)
	assert.Equal(t, "r1", received[3].ReportID)
}

func TestHandleTaskStreamUnknownTask(t *testing.T) {
	srv := newTestServer(t, &scriptedTasks{})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "missing"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleTaskStreamFinishedTask(t *testing.T) {
	tasks := &scriptedTasks{states: []domain.Task{
		{ID: "t2", Status: domain.TaskStatusFailed, Error: "nothing scraped"},
	}}
	srv := newTestServer(t, tasks)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "t2"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var task domain.Task
	require.NoError(t, conn.ReadJSON(&task))
	assert.Equal(t, "nothing scraped", task.Error)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
