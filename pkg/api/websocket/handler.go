package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	writeWait           = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TaskGetter loads the current state of a task
type TaskGetter interface {
	Get(ctx context.Context, id string) (*domain.Task, error)
}

// Handler handles WebSocket connections
type Handler struct {
	tasks    TaskGetter
	interval time.Duration
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler. Task state is polled every
// interval; a non-positive interval uses 500ms.
func NewHandler(tasks TaskGetter, interval time.Duration, logger *zap.Logger) *Handler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Handler{
		tasks:    tasks,
		interval: interval,
		logger:   logger,
	}
}

// HandleTaskStream streams one task until it finishes or the client leaves
func (h *Handler) HandleTaskStream(c *gin.Context) {
	taskID := c.Param("id")

	// Reject unknown tasks before upgrading so the client gets a plain 404
	task, err := h.tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if errors.Is(err, ports.ErrNotFound) {
			status, code = http.StatusNotFound, "NOT_FOUND"
		}
		c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("task_id", taskID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.readPump(conn, cancel)

	if err := h.send(conn, task); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := task
	for !last.Status.Terminal() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := h.tasks.Get(ctx, taskID)
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Error("failed to load task", zap.String("task_id", taskID), zap.Error(err))
			}
			return
		}
		if changed(last, current) {
			if err := h.send(conn, current); err != nil {
				return
			}
		}
		last = current
	}

	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(last.Status)), deadline)
}

// readPump drains client frames; it cancels the stream when the peer goes away
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, task *domain.Task) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(task); err != nil {
		h.logger.Warn("failed to write message", zap.String("task_id", task.ID), zap.Error(err))
		return err
	}
	return nil
}

func changed(prev, next *domain.Task) bool {
	return prev.Status != next.Status || prev.Progress != next.Progress
}
