package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const taskKeyPrefix = "ytscope:task:"

// TaskStorage implements ports.TaskStorage using Redis
type TaskStorage struct {
	client redis.UniversalClient
	logger *zap.Logger
	ttl    time.Duration
}

var _ ports.TaskStorage = (*TaskStorage)(nil)

// NewTaskStorage creates a new Redis task storage. Tasks expire ttl after
// their last save; a zero ttl keeps them forever.
func NewTaskStorage(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *TaskStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveTask persists task state
func (s *TaskStorage) SaveTask(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := s.client.Set(ctx, taskKey(task.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Debug("task saved",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)))

	return nil
}

// GetTask retrieves task state
func (s *TaskStorage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("task %s: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// ListTasks returns all stored tasks, newest submission first
func (s *TaskStorage) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	tasks := make([]*domain.Task, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			// expired between SCAN and GET
			continue
		}

		var task domain.Task
		if err := json.Unmarshal(data, &task); err != nil {
			s.logger.Warn("skipping undecodable task", zap.String("key", key), zap.Error(err))
			continue
		}

		tasks = append(tasks, &task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].SubmittedAt.After(tasks[j].SubmittedAt)
	})
	return tasks, nil
}

// DeleteTask removes task state
func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, taskKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Debug("task deleted", zap.String("task_id", id))
	return nil
}

// taskKey returns the Redis key for a task
func taskKey(id string) string {
	return taskKeyPrefix + id
}
