package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// TaskStorage implements ports.TaskStorage using an in-memory map
type TaskStorage struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

var _ ports.TaskStorage = (*TaskStorage)(nil)

// NewTaskStorage creates an empty task storage
func NewTaskStorage() *TaskStorage {
	return &TaskStorage{tasks: make(map[string]*domain.Task)}
}

// SaveTask stores a copy of task
func (s *TaskStorage) SaveTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// GetTask returns a copy of one task
func (s *TaskStorage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", id, ports.ErrNotFound)
	}
	cp := *task
	return &cp, nil
}

// ListTasks returns all tasks, newest submission first
func (s *TaskStorage) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		cp := *task
		tasks = append(tasks, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].SubmittedAt.After(tasks[j].SubmittedAt)
	})
	return tasks, nil
}

// DeleteTask removes a task
func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}
