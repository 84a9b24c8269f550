package memory

import (
	"context"
	"sync"
	"time"

	"github.com/osvaldoandrade/osintq/pkg/domain"
	"github.com/osvaldoandrade/osintq/pkg/store"
)

// Store implements store.TaskStore on a mutex-guarded map. Task state lives
// only in process memory for the process lifetime; there is no durability
// across restarts.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	now   func() time.Time
}

// New creates an empty in-memory task store.
func New() *Store {
	return &Store{
		tasks: make(map[string]*domain.Task),
		now:   time.Now,
	}
}

func init() {
	store.RegisterProvider("memory", func() (store.TaskStore, error) {
		return New(), nil
	})
}

func (s *Store) Create(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return nil, store.ErrAlreadyExists
	}

	now := s.now().UTC()
	task := &domain.Task{
		ID:          id,
		State:       domain.StatePending,
		ProgressLog: []string{},
		Findings:    []domain.Finding{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[id] = task
	return snapshot(task), nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return snapshot(task), nil
}

// Update applies the partial update inside a single critical section, so a
// concurrent Get never sees a terminal state without the findings or error
// message written alongside it.
func (s *Store) Update(ctx context.Context, id string, upd store.TaskUpdate) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if task.State.Terminal() {
		return nil, store.ErrTerminalState
	}
	if len(upd.Findings) > 0 && len(task.Findings) > 0 {
		return nil, store.ErrFindingsAlreadySet
	}

	if len(upd.ProgressAppend) > 0 {
		task.ProgressLog = append(task.ProgressLog, upd.ProgressAppend...)
	}
	if len(upd.Findings) > 0 {
		task.Findings = append([]domain.Finding(nil), upd.Findings...)
	}
	if upd.ErrorMessage != nil && task.ErrorMessage == "" {
		task.ErrorMessage = *upd.ErrorMessage
	}
	if upd.Webhook != "" && task.Webhook == "" {
		task.Webhook = upd.Webhook
	}
	if upd.State != nil {
		task.State = *upd.State
	}
	task.UpdatedAt = s.now().UTC()

	return snapshot(task), nil
}

func (s *Store) Health(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// snapshot deep-copies the slices so callers cannot mutate stored state.
func snapshot(task *domain.Task) *domain.Task {
	cp := *task
	cp.ProgressLog = append([]string(nil), task.ProgressLog...)
	cp.Findings = append([]domain.Finding(nil), task.Findings...)
	return &cp
}
