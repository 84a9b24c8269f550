package store

import (
	"context"
	"errors"

	"github.com/osvaldoandrade/osintq/pkg/domain"
)

var (
	// ErrNotFound is returned when a task id does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a task id already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrTerminalState is returned when updating a COMPLETED or FAILED task
	ErrTerminalState = errors.New("task is in a terminal state")

	// ErrFindingsAlreadySet is returned on a second findings write
	ErrFindingsAlreadySet = errors.New("findings already set")
)

// TaskUpdate enumerates exactly the fields a caller may mutate on a stored
// task. Nil/empty fields are left untouched. Findings and ErrorMessage are
// set-once; ProgressAppend entries are appended in order.
type TaskUpdate struct {
	State          *domain.TaskState
	ProgressAppend []string
	Findings       []domain.Finding
	ErrorMessage   *string

	// Webhook is set once at registration time, before the pipeline starts.
	Webhook string
}

// TaskStore is the process-wide registry of investigation tasks. All
// operations are safe under concurrent access from the scheduler and from
// running pipelines; an Update is applied atomically, so a poller never
// observes a terminal state without the fields written alongside it.
type TaskStore interface {
	// Create registers a new task in PENDING state with empty log/findings.
	Create(ctx context.Context, id string) (*domain.Task, error)

	// Get returns a snapshot of the task, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// Update merges the given partial update into the stored task and
	// returns the resulting snapshot. Fails with ErrNotFound for unknown
	// ids and with ErrTerminalState once the task is COMPLETED or FAILED.
	Update(ctx context.Context, id string, upd TaskUpdate) (*domain.Task, error)

	// Health checks if the store backend is usable.
	Health(ctx context.Context) error

	// Close releases resources held by the store backend.
	Close() error
}
