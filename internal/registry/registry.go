// Package registry holds the in-memory task registry: the single source of
// truth for what every download job is doing right now. Entries are created
// on submission, written only by the job's owning worker, and read by the
// progress relay and status endpoints.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/streamfetch/internal/domain"
)

const (
	// eventBuffer is the per-task event channel capacity. The stored state is
	// the source of truth; an event dropped on a full channel only delays the
	// relay until the next update or keep-alive.
	eventBuffer = 64

	// Terminal tasks are kept around so late-connecting clients still see the
	// outcome, then reaped to bound memory.
	terminalGrace = 30 * time.Minute
	reapInterval  = 5 * time.Minute
)

type entry struct {
	task   domain.Task
	events chan domain.Update
	token  *Token
}

// Handle is returned to the submission path and passed to the spawned worker.
type Handle struct {
	ID    string
	Token *Token
}

// Registry is a concurrency-safe map from task ID to task state plus its
// event channel. Individual Update/Get calls are atomic; within one task only
// the owning worker writes.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*entry
	logger *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tasks:  make(map[string]*entry),
		logger: logger,
	}
}

// Create allocates a fresh task in the starting state and returns its handle.
func (r *Registry) Create(model string) *Handle {
	id := uuid.New().String()
	e := &entry{
		task: domain.Task{
			ID:        id,
			Status:    domain.StatusStarting,
			Progress:  0,
			Model:     model,
			CreatedAt: time.Now().UTC(),
		},
		events: make(chan domain.Update, eventBuffer),
		token:  &Token{},
	}

	r.mu.Lock()
	r.tasks[id] = e
	r.mu.Unlock()

	return &Handle{ID: id, Token: e.token}
}

// Update merges the given fields into the stored task state and forwards the
// same partial to the task's event channel. No-op for unknown IDs.
func (r *Registry) Update(id string, u domain.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return
	}
	e.task.Apply(u)

	select {
	case e.events <- u:
	default:
		// Channel full: drop. The relay re-reads stored state on timeout.
	}
}

// Get returns a copy of the task state.
func (r *Registry) Get(id string) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, &domain.TaskNotFoundError{TaskID: id}
	}
	return e.task, nil
}

// Subscribe returns the task's event channel for a progress relay.
func (r *Registry) Subscribe(id string) (<-chan domain.Update, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tasks[id]
	if !ok {
		return nil, &domain.TaskNotFoundError{TaskID: id}
	}
	return e.events, nil
}

// Cancel trips the task's cancellation token.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.tasks[id]
	r.mu.RUnlock()

	if !ok {
		return &domain.TaskNotFoundError{TaskID: id}
	}
	e.token.Cancel()
	return nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Reap removes tasks that reached a terminal state before cutoff and closes
// their event channels. Returns the number of entries removed.
func (r *Registry) Reap(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.tasks {
		if e.task.Status.IsTerminal() && !e.task.CompletedAt.IsZero() && e.task.CompletedAt.Before(cutoff) {
			close(e.events)
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// StartReaper evicts stale terminal tasks in the background until ctx is
// cancelled.
func (r *Registry) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.Reap(now.Add(-terminalGrace)); n > 0 {
					r.logger.Info("reaped finished tasks", slog.Int("count", n))
				}
			}
		}
	}()
}
