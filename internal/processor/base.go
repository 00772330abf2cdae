// Package processor holds the pieces shared by every request processor:
// the fetch task arena, status aggregation, event barriers and load counters.
package processor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/fetch"
)

// Base owns the fetch tasks of one processor working on one request
type Base struct {
	name     string
	priority int
	logger   *zap.Logger

	mu       sync.Mutex
	tasks    map[string]fetch.Task
	order    []string
	status   int
	complete bool
	canceled bool
}

// NewBase creates an empty processor base
func NewBase(name string, priority int, logger *zap.Logger) *Base {
	return &Base{
		name:     name,
		priority: priority,
		logger:   logger.With(zap.String("processor", name)),
		tasks:    make(map[string]fetch.Task),
		status:   errors.StatusOK,
	}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Priority() int       { return b.priority }
func (b *Base) Logger() *zap.Logger { return b.logger }

// Add registers a task. A canceled processor cancels it right away.
func (b *Base) Add(t fetch.Task) {
	b.mu.Lock()
	b.tasks[t.ID()] = t
	b.order = append(b.order, t.ID())
	canceled := b.canceled
	b.mu.Unlock()

	if canceled {
		t.Cancel()
	}
}

// Finish marks a delivered task read-finished. The task stays in the arena
// until ReleaseAll.
func (b *Base) Finish(id string) {
	b.mu.Lock()
	t, ok := b.tasks[id]
	b.mu.Unlock()

	if ok {
		t.SetReadFinished()
	}
}

// ReleaseAll destroys every owned task and runs its teardown
func (b *Base) ReleaseAll() {
	b.mu.Lock()
	tasks := make([]fetch.Task, 0, len(b.order))
	for _, id := range b.order {
		tasks = append(tasks, b.tasks[id])
	}
	b.tasks = make(map[string]fetch.Task)
	b.order = nil
	b.mu.Unlock()

	for _, t := range tasks {
		t.SetReadFinished()
		t.Release()
	}
}

// Tasks returns the owned tasks in creation order
func (b *Base) Tasks() []fetch.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]fetch.Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.tasks[id])
	}
	return out
}

// MarkComplete lets a processor that issues no tasks report completion
func (b *Base) MarkComplete() {
	b.mu.Lock()
	b.complete = true
	b.mu.Unlock()
}

// IsComplete is true when the arena is non-empty and every task in it has
// finished reading, or when the processor marked itself complete.
func (b *Base) IsComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.complete {
		return true
	}
	if len(b.tasks) == 0 {
		return false
	}
	for _, t := range b.tasks {
		if !t.ReadFinished() {
			return false
		}
	}
	return true
}

// ReportStatus folds a status into the running maximum
func (b *Base) ReportStatus(status int) {
	b.mu.Lock()
	if status > b.status {
		b.status = status
	}
	b.mu.Unlock()
}

// Status is the highest status reported so far
func (b *Base) Status() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// ErrorHandler wraps fn so every task error is folded into Status first
func (b *Base) ErrorHandler(fn func(*errors.Error)) func(*errors.Error) {
	return func(err *errors.Error) {
		b.ReportStatus(err.Status)
		if err.Kind == errors.KindLogicError {
			b.logger.Error("Logic error", zap.Error(err))
		}
		if fn != nil {
			fn(err)
		}
	}
}

// Cancel cancels every owned task once; later calls do nothing
func (b *Base) Cancel() {
	b.mu.Lock()
	if b.canceled {
		b.mu.Unlock()
		return
	}
	b.canceled = true
	tasks := make([]fetch.Task, 0, len(b.order))
	for _, id := range b.order {
		tasks = append(tasks, b.tasks[id])
	}
	b.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	b.logger.Debug("Processor canceled", zap.Int("tasks", len(tasks)))
}

// IsCanceled reports whether Cancel was called
func (b *Base) IsCanceled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canceled
}
