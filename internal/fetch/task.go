// Package fetch wraps one outstanding storage query with cancellation and
// at-most-once delivery of its terminal callback.
package fetch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// State of a fetch task
type State int

const (
	StatePending State = iota
	StateReading
	StateFinished
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReading:
		return "reading"
	case StateFinished:
		return "finished"
	default:
		return "canceled"
	}
}

// Task is the type-erased view of a fetch task kept by a processor
type Task interface {
	ID() string
	Kind() string
	State() State
	ReadFinished() bool
	SetReadFinished()
	Cancel()
	Release()
}

// Query runs one storage request; it must honor ctx cancellation
type Query[T any] func(ctx context.Context) (T, error)

// FetchTask runs one query on a pool and delivers exactly one of the
// consume or error callbacks, unless canceled first.
type FetchTask[T any] struct {
	id    string
	kind  string
	query Query[T]

	onConsume func(T)
	onError   func(*errors.Error)

	mu           sync.Mutex
	state        State
	readFinished bool
	delivered    bool
	ctx          context.Context
	cancel       context.CancelFunc
	cancelOnce   sync.Once

	releaseOnce sync.Once
	onRelease   []func()
}

// New creates a pending task; callbacks are fixed at construction
func New[T any](kind string, query Query[T], onConsume func(T), onError func(*errors.Error)) *FetchTask[T] {
	return &FetchTask[T]{
		id:        uuid.New().String(),
		kind:      kind,
		query:     query,
		onConsume: onConsume,
		onError:   onError,
		state:     StatePending,
	}
}

func (t *FetchTask[T]) ID() string   { return t.id }
func (t *FetchTask[T]) Kind() string { return t.kind }

// State returns the current lifecycle state
func (t *FetchTask[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ReadFinished reports whether the task produced its result or was canceled
func (t *FetchTask[T]) ReadFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readFinished
}

// SetReadFinished marks the task done; calling it again has no effect
func (t *FetchTask[T]) SetReadFinished() {
	t.mu.Lock()
	t.readFinished = true
	if t.state == StatePending || t.state == StateReading {
		t.state = StateFinished
	}
	t.mu.Unlock()
}

// Start submits the query. A task is never re-armed: retrying means
// constructing a new task.
func (t *FetchTask[T]) Start(parent context.Context, pool *workerpool.Pool) error {
	t.mu.Lock()
	if t.state != StatePending {
		st := t.state
		t.mu.Unlock()
		return errors.Logic("fetch task " + t.id + " started in state " + st.String())
	}
	t.ctx, t.cancel = context.WithCancel(parent)
	t.state = StateReading
	ctx := t.ctx
	t.mu.Unlock()

	err := pool.Submit(workerpool.Job{
		ID:      t.id,
		Kind:    t.kind,
		Context: ctx,
		Run:     t.run,
	})
	if err != nil {
		t.mu.Lock()
		t.state = StateFinished
		t.readFinished = true
		t.delivered = true
		t.mu.Unlock()
		t.cancel()
		return errors.Unavailable("cannot submit "+t.kind+" query", err)
	}
	return nil
}

func (t *FetchTask[T]) run(ctx context.Context) {
	if ctx.Err() != nil {
		t.deliver(*new(T), errors.Canceled(t.kind+" query canceled"))
		return
	}
	res, err := t.query(ctx)
	if err != nil {
		t.deliver(res, errors.From(err))
		return
	}
	t.deliver(res, nil)
}

// deliver fires at most one terminal callback. After Cancel the late
// result is swallowed.
func (t *FetchTask[T]) deliver(res T, err *errors.Error) {
	t.mu.Lock()
	if t.delivered || t.state == StateCanceled {
		t.readFinished = true
		t.mu.Unlock()
		return
	}
	t.delivered = true
	t.readFinished = true
	t.state = StateFinished
	t.mu.Unlock()

	if err != nil {
		if t.onError != nil {
			t.onError(err)
		}
		return
	}
	if t.onConsume != nil {
		t.onConsume(res)
	}
}

// Cancel stops the query and suppresses any callback not yet delivered.
// It is idempotent.
func (t *FetchTask[T]) Cancel() {
	t.cancelOnce.Do(func() {
		t.mu.Lock()
		if !t.delivered {
			t.state = StateCanceled
		}
		t.readFinished = true
		cancel := t.cancel
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}
	})
}

// OnRelease registers a teardown hook run once by Release
func (t *FetchTask[T]) OnRelease(fn func()) {
	t.mu.Lock()
	t.onRelease = append(t.onRelease, fn)
	t.mu.Unlock()
}

// Release runs teardown hooks. Owners call it on every exit path.
func (t *FetchTask[T]) Release() {
	t.releaseOnce.Do(func() {
		t.mu.Lock()
		hooks := t.onRelease
		t.onRelease = nil
		cancel := t.cancel
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
	})
}
