package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
)

type eventState int

const (
	lockedNobodyWaits eventState = iota
	lockedOneWaits
	unlocked
)

type event struct {
	state eventState
	done  chan struct{}
}

// Barrier serializes announcements between processors racing on one
// request. With fewer than two processors every call is a no-op.
type Barrier struct {
	mu         sync.Mutex
	processors int
	events     map[string]*event
}

// NewBarrier creates the barrier of a request served by n processors
func NewBarrier(processors int) *Barrier {
	return &Barrier{processors: processors, events: make(map[string]*event)}
}

func (b *Barrier) disabled() bool {
	return b.processors < 2
}

// Lock arms the event. Locking the same event twice is a logic error.
func (b *Barrier) Lock(name string) error {
	if b.disabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.events[name]; ok {
		return errors.Logic(fmt.Sprintf("event %q is already locked", name))
	}
	b.events[name] = &event{state: lockedNobodyWaits, done: make(chan struct{})}
	return nil
}

// Unlock releases the event and wakes its waiter
func (b *Barrier) Unlock(name string) {
	if b.disabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.events[name]
	if !ok {
		b.events[name] = &event{state: unlocked, done: closedChan()}
		return
	}
	if e.state != unlocked {
		e.state = unlocked
		close(e.done)
	}
}

// WaitFor blocks until the event is unlocked, the timeout expires (a
// Timeout error) or ctx is done. Only one waiter per event is allowed.
func (b *Barrier) WaitFor(ctx context.Context, name string, timeout time.Duration) error {
	if b.disabled() {
		return nil
	}

	b.mu.Lock()
	e, ok := b.events[name]
	switch {
	case !ok || e.state == unlocked:
		b.mu.Unlock()
		return nil
	case e.state == lockedOneWaits:
		b.mu.Unlock()
		return errors.Logic(fmt.Sprintf("event %q already has a waiter", name))
	}
	e.state = lockedOneWaits
	done := e.done
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		b.resetWaiter(e)
		return errors.Timeout(fmt.Sprintf("timeout waiting for event %q after %v", name, timeout))
	case <-ctx.Done():
		b.resetWaiter(e)
		return errors.From(ctx.Err())
	}
}

func (b *Barrier) resetWaiter(e *event) {
	b.mu.Lock()
	if e.state == lockedOneWaits {
		e.state = lockedNobodyWaits
	}
	b.mu.Unlock()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
