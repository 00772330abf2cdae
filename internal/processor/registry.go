package processor

import (
	"fmt"
	"sync"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
)

// RequestType identifies the kind of client request a processor serves
type RequestType int

const (
	RequestResolve RequestType = iota
	RequestBlobBySeqID
	RequestBlobByID
	RequestAnnot
	numRequestTypes
)

var requestTypeNames = [numRequestTypes]string{
	RequestResolve:     "resolve",
	RequestBlobBySeqID: "get_blob_by_seq_id",
	RequestBlobByID:    "get_blob_by_sat_sat_key",
	RequestAnnot:       "get_na",
}

func (t RequestType) String() string {
	if t >= 0 && t < numRequestTypes {
		return requestTypeNames[t]
	}
	return fmt.Sprintf("request_type(%d)", int(t))
}

// RequestTypes lists every handled request type
func RequestTypes() []RequestType {
	out := make([]RequestType, numRequestTypes)
	for i := range out {
		out[i] = RequestType(i)
	}
	return out
}

// ParseRequestType maps a name back to its type
func ParseRequestType(name string) (RequestType, error) {
	for i, n := range requestTypeNames {
		if n == name {
			return RequestType(i), nil
		}
	}
	return 0, errors.Logic(fmt.Sprintf("unhandled request type %q", name))
}

func (t RequestType) check() error {
	if t < 0 || t >= numRequestTypes {
		return errors.Logic(fmt.Sprintf("unhandled request type %d", int(t)))
	}
	return nil
}

// Registry counts active processors per request type and processor slot,
// and backlogged requests per request type. The slot is the processor's
// index in priority order.
type Registry struct {
	mu         sync.Mutex
	processors []string
	active     [numRequestTypes][]int64
	backlog    [numRequestTypes]int64
}

// NewRegistry creates zeroed counters for the named processors, highest
// priority first
func NewRegistry(processors ...string) *Registry {
	r := &Registry{processors: append([]string(nil), processors...)}
	for i := range r.active {
		r.active[i] = make([]int64, len(processors))
	}
	return r
}

// Processors returns the processor names in slot order
func (r *Registry) Processors() []string {
	return append([]string(nil), r.processors...)
}

// Slot returns the counter slot of a processor name
func (r *Registry) Slot(name string) (int, error) {
	for i, n := range r.processors {
		if n == name {
			return i, nil
		}
	}
	return -1, errors.Logic(fmt.Sprintf("unknown processor %q", name))
}

func (r *Registry) checkSlot(slot int) error {
	if slot < 0 || slot >= len(r.processors) {
		return errors.Logic(fmt.Sprintf("processor slot %d out of range", slot))
	}
	return nil
}

// IncActive counts one more running processor
func (r *Registry) IncActive(t RequestType, slot int) error {
	return r.addActive(t, slot, 1)
}

// DecActive counts one less running processor
func (r *Registry) DecActive(t RequestType, slot int) error {
	return r.addActive(t, slot, -1)
}

func (r *Registry) addActive(t RequestType, slot int, delta int64) error {
	if err := t.check(); err != nil {
		return err
	}
	if err := r.checkSlot(slot); err != nil {
		return err
	}
	r.mu.Lock()
	r.active[t][slot] += delta
	r.mu.Unlock()
	return nil
}

// IncBacklog counts one more request waiting for admission
func (r *Registry) IncBacklog(t RequestType) error {
	return r.addBacklog(t, 1)
}

// DecBacklog counts one less waiting request
func (r *Registry) DecBacklog(t RequestType) error {
	return r.addBacklog(t, -1)
}

func (r *Registry) addBacklog(t RequestType, delta int64) error {
	if err := t.check(); err != nil {
		return err
	}
	r.mu.Lock()
	r.backlog[t] += delta
	r.mu.Unlock()
	return nil
}

// Active returns one active counter
func (r *Registry) Active(t RequestType, slot int) int64 {
	if t.check() != nil || r.checkSlot(slot) != nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[t][slot]
}

// Backlog returns the backlog counter of a request type
func (r *Registry) Backlog(t RequestType) int64 {
	if t.check() != nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backlog[t]
}

// Snapshot is a point-in-time copy of every counter
type Snapshot struct {
	Active  map[string]map[string]int64 `json:"active"`
	Backlog map[string]int64            `json:"backlog"`
}

// Snapshot copies all counters under one lock
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Active:  make(map[string]map[string]int64, numRequestTypes),
		Backlog: make(map[string]int64, numRequestTypes),
	}
	for t := RequestType(0); t < numRequestTypes; t++ {
		byProc := make(map[string]int64, len(r.processors))
		for slot, name := range r.processors {
			byProc[name] = r.active[t][slot]
		}
		s.Active[t.String()] = byProc
		s.Backlog[t.String()] = r.backlog[t]
	}
	return s
}
