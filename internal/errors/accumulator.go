package errors

import "strings"

// Entry is one accumulated stage failure
type Entry struct {
	Message string
	Status  int
}

// Accumulator collects stage-local failures of one resolution attempt in order
type Accumulator struct {
	entries []Entry
}

// Add appends a failure
func (a *Accumulator) Add(message string, status int) {
	a.entries = append(a.entries, Entry{Message: message, Status: status})
}

// AddError appends a failure taken from err
func (a *Accumulator) AddError(err error) {
	if err == nil {
		return
	}
	a.Add(err.Error(), StatusOf(err))
}

// Len returns the number of accumulated failures
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the accumulated failures
func (a *Accumulator) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Reset discards everything accumulated so far
func (a *Accumulator) Reset() {
	a.entries = nil
}

// CombinedStatus is the maximum accumulated status, or not found when empty
func (a *Accumulator) CombinedStatus() int {
	if len(a.entries) == 0 {
		return StatusNotFound
	}
	max := a.entries[0].Status
	for _, e := range a.entries[1:] {
		if e.Status > max {
			max = e.Status
		}
	}
	return max
}

// CombinedMessage joins accumulated messages in insertion order
func (a *Accumulator) CombinedMessage() string {
	msgs := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Combined builds the final error reported once every candidate is exhausted
func (a *Accumulator) Combined(fallback string) *Error {
	msg := a.CombinedMessage()
	if msg == "" {
		msg = fallback
	}
	status := a.CombinedStatus()
	kind := KindNotFound
	switch {
	case status == StatusBadGateway:
		kind = KindDataInconsistency
	case status == StatusGatewayTimeout:
		kind = KindTimeout
	case status == StatusServiceUnavailable:
		kind = KindUnavailable
	case status >= StatusInternalError:
		kind = KindInternal
	case status == StatusBadRequest:
		kind = KindParseError
	}
	e := New(kind, msg, nil)
	e.Status = status
	if status >= StatusInternalError {
		e.Severity = SeverityError
	}
	return e
}
