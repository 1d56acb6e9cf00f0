package lifecycle

import (
	"sync"
	"time"
)

// Observer is invoked exactly once with the final outcome of a request.
type Observer func(Outcome)

// PendingRequest is the single-resolution slot representing one in-flight
// request. Multiple producers (worker task, deadline timer, fallback writer)
// race to resolve it; exactly one wins. It is safe for concurrent use.
//
// The transition Open -> Resolved is irreversible. Resolution stops any
// attached timers, runs completion observers in registration order, then
// closes Done so the transport can transmit the stored outcome.
type PendingRequest struct {
	id   string
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	outcome   Outcome
	observers []Observer
	timers    []*time.Timer
}

// NewPendingRequest creates a handle in the Open state.
func NewPendingRequest(id string) *PendingRequest {
	return &PendingRequest{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the request identifier.
func (p *PendingRequest) ID() string { return p.id }

// IsOpen reports whether the request is still unresolved. It is a best-effort
// short-circuit for producers; the authoritative check is the transition
// inside Resolve.
func (p *PendingRequest) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.resolved
}

// Resolve attempts the Open -> Resolved transition and reports whether this
// call won the race. Only the winner's outcome is retained; losing attempts
// are no-ops and never re-invoke observers.
func (p *PendingRequest) Resolve(o Outcome) bool {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return false
	}
	p.resolved = true
	p.outcome = o
	observers := p.observers
	p.observers = nil
	timers := p.timers
	p.timers = nil
	p.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, fn := range observers {
		fn(o)
	}
	close(p.done)

	return true
}

// OnCompletion registers an observer to run once after resolution. If the
// request is already resolved, the stored outcome is replayed immediately on
// the caller's goroutine.
func (p *PendingRequest) OnCompletion(fn Observer) {
	p.mu.Lock()
	if !p.resolved {
		p.observers = append(p.observers, fn)
		p.mu.Unlock()
		return
	}
	o := p.outcome
	p.mu.Unlock()

	fn(o)
}

// Done returns a channel closed after resolution, once observers have run.
func (p *PendingRequest) Done() <-chan struct{} { return p.done }

// Outcome returns the recorded outcome and whether the request has resolved.
func (p *PendingRequest) Outcome() (Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, p.resolved
}

// attachTimer ties a timer's lifetime to the request: if the request resolves
// through another path first, the timer is stopped so it cannot fire late. A
// timer attached after resolution is stopped immediately.
func (p *PendingRequest) attachTimer(t *time.Timer) {
	p.mu.Lock()
	if !p.resolved {
		p.timers = append(p.timers, t)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	t.Stop()
}
