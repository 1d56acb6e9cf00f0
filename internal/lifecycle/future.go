package lifecycle

import "time"

// Future is the single-assignment exposure of a pending request: instead of
// producers calling explicit resume methods on the handle, the transport
// holds a future and the producer completes it. Both styles share the same
// first-wins resolution core.
type Future struct {
	p *PendingRequest
}

// NewFuture creates a standalone future around a fresh pending request.
func NewFuture(id string) *Future {
	return &Future{p: NewPendingRequest(id)}
}

// ID returns the underlying request identifier.
func (f *Future) ID() string { return f.p.ID() }

// Complete resolves the future with a value. Reports whether this call won
// the resolution race.
func (f *Future) Complete(value []byte) bool {
	return f.p.Resolve(Success(value))
}

// CompleteWithError resolves the future with an error.
func (f *Future) CompleteWithError(err error) bool {
	return f.p.Resolve(Failure(err))
}

// CompleteAfterTimeout arranges a race between normal completion and a
// deadline: if nothing resolves the future within d, it resolves with the
// fallback outcome. First writer wins; a timer that loses is stopped and
// discarded.
func (f *Future) CompleteAfterTimeout(fallback Outcome, d time.Duration) {
	f.p.attachTimer(time.AfterFunc(d, func() {
		f.p.Resolve(fallback)
	}))
}

// OnCompletion registers an observer, with the same replay-after-resolution
// policy as the pending handle.
func (f *Future) OnCompletion(fn Observer) {
	f.p.OnCompletion(fn)
}

// Done returns a channel closed once the future resolves.
func (f *Future) Done() <-chan struct{} { return f.p.Done() }

// Outcome returns the resolved outcome and whether resolution has happened.
func (f *Future) Outcome() (Outcome, bool) { return f.p.Outcome() }
