package model

import "time"

// Terminal outcome constants for an asynchronous request.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Transport surface constants. A request enters through exactly one surface.
const (
	SurfaceSuspended = "suspended"
	SurfaceReactive  = "reactive"
)

// ValidOutcome reports whether s is a known terminal outcome.
func ValidOutcome(s string) bool {
	switch s {
	case OutcomeSuccess, OutcomeFailure, OutcomeTimeout, OutcomeCancelled:
		return true
	}
	return false
}

// RequestRecord is the persisted trace of one asynchronous request: which
// surface it entered through, how it terminated, and how long it was in
// flight. Exactly one record is written per request, after resolution.
type RequestRecord struct {
	ID         string    `json:"id"`
	Surface    string    `json:"surface"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
