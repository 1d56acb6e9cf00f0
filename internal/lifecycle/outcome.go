package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/crunchio/activityd/internal/model"
)

// ErrDeadlineExceeded is the error carried by a timeout outcome.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// Outcome is the tagged terminal result of one asynchronous request. Exactly
// one of Value or Err is meaningful, depending on Kind.
type Outcome struct {
	Kind  string
	Value []byte
	Err   error
}

// Success wraps a task's result payload.
func Success(value []byte) Outcome {
	return Outcome{Kind: model.OutcomeSuccess, Value: value}
}

// Failure wraps a task or submission error.
func Failure(err error) Outcome {
	return Outcome{Kind: model.OutcomeFailure, Err: err}
}

// TimedOut is the outcome recorded when the deadline fires first.
func TimedOut(after time.Duration) Outcome {
	return Outcome{
		Kind: model.OutcomeTimeout,
		Err:  fmt.Errorf("operation timed out after %s: %w", after, ErrDeadlineExceeded),
	}
}

// Cancelled is the outcome recorded when the task observed cooperative
// cancellation mid-run, typically after the client went away.
func Cancelled(err error) Outcome {
	return Outcome{Kind: model.OutcomeCancelled, Err: err}
}

// Detail returns a human-readable description of a non-success outcome, or
// empty for success. Used for persistence and the event stream.
func (o Outcome) Detail() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return ""
}
