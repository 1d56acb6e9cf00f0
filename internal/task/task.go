package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Default simulation parameters. The simulated task runs for a random span of
// [DefaultMinDuration, DefaultMaxDuration], checking for cancellation once per
// DefaultCheckpoint.
const (
	DefaultMinDuration = 5 * time.Second
	DefaultMaxDuration = 11 * time.Second
	DefaultCheckpoint  = 1 * time.Second
	DefaultFaultRate   = 0.5
)

// ErrFault is the injected failure raised by the fault strategy before the
// simulated work begins.
var ErrFault = errors.New("injected task fault")

// ErrInterrupted signals that the task observed cancellation at a checkpoint
// and stopped early. It wraps context.Canceled so callers can classify it with
// errors.Is without importing this package.
var ErrInterrupted = fmt.Errorf("task interrupted: %w", context.Canceled)

// activities is the opaque payload returned by a successful run.
var activities = mustJSON([]string{"Running", "Swimming", "Cycling"})

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Faults decides, per task run, whether to inject a failure. Implementations
// must be safe for concurrent use.
type Faults interface {
	Next() bool
}

// randomFaults injects a fault with a fixed probability from a seeded source.
type randomFaults struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

// NewRandomFaults returns a fault strategy that injects a failure with the
// given probability. The seed makes test runs reproducible.
func NewRandomFaults(seed uint64, rate float64) Faults {
	return &randomFaults{
		rng:  rand.New(rand.NewPCG(seed, seed)),
		rate: rate,
	}
}

func (f *randomFaults) Next() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.rate
}

// NoFaults returns a strategy that never injects a failure.
func NoFaults() Faults { return noFaults{} }

type noFaults struct{}

func (noFaults) Next() bool { return false }

// Simulator models a long-running unit of work with cooperative cancellation.
// Each run draws a duration uniformly from [MinDuration, MaxDuration] and
// sleeps it away in Checkpoint-sized slices, consulting the context after each
// slice. Cancellation latency is therefore bounded by one checkpoint.
type Simulator struct {
	faults     Faults
	logger     *slog.Logger
	min        time.Duration
	max        time.Duration
	checkpoint time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Options configures a Simulator. Zero fields fall back to the package
// defaults.
type Options struct {
	Faults      Faults
	MinDuration time.Duration
	MaxDuration time.Duration
	Checkpoint  time.Duration
	Seed        uint64
}

// NewSimulator creates a simulator with explicit dependencies. Faults and the
// random source are injected rather than ambient so tests are deterministic.
func NewSimulator(opts Options, logger *slog.Logger) *Simulator {
	s := &Simulator{
		faults:     opts.Faults,
		logger:     logger,
		min:        opts.MinDuration,
		max:        opts.MaxDuration,
		checkpoint: opts.Checkpoint,
		rng:        rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
	}
	if s.faults == nil {
		s.faults = NewRandomFaults(opts.Seed, DefaultFaultRate)
	}
	if s.min <= 0 {
		s.min = DefaultMinDuration
	}
	if s.max < s.min {
		s.max = DefaultMaxDuration
	}
	if s.checkpoint <= 0 {
		s.checkpoint = DefaultCheckpoint
	}
	return s
}

// Run executes one simulated task. It fails immediately if the fault strategy
// injects an error, otherwise works for a random duration and returns the
// activities payload. Cancellation via ctx surfaces as ErrInterrupted within
// one checkpoint interval.
func (s *Simulator) Run(ctx context.Context) ([]byte, error) {
	if s.faults.Next() {
		s.logger.Error("task failed", "error", ErrFault)
		return nil, ErrFault
	}

	duration := s.duration()
	s.logger.Info("long-running task started", "duration", duration.String())

	for elapsed := time.Duration(0); elapsed < duration; elapsed += s.checkpoint {
		step := s.checkpoint
		if remaining := duration - elapsed; remaining < step {
			step = remaining
		}
		select {
		case <-time.After(step):
		case <-ctx.Done():
			s.logger.Warn("long-running task interrupted", "elapsed", elapsed.String())
			return nil, ErrInterrupted
		}
	}

	return activities, nil
}

// duration draws a uniform random span from [min, max].
func (s *Simulator) duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max == s.min {
		return s.min
	}
	return s.min + time.Duration(s.rng.Int64N(int64(s.max-s.min)+1))
}
