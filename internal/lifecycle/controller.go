package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crunchio/activityd/internal/model"
	"github.com/crunchio/activityd/internal/pool"
	"github.com/crunchio/activityd/internal/store"
)

// persistTimeout bounds the store write performed after a request resolves.
const persistTimeout = 5 * time.Second

// Task is one unit of long-running work. It must observe ctx and stop
// promptly when cancelled, returning an error wrapping context.Canceled.
type Task func(ctx context.Context) ([]byte, error)

// Spec describes one asynchronous request submission.
type Spec struct {
	// Surface names the transport surface the request entered through
	// (model.SurfaceSuspended or model.SurfaceReactive).
	Surface string
	// Timeout is the deadline relative to submission. Zero disables the
	// controller-scheduled timer; the caller then owns deadline handling
	// (see Future.CompleteAfterTimeout).
	Timeout time.Duration
	// Task produces the request's result.
	Task Task
}

// Controller orchestrates the lifecycle of asynchronous requests: it wires a
// pending request to a deadline timer, a disconnect watcher, and a task on
// the shared worker pool, and guarantees that exactly one terminal outcome is
// recorded and delivered per request.
//
// The pool, store, and fault strategy are explicit dependencies rather than
// process globals so tests can substitute deterministic ones.
type Controller struct {
	pool   *pool.Pool
	store  store.Store
	broker *Broker
	logger *slog.Logger
}

// NewController creates a controller around the given worker pool and store.
func NewController(p *pool.Pool, s store.Store, logger *slog.Logger) *Controller {
	return &Controller{
		pool:   p,
		store:  s,
		broker: NewBroker(),
		logger: logger,
	}
}

// Broker returns the controller's outcome broker for SSE subscription.
func (c *Controller) Broker() *Broker {
	return c.broker
}

// Begin starts the asynchronous lifecycle for one request and returns the
// pending handle immediately; the caller's goroutine never blocks on task
// completion here.
//
// Whichever of {task success, task failure, deadline, cancellation} happens
// first resolves the handle; later events are discarded by the first-wins
// rule. ctx is the inbound request's context: its cancellation means the
// client went away, which cancels the in-flight task. The task then resolves
// the handle through its own interruption path — disconnect by itself never
// transmits an outcome.
func (c *Controller) Begin(ctx context.Context, spec Spec) *PendingRequest {
	h := NewPendingRequest(model.NewID())
	start := time.Now()

	// Built-in completion hook: operational visibility only, it must not
	// affect resolution semantics.
	h.OnCompletion(func(o Outcome) {
		c.finish(h.ID(), spec.Surface, o, start)
	})

	// The task context is deliberately detached from the request context: a
	// deadline win leaves the task running in the background with its late
	// result discarded, matching the reference behavior.
	taskCtx, cancelTask := context.WithCancel(context.Background())

	if spec.Timeout > 0 {
		h.attachTimer(time.AfterFunc(spec.Timeout, func() {
			if h.Resolve(TimedOut(spec.Timeout)) {
				c.logger.Warn("request timed out",
					"request_id", h.ID(),
					"surface", spec.Surface,
					"timeout", spec.Timeout.String(),
				)
			}
		}))
	}

	// Disconnect watcher: cancel the in-flight task when the client goes
	// away, on every surface.
	go func() {
		select {
		case <-ctx.Done():
			if h.IsOpen() {
				c.logger.Warn("client disconnected, cancelling task",
					"request_id", h.ID(),
					"surface", spec.Surface,
				)
				cancelTask()
			}
		case <-h.Done():
		}
	}()

	if err := c.pool.Submit(func() {
		defer cancelTask()
		c.runTask(taskCtx, h, spec)
	}); err != nil {
		cancelTask()
		h.Resolve(Failure(fmt.Errorf("submit task: %w", err)))
	}

	return h
}

// BeginFuture starts the same lifecycle but exposes it as a single-assignment
// future. No controller timer is scheduled; the caller arranges the deadline
// race via CompleteAfterTimeout, mirroring the completion-stage style.
func (c *Controller) BeginFuture(ctx context.Context, spec Spec) *Future {
	spec.Timeout = 0
	return &Future{p: c.Begin(ctx, spec)}
}

// runTask executes the task and maps its result onto a resolution attempt.
// Errors never cross the pool boundary: they are captured as outcomes.
func (c *Controller) runTask(ctx context.Context, h *PendingRequest, spec Spec) {
	value, err := spec.Task(ctx)
	switch {
	case err == nil:
		if !h.Resolve(Success(value)) {
			// Deadline or cancellation won; the late result is dropped.
			c.logger.Warn("task result discarded", "request_id", h.ID(), "surface", spec.Surface)
		}
	case errors.Is(err, context.Canceled):
		h.Resolve(Cancelled(err))
	default:
		h.Resolve(Failure(err))
	}
}

// finish logs, persists, and publishes the terminal outcome of a request.
func (c *Controller) finish(id, surface string, o Outcome, start time.Time) {
	durationMS := int(time.Since(start).Milliseconds())

	switch o.Kind {
	case model.OutcomeSuccess:
		c.logger.Info("request completed", "request_id", id, "surface", surface, "duration_ms", durationMS)
	default:
		c.logger.Error("request completed with error",
			"request_id", id,
			"surface", surface,
			"outcome", o.Kind,
			"error", o.Detail(),
			"duration_ms", durationMS,
		)
	}

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		rec := &model.RequestRecord{
			ID:         id,
			Surface:    surface,
			Outcome:    o.Kind,
			Detail:     o.Detail(),
			DurationMS: durationMS,
			CreatedAt:  time.Now().UTC(),
		}
		if err := c.store.InsertRequest(ctx, rec); err != nil {
			c.logger.Error("failed to persist request record", "request_id", id, "error", err)
		}
	}

	c.broker.Publish(Event{
		RequestID:  id,
		Surface:    surface,
		Outcome:    o.Kind,
		Detail:     o.Detail(),
		DurationMS: durationMS,
	})
}
