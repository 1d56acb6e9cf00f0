// Package pool provides a shared worker pool for running request tasks off
// the request-handling goroutines.
package pool

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrSaturated is returned by Submit when a bounded pool has no capacity left.
var ErrSaturated = errors.New("worker pool saturated")

var inflightTasks = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "activityd_inflight_tasks",
	Help: "Number of tasks currently executing on the worker pool.",
})

func init() {
	prometheus.MustRegister(inflightTasks)
}

// Pool executes submitted tasks on their own goroutines, optionally bounded
// by a concurrency limit. Submit never blocks the caller: a bounded pool with
// no free slot rejects the task instead of queueing it.
//
// The pool is process-wide and shared across concurrent requests.
type Pool struct {
	sem chan struct{} // nil when unbounded
	wg  sync.WaitGroup
}

// New creates a pool. size <= 0 means unbounded concurrency, matching the
// shared general-purpose executor of the reference behavior; size > 0 caps
// the number of concurrently running tasks.
func New(size int) *Pool {
	p := &Pool{}
	if size > 0 {
		p.sem = make(chan struct{}, size)
	}
	return p
}

// Submit schedules fn to run on its own goroutine. It returns ErrSaturated
// when the pool is bounded and every slot is busy; otherwise the task is
// guaranteed to run.
func (p *Pool) Submit(fn func()) error {
	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
		default:
			return ErrSaturated
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			defer func() { <-p.sem }()
		}
		inflightTasks.Inc()
		defer inflightTasks.Dec()
		fn()
	}()

	return nil
}

// Wait blocks until all in-flight tasks complete. Used during shutdown.
func (p *Pool) Wait() {
	p.wg.Wait()
}
