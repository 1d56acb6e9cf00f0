package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crunchio/activityd/internal/api"
	"github.com/crunchio/activityd/internal/lifecycle"
	"github.com/crunchio/activityd/internal/model"
	"github.com/crunchio/activityd/internal/pool"
	"github.com/crunchio/activityd/internal/store"
	"github.com/crunchio/activityd/internal/task"
)

// Scaled-down simulation parameters: the reference 5s..11s task span with an
// 8s deadline becomes 50ms..110ms with an 80ms deadline, preserving the
// proportion of requests that should time out.
const (
	e2eTaskMin  = 50 * time.Millisecond
	e2eTaskMax  = 110 * time.Millisecond
	e2eDeadline = 80 * time.Millisecond
)

func newE2EServer(t *testing.T, faults task.Faults) (*httptest.Server, store.Store) {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	workers := pool.New(0)
	ctrl := lifecycle.NewController(workers, s, logger)
	sim := task.NewSimulator(task.Options{
		Faults:      faults,
		MinDuration: e2eTaskMin,
		MaxDuration: e2eTaskMax,
		Checkpoint:  10 * time.Millisecond,
		Seed:        7,
	}, logger)

	srv := api.NewServer(":0", s, ctrl, sim, e2eDeadline, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, s
}

// waitForTotal polls the store until the given number of records exists.
func waitForTotal(t *testing.T, s store.Store, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, total, err := s.ListRequests(context.Background(), 1, 0)
		if err != nil {
			t.Fatalf("ListRequests: %v", err)
		}
		if total >= n {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("store did not reach %d records within %v", n, timeout)
}

func TestConcurrentRequestsResolveExactlyOnce(t *testing.T) {
	const requests = 100

	ts, s := newE2EServer(t, task.NoFaults())

	var (
		wg        sync.WaitGroup
		ok200     atomic.Int64
		busy503   atomic.Int64
		other     atomic.Int64
		responses atomic.Int64
	)

	surfaces := []string{"suspended", "reactive"}
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/v1/activities/" + surfaces[i%2])
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			responses.Add(1)

			switch resp.StatusCode {
			case http.StatusOK:
				ok200.Add(1)
			case http.StatusServiceUnavailable:
				busy503.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	// Every request gets exactly one transmission.
	if got := responses.Load(); got != requests {
		t.Errorf("responses = %d, want %d", got, requests)
	}
	if got := other.Load(); got != 0 {
		t.Errorf("unexpected statuses = %d, want 0", got)
	}

	// Task durations straddle the deadline, so both outcomes must appear.
	if ok200.Load() == 0 {
		t.Error("no request succeeded; durations below the deadline should")
	}
	if busy503.Load() == 0 {
		t.Error("no request timed out; durations above the deadline should")
	}

	// Exactly one record per request, each with a terminal outcome matching
	// its transmission.
	waitForTotal(t, s, requests, 10*time.Second)

	records, total, err := s.ListRequests(context.Background(), requests, 0)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if total != requests {
		t.Fatalf("records = %d, want %d (no double resolutions)", total, requests)
	}

	var successes, timeouts int
	for _, r := range records {
		switch r.Outcome {
		case model.OutcomeSuccess:
			successes++
		case model.OutcomeTimeout:
			timeouts++
		default:
			t.Errorf("record %s has outcome %q, want success or timeout", r.ID, r.Outcome)
		}
	}
	if int64(successes) != ok200.Load() {
		t.Errorf("success records = %d, 200 responses = %d", successes, ok200.Load())
	}
	if int64(timeouts) != busy503.Load() {
		t.Errorf("timeout records = %d, 503 responses = %d", timeouts, busy503.Load())
	}
}

func TestConcurrentRequestsWithFaults(t *testing.T) {
	const requests = 40

	// Every task faults immediately, before the long-running phase, so every
	// response must be a 500 regardless of the deadline.
	ts, s := newE2EServer(t, task.NewRandomFaults(3, 1.0))

	var wg sync.WaitGroup
	var errors500 atomic.Int64
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			surface := "suspended"
			if i%2 == 1 {
				surface = "reactive"
			}
			resp, err := http.Get(ts.URL + "/v1/activities/" + surface)
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			if resp.StatusCode == http.StatusInternalServerError {
				errors500.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := errors500.Load(); got != requests {
		t.Errorf("500 responses = %d, want %d", got, requests)
	}

	waitForTotal(t, s, requests, 10*time.Second)
	stats, err := s.GetRequestStats(context.Background())
	if err != nil {
		t.Fatalf("GetRequestStats: %v", err)
	}
	if stats.CountByOutcome[model.OutcomeFailure] != requests {
		t.Errorf("failure records = %d, want %d", stats.CountByOutcome[model.OutcomeFailure], requests)
	}
}
