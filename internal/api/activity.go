package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crunchio/activityd/internal/lifecycle"
	"github.com/crunchio/activityd/internal/model"
	"github.com/crunchio/activityd/internal/pool"
)

// handleSuspendedActivities is the suspend-and-resume surface. The handler
// goroutine parks on the pending handle while the task runs on the shared
// worker pool; the controller's deadline timer, the task, and the disconnect
// watcher race to resolve the handle, and whatever wins is transmitted
// exactly once.
func (s *Server) handleSuspendedActivities(w http.ResponseWriter, r *http.Request) {
	h := s.controller.Begin(r.Context(), lifecycle.Spec{
		Surface: model.SurfaceSuspended,
		Timeout: s.timeout,
		Task:    s.sim.Run,
	})
	h.OnCompletion(observeActivityOutcome(model.SurfaceSuspended))

	s.logger.Info("request suspended", "request_id", h.ID())

	select {
	case <-h.Done():
		outcome, _ := h.Outcome()
		s.writeOutcome(w, outcome)
	case <-r.Context().Done():
		// Client gone; the controller cancels the task and the late
		// resolution is recorded without a transmission.
	}
}

// handleReactiveActivities is the future-returning surface. The deadline is a
// race arranged on the future itself rather than a controller timer,
// mirroring the completion-stage style.
func (s *Server) handleReactiveActivities(w http.ResponseWriter, r *http.Request) {
	f := s.controller.BeginFuture(r.Context(), lifecycle.Spec{
		Surface: model.SurfaceReactive,
		Task:    s.sim.Run,
	})
	f.OnCompletion(observeActivityOutcome(model.SurfaceReactive))
	f.CompleteAfterTimeout(lifecycle.TimedOut(s.timeout), s.timeout)

	s.logger.Info("request processing asynchronously", "request_id", f.ID())

	select {
	case <-f.Done():
		outcome, _ := f.Outcome()
		s.writeOutcome(w, outcome)
	case <-r.Context().Done():
	}
}

// writeOutcome maps a terminal outcome onto the HTTP response. This is the
// single transmission for the request.
func (s *Server) writeOutcome(w http.ResponseWriter, o lifecycle.Outcome) {
	switch o.Kind {
	case model.OutcomeSuccess:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(o.Value); err != nil {
			s.logger.Error("write response", "error", err)
		}
	case model.OutcomeTimeout:
		s.writeError(w, http.StatusServiceUnavailable, o.Detail())
	case model.OutcomeFailure:
		if errors.Is(o.Err, pool.ErrSaturated) {
			s.writeError(w, http.StatusServiceUnavailable, "server busy, try again later")
			return
		}
		s.writeError(w, http.StatusInternalServerError, o.Detail())
	default:
		// Cancelled: the peer is normally gone by now, but answer anyway if
		// the connection is still writable.
		s.writeError(w, http.StatusInternalServerError, o.Detail())
	}
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
