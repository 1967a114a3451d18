package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/store"
)

// CountHandler handles POST /slots/{slot}/ads/{id}/count: one atomic
// impression increment per call.
func (s *Server) CountHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "count"
	const method = "POST"

	vars := mux.Vars(r)
	err := s.Store.IncrementImpressions(r.Context(), vars["slot"], vars["id"])
	if err == store.ErrNotFound {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		s.writeNotFound(w)
		return
	}
	if err != nil {
		logger.Error("increment impressions", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "increment failed", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementEvent("impression")
	s.Metrics.IncrementRequests(endpoint, method, "204")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	w.WriteHeader(http.StatusNoContent)
}
