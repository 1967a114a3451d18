package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
)

// InitializeHandler handles POST /initialize: drops every store key and all
// click logs. This is the environment reset boundary, not part of the
// steady-state serving contract.
func (s *Server) InitializeHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "initialize"
	const method = "POST"

	if err := s.Store.Reset(r.Context()); err != nil {
		logger.Error("reset store", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	if err := s.Clicks.Reset(); err != nil {
		logger.Error("reset click logs", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}

	logger.Info("environment reset")
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
