package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/store"
)

// identityCookie is the optional click-identity cookie encoding gender and
// age as "<gender>/<age>".
const identityCookie = "slotserve_uid"

// RedirectHandler handles GET /slots/{slot}/ads/{id}/redirect: durably
// records the click, then redirects to the advertiser's destination. The
// click must be on disk before the redirect is issued; a failed append
// aborts the request rather than losing the event.
func (s *Server) RedirectHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "RedirectHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/slots/{slot}/ads/{id}/redirect"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "redirect"
	const method = "GET"

	vars := mux.Vars(r)
	ad, err := s.Store.Get(ctx, vars["slot"], vars["id"])
	if err == store.ErrNotFound {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		s.writeNotFound(w)
		return
	}
	if err != nil {
		span.RecordError(err)
		logger.Error("read ad", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	userToken := ""
	cookie, err := r.Cookie(identityCookie)
	if err != nil && !errors.Is(err, http.ErrNoCookie) {
		logger.Warn("read identity cookie", zap.Error(err))
	}
	if cookie != nil {
		userToken = cookie.Value
	}

	if err := s.Clicks.Record(ad.Advertiser, idString(ad.ID), userToken, r.Header.Get("User-Agent")); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click append failed")
		logger.Error("record click", zap.Error(err),
			zap.String("advertiser", ad.Advertiser),
			zap.Int64("ad_id", ad.ID))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "click recording failed", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementEvent("click")
	s.Metrics.IncrementRequests(endpoint, method, "302")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	http.Redirect(w, r, ad.Destination, http.StatusFound)
}
