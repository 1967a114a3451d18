package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/clicklog"
	"github.com/slotserve/slotserve/internal/config"
	"github.com/slotserve/slotserve/internal/models"
	"github.com/slotserve/slotserve/internal/observability"
	"github.com/slotserve/slotserve/internal/reporting"
	"github.com/slotserve/slotserve/internal/rotation"
	"github.com/slotserve/slotserve/internal/store"
)

var tracer = otel.Tracer("slotserve")

// advertiserHeader carries the opaque advertiser identity. The value is
// trusted as-is; authenticating advertisers is out of scope.
const advertiserHeader = "X-Advertiser-Id"

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger  *zap.Logger
	Store   *store.Store
	Rotator *rotation.Rotator
	Clicks  *clicklog.Log
	Reports *reporting.Aggregator
	Metrics observability.MetricsRegistry
	Config  config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, s *store.Store, rotator *rotation.Rotator, clicks *clicklog.Log, reports *reporting.Aggregator, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:  logger,
		Store:   s,
		Rotator: rotator,
		Clicks:  clicks,
		Reports: reports,
		Metrics: metrics,
		Config:  cfg,
	}
}

// advertiserID extracts the opaque advertiser identity from the request.
func advertiserID(r *http.Request) string {
	return r.Header.Get(advertiserHeader)
}

// urlFor builds an externally visible URL for path. The configured public
// host wins over the request Host so derived URLs stay stable behind a
// proxy.
func (s *Server) urlFor(r *http.Request, path string) string {
	host := s.Config.PublicHost
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return path
	}
	return "http://" + host + path
}

// idString formats an ad id for URL paths.
func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// withEndpoints enriches an Ad with its derived asset, redirect and counter
// URLs.
func (s *Server) withEndpoints(r *http.Request, ad *models.Ad) *models.AdWithEndpoints {
	base := "/slots/" + ad.Slot + "/ads/" + idString(ad.ID)
	return &models.AdWithEndpoints{
		Ad:       *ad,
		Asset:    s.urlFor(r, base+"/asset"),
		Redirect: s.urlFor(r, base+"/redirect"),
		Counter:  s.urlFor(r, base+"/count"),
	}
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("write json response", zap.Error(err))
	}
}

// writeNotFound writes the structured not-found body every lookup miss uses.
func (s *Server) writeNotFound(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}
