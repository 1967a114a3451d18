package api

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/models"
)

// ReportHandler handles GET /me/report: impression and click counts per ad.
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "report", s.Reports.Report)
}

// FinalReportHandler handles GET /me/final_report: the report rows with
// demographic breakdowns.
func (s *Server) FinalReportHandler(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "final_report", s.Reports.FinalReport)
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, endpoint string, build func(context.Context, string) (map[string]*models.Report, error)) {
	ctx, span := tracer.Start(r.Context(), "ReportHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("report.kind", endpoint),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const method = "GET"

	advrID := advertiserID(r)
	if advrID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "401")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "advertiser id required", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("advertiser", advrID))

	rows, err := build(ctx, advrID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report build failed")
		logger.Error("build report", zap.Error(err), zap.String("advertiser", advrID))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementReports()
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	s.writeJSON(w, http.StatusOK, rows)
}
