package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/rotation"
	"github.com/slotserve/slotserve/internal/store"
)

// maxUploadBytes bounds the in-memory portion of a multipart ad upload.
const maxUploadBytes = 32 << 20

// CreateAdHandler handles POST /slots/{slot}/ads multipart uploads.
func (s *Server) CreateAdHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "create_ad"
	const method = "POST"

	slot := mux.Vars(r)["slot"]

	advrID := advertiserID(r)
	if advrID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "advertiser id required", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("parse multipart form", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["asset"]
	if len(files) == 0 {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "asset file required", http.StatusBadRequest)
		return
	}
	assetHeader := files[0]

	contentType := r.FormValue("type")
	if contentType == "" {
		contentType = assetHeader.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "video/mp4"
	}

	f, err := assetHeader.Open()
	if err != nil {
		logger.Error("open uploaded asset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "asset transfer failed", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, f); err != nil {
		logger.Error("read uploaded asset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "asset transfer failed", http.StatusInternalServerError)
		return
	}

	ad, err := s.Store.Create(r.Context(), slot, r.FormValue("title"), contentType, advrID, r.FormValue("destination"), buf.Bytes())
	if err != nil {
		logger.Error("create ad", zap.Error(err), zap.String("slot", slot))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}

	logger.Info("ad created",
		zap.String("slot", slot),
		zap.Int64("ad_id", ad.ID),
		zap.String("advertiser", advrID),
		zap.Int("asset_bytes", buf.Len()))
	s.Metrics.IncrementEvent("ad_created")
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	s.writeJSON(w, http.StatusOK, s.withEndpoints(r, ad))
}

// NextAdHandler handles GET /slots/{slot}/ad: rotates the slot queue and
// redirects to the selected ad's detail URL.
func (s *Server) NextAdHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "NextAdHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/slots/{slot}/ad"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "next_ad"
	const method = "GET"

	slot := mux.Vars(r)["slot"]
	span.SetAttributes(attribute.String("slot", slot))

	ad, err := s.Rotator.Next(ctx, slot)
	if err == rotation.ErrNoAd {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		s.writeNotFound(w)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rotation failed")
		logger.Error("rotate slot", zap.Error(err), zap.String("slot", slot))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "rotation failed", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "302")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	http.Redirect(w, r, "/slots/"+ad.Slot+"/ads/"+idString(ad.ID), http.StatusFound)
}

// AdHandler handles GET /slots/{slot}/ads/{id}: ad detail or 404.
func (s *Server) AdHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "ad_detail"
	const method = "GET"

	vars := mux.Vars(r)
	ad, err := s.Store.Get(r.Context(), vars["slot"], vars["id"])
	if err == store.ErrNotFound {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		s.writeNotFound(w)
		return
	}
	if err != nil {
		logger.Error("read ad", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	s.writeJSON(w, http.StatusOK, s.withEndpoints(r, ad))
}
