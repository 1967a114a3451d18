package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/store"
)

// rangePattern matches the only accepted Range form: a single byte range
// with at least one bound present.
var rangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// AssetHandler handles GET /slots/{slot}/ads/{id}/asset, serving the stored
// binary asset in full or as a single byte range.
func (s *Server) AssetHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "asset"
	const method = "GET"

	vars := mux.Vars(r)
	slot, id := vars["slot"], vars["id"]

	ad, err := s.Store.Get(r.Context(), slot, id)
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

	data, err := s.Store.GetAsset(r.Context(), slot, id)
	if err == store.ErrNotFound {
		// An ad can briefly exist without its asset if an upload died
		// between the metadata and blob writes.
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		s.writeNotFound(w)
		return
	}
	if err != nil {
		logger.Error("read asset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	contentType := ad.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		s.Metrics.AddAssetBytes(len(data))
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		return
	}

	chunk, head, tail, ok := sliceRange(data, rangeHeader)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "416")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", head, tail, len(data)))
	w.Header().Set("Content-Length", strconv.Itoa(len(chunk)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(chunk)
	s.Metrics.AddAssetBytes(len(chunk))
	s.Metrics.IncrementRequests(endpoint, method, "206")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// sliceRange resolves a Range header against data. Only the single-range
// form "bytes=<start>-<end>" is accepted, with at least one bound present.
// A missing start defaults to 0 and a missing end to the last byte; an end
// past the last byte is clamped to it, so "bytes=0-" always returns the
// whole payload. Returns ok=false for any unsatisfiable or unsupported
// range.
func sliceRange(data []byte, header string) ([]byte, int, int, bool) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return nil, 0, 0, false
	}
	headStr, tailStr := m[1], m[2]
	if headStr == "" && tailStr == "" {
		return nil, 0, 0, false
	}

	size := len(data)
	head := 0
	tail := size - 1

	if headStr != "" {
		head, _ = strconv.Atoi(headStr)
	}
	if tailStr != "" {
		tail, _ = strconv.Atoi(tailStr)
	}

	if head < 0 || head >= size || tail < 0 {
		return nil, 0, 0, false
	}
	if tail > size-1 {
		tail = size - 1
	}
	if tail < head {
		return nil, 0, 0, false
	}
	return data[head : tail+1], head, tail, true
}
