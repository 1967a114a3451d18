package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceRange(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 100)

	cases := []struct {
		name   string
		header string
		ok     bool
		head   int
		tail   int
		length int
	}{
		{"interior range", "bytes=10-19", true, 10, 19, 10},
		{"open tail", "bytes=95-", true, 95, 99, 5},
		{"open head", "bytes=-99", true, 0, 99, 100},
		{"full range", "bytes=0-99", true, 0, 99, 100},
		{"tail clamped to size", "bytes=90-150", true, 90, 99, 10},
		{"both bounds empty", "bytes=-", false, 0, 0, 0},
		{"start past end of data", "bytes=100-", false, 0, 0, 0},
		{"multi range unsupported", "bytes=0-1,5-6", false, 0, 0, 0},
		{"units unsupported", "items=0-1", false, 0, 0, 0},
		{"inverted", "bytes=20-10", false, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunk, head, tail, ok := sliceRange(data, tc.header)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.head, head)
			assert.Equal(t, tc.tail, tail)
			assert.Len(t, chunk, tc.length)
		})
	}
}

func TestAssetHandlerFullBody(t *testing.T) {
	srv := newTestServer(t)
	asset := bytes.Repeat([]byte{'a'}, 100)
	uploadAd(t, srv, "1", "advr-1", "t", "http://example.com", asset)

	req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/1/asset", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, asset, rec.Body.Bytes())
}

func TestAssetHandlerByteRanges(t *testing.T) {
	srv := newTestServer(t)
	asset := make([]byte, 100)
	for i := range asset {
		asset[i] = byte(i)
	}
	uploadAd(t, srv, "1", "advr-1", "t", "http://example.com", asset)
	router := srv.Router()

	t.Run("interior", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/1/asset", nil)
		req.Header.Set("Range", "bytes=10-19")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 10-19/100", rec.Header().Get("Content-Range"))
		assert.Equal(t, "10", rec.Header().Get("Content-Length"))
		assert.Equal(t, asset[10:20], rec.Body.Bytes())
	})

	t.Run("suffix from 95", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/1/asset", nil)
		req.Header.Set("Range", "bytes=95-")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 95-99/100", rec.Header().Get("Content-Range"))
		assert.Len(t, rec.Body.Bytes(), 5)
	})

	t.Run("both bounds empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/1/asset", nil)
		req.Header.Set("Range", "bytes=-")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	})

	t.Run("end clamped to size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/1/asset", nil)
		req.Header.Set("Range", "bytes=90-199")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 90-99/100", rec.Header().Get("Content-Range"))
		assert.Len(t, rec.Body.Bytes(), 10)
	})
}

func TestAssetHandlerMissingAd(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/slots/1/ads/7/asset", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}
