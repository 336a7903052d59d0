package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeskRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute, 1)
	defer limiter.Stop()

	handler := DeskRateLimitMiddleware(limiter, nil)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// First desk write passes, the second exhausts the burst.
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/loans"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/v1/loans"))

	// Reads are never throttled.
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/loans"))

	// Other routes are never throttled.
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/books"))
}

func TestDeskRateLimitMiddleware_PerClient(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute, 1)
	defer limiter.Stop()

	handler := DeskRateLimitMiddleware(limiter, nil)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}
