package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/metrics"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		healthy    func() bool
		wantCode   int
		wantStatus string
	}{
		{"connected", func() bool { return true }, http.StatusOK, "healthy"},
		{"disconnected", func() bool { return false }, http.StatusServiceUnavailable, "unhealthy"},
		{"no probe", nil, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
			s := NewServer(0, tt.healthy, nil, clk, nil)
			clk.Advance(90 * time.Second)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("GET /health code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body Status
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "2026-03-10T12:01:30Z", body.Timestamp)
			assert.Equal(t, 90.0, body.Uptime)

			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestReady(t *testing.T) {
	s := NewServer(0, nil, nil, nil, nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not ready")

	s.SetReady(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	prom := metrics.NewProm()

	s := NewServer(0, func() bool { return true }, prom.Handler(), nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsOmittedWithoutHandler(t *testing.T) {
	s := NewServer(0, nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
