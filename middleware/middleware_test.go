package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestClerkAuthMiddleware_RejectsMissingOrMalformedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", `{"error":"Authorization header required"}`},
		{"no bearer prefix", "Token abc", `{"error":"Invalid authorization format. Use 'Bearer <token>'"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := ClerkAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

			req := httptest.NewRequest("GET", "/api/v1/challenges", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.False(t, called)
		})
	}
}

func TestGetClerkID(t *testing.T) {
	_, ok := GetClerkID(context.Background())
	assert.False(t, ok)

	_, ok = GetClerkID(context.WithValue(context.Background(), ClerkIDKey, ""))
	assert.False(t, ok)

	id, ok := GetClerkID(context.WithValue(context.Background(), ClerkIDKey, "user_2abc"))
	assert.True(t, ok)
	assert.Equal(t, "user_2abc", id)
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	send := func(ip string) int {
		req := httptest.NewRequest("GET", "/api/v1/stats", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.4"), "other clients keep their own bucket")
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(5, 30)
	rl.limiter("203.0.113.7")
	rl.limiter("198.51.100.4")
	rl.visitors["198.51.100.4"].lastSeen = time.Now().Add(-10 * time.Minute)

	rl.evictIdle(time.Now())

	assert.Contains(t, rl.visitors, "203.0.113.7")
	assert.NotContains(t, rl.visitors, "198.51.100.4")
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:51234"

	assert.Equal(t, "192.0.2.10", clientIP(req))
}

func TestMonitorMiddleware_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	r.HandleFunc("/api/v1/challenges/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/challenges/{id}", routeTemplate(r))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/challenges/42", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuthMiddleware(t *testing.T) {
	t.Setenv("METRICS_USER", "prom")
	t.Setenv("METRICS_PASS", "s3cret")
	h := BasicAuthMiddleware(http.HandlerFunc(okHandler))

	send := func(user, pass string) int {
		req := httptest.NewRequest("GET", "/metrics", nil)
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("prom", "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, send("prom", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, send("", ""))
}

func TestBasicAuthMiddleware_ClosedWithoutCredentials(t *testing.T) {
	t.Setenv("METRICS_USER", "")
	t.Setenv("METRICS_PASS", "")
	h := BasicAuthMiddleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
