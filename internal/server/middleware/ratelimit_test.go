package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// stubLimiter answers Allow from a script and records the keys it saw.
type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func (s *stubLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	return nil
}

// --- RateLimit tests ---

func TestRateLimit_Allows(t *testing.T) {
	limiter := &stubLimiter{allow: true}
	h := RateLimit(limiter, 10, time.Minute)(okHandler)

	rec := doRequest(t, h, func(r *http.Request) {
		r.RemoteAddr = "10.1.2.3:5555"
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admitted request, got %d", rec.Code)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "ratelimit:http:10.1.2.3" {
		t.Errorf("expected per-IP key, got %v", limiter.keys)
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	h := RateLimit(limiter, 10, time.Minute)(okHandler)

	rec := doRequest(t, h, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}
	h := RateLimit(limiter, 10, time.Minute)(okHandler)

	if rec := doRequest(t, h, nil); rec.Code != http.StatusOK {
		t.Errorf("expected limiter failure to admit the request, got %d", rec.Code)
	}
}

// --- extractClientIP tests ---

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name string
		prep func(*http.Request)
		want string
	}{
		{"forwarded-for first hop", func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		}, "203.0.113.9"},
		{"real-ip fallback", func(r *http.Request) {
			r.Header.Set("X-Real-IP", "203.0.113.7")
		}, "203.0.113.7"},
		{"remote addr", func(r *http.Request) {
			r.RemoteAddr = "192.0.2.4:9999"
		}, "192.0.2.4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.prep(req)
			if got := extractClientIP(req); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// --- CORS tests ---

func TestCORS_AllowsListedOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example"})(okHandler)

	rec := doRequest(t, h, func(r *http.Request) {
		r.Header.Set("Origin", "https://app.example")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected origin echoed, got %q", got)
	}

	rec = doRequest(t, h, func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected unlisted origin omitted, got %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("expected empty list to allow any origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
