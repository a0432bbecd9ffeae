package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, rate int) (*RateLimiter, *time.Time) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rl := NewRateLimiter(ctx, rate, time.Second)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

// TestRateLimiter_Allow tests the bucket drains and refills per interval.
func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request within the interval should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IPs have their own bucket")
	}

	*clock = clock.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("bucket should refill after an interval")
	}
}

// TestRateLimiter_PartialIntervalDoesNotRefill tests that sub-interval gaps add no tokens.
func TestRateLimiter_PartialIntervalDoesNotRefill(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)
	rl.Allow("ip")
	for i := 0; i < 3; i++ {
		*clock = clock.Add(400 * time.Millisecond)
		if i < 2 && rl.Allow("ip") {
			t.Errorf("step %d: request should be limited", i)
		}
	}
	if !rl.Allow("ip") {
		t.Error("a full interval has elapsed; request should pass")
	}
}

// TestRateLimiter_Sweep tests removal of idle visitors.
func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)
	rl.Allow("ip")
	*clock = clock.Add(10 * time.Minute)
	rl.sweep(5 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Errorf("expected idle visitor removed, got %d", len(rl.visitors))
	}
}

// TestRateLimit_Middleware tests the 429 JSON response.
func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/notify", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, rr.Code, want)
		}
	}
}

// TestSecurityHeaders tests that hardening headers are present.
func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}
