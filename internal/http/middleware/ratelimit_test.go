package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*RateLimiter, *time.Time) {
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   float64(burst),
		now:     func() time.Time { return clock },
	}
	return rl, &clock
}

func TestRateLimiterBurstThenDenied(t *testing.T) {
	rl, _ := newTestLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl, clock := newTestLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("bucket should be empty")
	}

	*clock = clock.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("bucket should have refilled after one second")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("first key should be exhausted")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("second key must not share the first key's bucket")
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/otp/issue", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// A different client keeps its own budget.
	other := httptest.NewRequest(http.MethodPost, "/otp/issue", nil)
	other.Header.Set("X-Real-Ip", "203.0.113.8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status %d, want %d", rec.Code, http.StatusOK)
	}
}
