package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/config"
)

func TestMemoryLimiterAllowsWithinBudget(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{Requests: 3, WindowSeconds: 60})

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(context.Background(), "1.2.3.4"); err != nil {
			t.Fatalf("request %d unexpectedly limited: %v", i+1, err)
		}
	}

	err := limiter.Allow(context.Background(), "1.2.3.4")
	if err == nil {
		t.Fatal("expected fourth request to be limited")
	}
	var rateErr *apperrors.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected *apperrors.RateLimitError, got %T", err)
	}
	if rateErr.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", rateErr.RetryAfter)
	}
}

func TestMemoryLimiterIsolatesClients(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{Requests: 1, WindowSeconds: 60})

	if err := limiter.Allow(context.Background(), "1.1.1.1"); err != nil {
		t.Fatalf("first client limited: %v", err)
	}
	if err := limiter.Allow(context.Background(), "2.2.2.2"); err != nil {
		t.Fatalf("second client should have its own budget: %v", err)
	}
	if err := limiter.Allow(context.Background(), "1.1.1.1"); err == nil {
		t.Error("expected first client to be limited")
	}
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	limiter := &memoryLimiter{
		requests: 1,
		window:   20 * time.Millisecond,
		clients:  make(map[string][]time.Time),
	}

	if err := limiter.Allow(context.Background(), "c"); err != nil {
		t.Fatalf("first request limited: %v", err)
	}
	if err := limiter.Allow(context.Background(), "c"); err == nil {
		t.Fatal("expected second request to be limited")
	}

	time.Sleep(30 * time.Millisecond)
	if err := limiter.Allow(context.Background(), "c"); err != nil {
		t.Errorf("expected budget to recover after window, got %v", err)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{Requests: 2, WindowSeconds: 60})

	handler := RateLimit(limiter, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i+1, http.StatusOK, rec.Code)
		}
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimitMiddlewareUsesForwardedFor(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{Requests: 1, WindowSeconds: 60})
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(fwd string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		if fwd != "" {
			req.Header.Set("X-Forwarded-For", fwd)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("203.0.113.1, 10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	// Different forwarded client gets its own budget.
	if rec := do("203.0.113.2, 10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	// Same forwarded client is limited.
	if rec := do("203.0.113.1, 10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
}
