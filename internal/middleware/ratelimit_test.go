// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/carterperez-dev/tierform/internal/core"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterLocalFallback(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit: PerWindow(1, 1, time.Minute),
	})
	defer rl.Close()
	h := rl.Handler(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.RemoteAddr = "10.0.0.7:41000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	var body core.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Error == nil || body.Error.Code != CodeRateLimited {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRateLimiterConcurrentRequests(t *testing.T) {
	const (
		workers  = 8
		requests = 50
		burst    = 100
	)

	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit: PerWindow(1, burst, time.Hour),
	})
	defer rl.Close()
	h := rl.Handler(okHandler())

	var allowed, limited atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers + 1)
	go func() {
		defer wg.Done()
		for i := 0; i < requests; i++ {
			rl.fallback.evictIdle(time.Now().Add(-entryTTL).Unix())
		}
	}()
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < requests; i++ {
				req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
				req.RemoteAddr = "10.0.0.9:5000"
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				switch rec.Code {
				case http.StatusOK:
					allowed.Add(1)
				case http.StatusTooManyRequests:
					limited.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if total := allowed.Load() + limited.Load(); total != workers*requests {
		t.Fatalf("handled %d requests, want %d", total, workers*requests)
	}
	if allowed.Load() > burst {
		t.Fatalf("allowed %d requests, burst is %d", allowed.Load(), burst)
	}
}

func TestRateLimiterCloseStopsCleanup(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{Limit: PerWindow(1, 1, time.Minute)})
	rl.Close()
	rl.Close()

	select {
	case <-rl.fallback.stop:
	default:
		t.Fatal("stop channel should be closed")
	}
}

func TestEvictIdleDropsStaleEntries(t *testing.T) {
	l := &localLimiter{stop: make(chan struct{})}
	limit := PerWindow(1, 1, time.Minute)

	if _, err := l.allow("stale", limit); err != nil {
		t.Fatal(err)
	}
	if _, err := l.allow("fresh", limit); err != nil {
		t.Fatal(err)
	}

	v, _ := l.limiters.Load("stale")
	v.(*limiterEntry).lastAccess.Store(time.Now().Add(-time.Hour).Unix())

	l.evictIdle(time.Now().Add(-entryTTL).Unix())

	if _, ok := l.limiters.Load("stale"); ok {
		t.Fatal("stale entry should be evicted")
	}
	if _, ok := l.limiters.Load("fresh"); !ok {
		t.Fatal("fresh entry should be kept")
	}
}

func TestEndpointKeySharesBucketAcrossSessions(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:   PerWindow(1, 1, time.Minute),
		KeyFunc: KeyByIPAndEndpoint(false),
	})
	defer rl.Close()
	h := rl.Handler(okHandler())

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.7:41000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	first := "/v1/sessions/3f2b8c1e-9a4d-4e7b-8c2a-1d5e6f7a8b9c/tiers"
	second := "/v1/sessions/8a1c2d3e-4f50-4a6b-9c7d-0e1f2a3b4c5d/tiers"

	if code := send(http.MethodPost, first); code != http.StatusOK {
		t.Fatalf("first session: status %d", code)
	}
	if code := send(http.MethodPost, second); code != http.StatusTooManyRequests {
		t.Fatalf("second session should share the bucket, got %d", code)
	}
	if code := send(http.MethodGet, "/v1/stats"); code != http.StatusOK {
		t.Fatalf("other endpoint should have its own bucket, got %d", code)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/sessions", "/v1/sessions"},
		{
			"/v1/sessions/3f2b8c1e-9a4d-4e7b-8c2a-1d5e6f7a8b9c/tiers/2",
			"/v1/sessions/{id}/tiers/{id}",
		},
		{"/v1/sessions/abc/submit/", "/v1/sessions/abc/submit"},
	}

	for _, tc := range tests {
		if got := normalizeEndpoint(tc.path); got != tc.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestKeyByIPProxyTrust(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.9")

	if got := KeyByIP(false)(req); got != "ratelimit:ip:192.0.2.1" {
		t.Fatalf("untrusted proxy: KeyByIP = %q", got)
	}
	if got := KeyByIP(true)(req); got != "ratelimit:ip:198.51.100.9" {
		t.Fatalf("trusted proxy: KeyByIP = %q", got)
	}
}
