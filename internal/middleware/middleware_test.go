package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EmpoweredVote/wifi-points/internal/middleware"
	"github.com/EmpoweredVote/wifi-points/internal/utils"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// call wraps a simple 200-OK inner handler in the provided middleware,
// optionally setting the Origin header, and returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/test", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

// TestCORSMiddleware_AllowedOrigin verifies that an allow-listed origin is echoed back.
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"https://maps.example.org"})

	rec := call(t, mw, http.MethodGet, "https://maps.example.org")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://maps.example.org" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

// TestCORSMiddleware_UnknownOrigin verifies that other origins get no allow header.
func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"https://maps.example.org"})

	rec := call(t, mw, http.MethodGet, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

// TestCORSMiddleware_Preflight verifies that OPTIONS short-circuits with 204.
func TestCORSMiddleware_Preflight(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"https://maps.example.org"})

	rec := call(t, mw, http.MethodOptions, "https://maps.example.org")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// TestRateLimit_RejectsOverBurst verifies that the request after the burst is
// rejected with 429 and a Retry-After header.
func TestRateLimit_RejectsOverBurst(t *testing.T) {
	mw := middleware.RateLimit(0.001, 2)

	for i := 0; i < 2; i++ {
		if rec := call(t, mw, http.MethodGet, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := call(t, mw, http.MethodGet, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

// TestRateLimit_Disabled verifies that a non-positive rate passes everything through.
func TestRateLimit_Disabled(t *testing.T) {
	mw := middleware.RateLimit(0, 0)

	for i := 0; i < 50; i++ {
		if rec := call(t, mw, http.MethodGet, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

// TestRequestLogger verifies that the handler sees a request logger in its
// context and that one line is logged with the final status.
func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.LoggerFromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})
	handler := chimw.RequestID(middleware.RequestLogger(log)(inner))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wifi/points", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	if n := logs.FilterMessage("inside handler").Len(); n != 1 {
		t.Errorf("expected handler to log through the context logger, got %d entries", n)
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("expected status 418 in log, got %v", fields["status"])
	}
	if fields["path"] != "/wifi/points" {
		t.Errorf("expected path in log, got %v", fields["path"])
	}
	if fields["request_id"] == "" {
		t.Error("expected a request id in log")
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected 4xx to log at warn, got %v", entries[0].Level)
	}
}
