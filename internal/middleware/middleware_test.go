package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmpoweredVote/geobase/internal/middleware"
	"github.com/EmpoweredVote/geobase/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// call wraps a simple 200-OK inner handler in the provided middleware and
// returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/geo/ranges", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func mustHash(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing token: %v", err)
	}
	return string(h)
}

// TestAdminToken_Disabled verifies that an empty hash turns the admin routes off.
func TestAdminToken_Disabled(t *testing.T) {
	rec := call(t, middleware.AdminToken(""), bearer("anything"))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "admin API disabled") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestAdminToken_MissingBearer(t *testing.T) {
	rec := call(t, middleware.AdminToken(mustHash(t, "s3cret")), bearer(""))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing bearer token") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestAdminToken_WrongToken(t *testing.T) {
	rec := call(t, middleware.AdminToken(mustHash(t, "s3cret")), bearer("guess"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid token") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestAdminToken_ValidToken(t *testing.T) {
	rec := call(t, middleware.AdminToken(mustHash(t, "s3cret")), bearer("s3cret"))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestRequestID_Generated verifies a fresh id reaches both the context and
// the response header.
func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = utils.GetRequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get(middleware.RequestIDHeader); got != seen {
		t.Errorf("header %q does not match context %q", got, seen)
	}
}

func TestRequestID_Reused(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")

	rec := call(t, middleware.RequestID, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Errorf("expected caller id to be echoed, got %q", got)
	}
}

func TestRequestID_OversizedReplaced(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 65))

	rec := call(t, middleware.RequestID, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); len(got) != 36 {
		t.Errorf("expected a generated uuid, got %q", got)
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/geo/lookup/1.2.3.4", nil)
	req.Header.Set("Origin", "https://app.example.org")

	rec := call(t, middleware.CORS([]string{"https://app.example.org"}), req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.org" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")

	rec := call(t, middleware.CORS([]string{"https://app.example.org"}), req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/geo/ranges", nil)
	req.Header.Set("Origin", "https://app.example.org")

	rec := call(t, middleware.CORS([]string{"https://app.example.org"}), req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// TestRateLimit_Exhausted verifies the burst is served and the next
// request is turned away with Retry-After.
func TestRateLimit_Exhausted(t *testing.T) {
	mw := middleware.RateLimit(rate.NewLimiter(rate.Limit(0.5), 2))

	for i := 0; i < 2; i++ {
		rec := call(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := call(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After 2, got %q", got)
	}
}
