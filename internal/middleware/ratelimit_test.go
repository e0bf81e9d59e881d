package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWindowRollover(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return base }

	ok, remaining, _ := l.allow("203.0.113.1")
	require.True(t, ok)
	require.Equal(t, 1, remaining)

	ok, _, _ = l.allow("203.0.113.1")
	require.True(t, ok)

	ok, remaining, resetIn := l.allow("203.0.113.1")
	require.False(t, ok)
	require.Zero(t, remaining)
	require.Positive(t, resetIn)

	// Other callers keep their own windows.
	ok, _, _ = l.allow("203.0.113.2")
	require.True(t, ok)

	// A lapsed window starts counting fresh.
	l.now = func() time.Time { return base.Add(61 * time.Second) }
	ok, remaining, _ = l.allow("203.0.113.1")
	require.True(t, ok)
	require.Equal(t, 1, remaining)
}

func TestLimiterMiddlewareRejectsWith429(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/stats", nil)
	req.RemoteAddr = "203.0.113.9:4242"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}
