package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varokas/db-trends/internal/config"
)

func rateTestConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Hour, // no refill within the test
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

// TestTokenBucket_BlocksWhenDrained verifies that requests beyond the
// bucket capacity are rejected with 429 and a Retry-After header.
func TestTokenBucket_BlocksWhenDrained(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.POST("/api/makeBookings", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(rateTestConfig(2), rdb))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/makeBookings", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/makeBookings", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

// TestTokenBucket_NilClientPassesThrough verifies the degraded mode.
func TestTokenBucket_NilClientPassesThrough(t *testing.T) {
	e := echo.New()
	e.POST("/api/makeBookings", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(rateTestConfig(1), nil))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/makeBookings", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
