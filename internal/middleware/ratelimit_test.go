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

	"github.com/iliyamo/building-management/internal/config"
)

func newLimitedEcho(t *testing.T, cfg config.RateLimitConfig) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(userIDKey, c.Request().Header.Get("X-Test-User"))
			return next(c)
		}
	})
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/v1/rooms", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e, mr
}

func hit(e *echo.Echo, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user",
		Prefix:         "rl",
	}
	e, _ := newLimitedEcho(t, cfg)

	first := hit(e, "alice")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusOK, hit(e, "alice").Code)

	blocked := hit(e, "alice")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// Buckets are per user.
	assert.Equal(t, http.StatusOK, hit(e, "bob").Code)
}

func TestTokenBucketFailsOpenWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Minute, KeyStrategy: "user", Prefix: "rl"}
	e, mr := newLimitedEcho(t, cfg)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "alice").Code)
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, nil))
	e.GET("/v1/rooms", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "alice").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/transfers")
	c.Set(userIDKey, "u-1")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:u-1", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:u-1:route:POST /v1/transfers", buildRateKey(cfg, c))
}
