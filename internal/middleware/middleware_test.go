package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wod-leaderboard/internal/config"
	"github.com/iliyamo/wod-leaderboard/internal/logging"
)

func newContext(method, target, path string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)
	return c
}

func TestBuildRateKey(t *testing.T) {
	c := newContext(http.MethodPost, "/api/results", "/api/results")
	cfg := config.RateLimitConfig{Name: "results", Prefix: "rl"}

	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "rl:results:ip:203.0.113.7:route:POST /api/results", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:results:ip:203.0.113.7", buildRateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:results:route:POST /api/results", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:results:ip:203.0.113.7:route:POST /api/results", buildRateKey(cfg, c))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 360, retryAfterSeconds(360000))
	assert.Equal(t, 0, retryAfterSeconds(-5))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(3), asInt64(3.9))
	assert.Equal(t, int64(12), asInt64("12"))
	assert.Equal(t, int64(0), asInt64(nil))
}

func TestMiddlewares_PassThroughWithoutRedis(t *testing.T) {
	log := logging.Discard()
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log)
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, log)

	calls := 0
	h := limiter(cache(func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusNoContent)
	}))
	for i := 0; i < 3; i++ {
		c := newContext(http.MethodGet, "/api/workouts", "/api/workouts")
		require.NoError(t, h(c))
		assert.Empty(t, c.Response().Header().Get("X-RateLimit-Limit"))
		assert.Empty(t, c.Response().Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query", TTL: time.Second}
	a := cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/results/abc?gender=F", "/api/results/:workoutId"))
	b := cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/results/abc?gender=M", "/api/results/:workoutId"))
	c := cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/results/xyz?gender=F", "/api/results/:workoutId"))
	again := cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/results/abc?gender=F", "/api/results/:workoutId"))

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c, "different workouts must not share an entry")
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	assert.Equal(t,
		cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/workouts?dateFilter=today", "/api/workouts")),
		cacheKeyFrom(cfg, newContext(http.MethodGet, "/api/workouts?dateFilter=all", "/api/workouts")))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCaptureWriter_Limit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}
