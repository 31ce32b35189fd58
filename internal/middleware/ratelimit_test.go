package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, env string) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRateLimiter(rdb, env), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	l, mr := newLimiter(t, "production")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "login", "ip:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other callers have their own window")

	assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1.2.3.4"))
	mr.FastForward(time.Minute)
	ok, err = l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window resets")
}

func TestRateLimiter_Bypass(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Run(env, func(t *testing.T) {
			l := NewRateLimiter(nil, env)
			for i := 0; i < 5; i++ {
				ok, err := l.Allow(context.Background(), "x", "y", 1, time.Minute)
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}

	_, err := NewRateLimiter(nil, "production").Allow(context.Background(), "x", "y", 1, time.Minute)
	assert.ErrorIs(t, err, errNoRedis)
}

func TestRateLimiter_Middleware(t *testing.T) {
	get := func(app *fiber.App, path string) *http.Response {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("limits per caller", func(t *testing.T) {
		l, _ := newLimiter(t, "production")
		app := fiber.New()
		app.Get("/limited", l.Limit("search", 2, time.Minute, FailOpen), ok)

		assert.Equal(t, http.StatusOK, get(app, "/limited").StatusCode)
		assert.Equal(t, http.StatusOK, get(app, "/limited").StatusCode)
		resp := get(app, "/limited")
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	})

	t.Run("keys by user when authenticated", func(t *testing.T) {
		l, mr := newLimiter(t, "production")
		app := fiber.New()
		app.Get("/limited", func(c *fiber.Ctx) error {
			c.Locals(LocalUserID, uint(5))
			return c.Next()
		}, l.Limit("vote", 10, time.Minute, FailOpen), ok)

		get(app, "/limited")
		assert.True(t, mr.Exists("rl:vote:user:5"))
	})

	t.Run("fail open without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/open", NewRateLimiter(nil, "production").Limit("x", 1, time.Minute, FailOpen), ok)
		assert.Equal(t, http.StatusOK, get(app, "/open").StatusCode)
	})

	t.Run("fail closed without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/closed", NewRateLimiter(nil, "production").Limit("x", 1, time.Minute, FailClosed), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(app, "/closed").StatusCode)
	})
}
