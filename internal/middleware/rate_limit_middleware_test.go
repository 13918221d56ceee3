package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(t *testing.T, client redis.UniversalClient, cfg RateLimitConfig) *gin.Engine {
	t.Helper()
	limiter := NewRateLimiter(client, zerolog.Nop())
	router := gin.New()
	router.POST("/api/auth/login", limiter.Limit(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func postLogin(router http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	// Arrange
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	router := newLimitedRouter(t, client, LoginRateLimitConfig(3, time.Minute))

	// Act
	for i := 0; i < 3; i++ {
		w := postLogin(router, "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	blocked := postLogin(router, "10.0.0.1")
	otherIP := postLogin(router, "10.0.0.2")

	// Assert
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), "rate_limited")
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, otherIP.Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	router := newLimitedRouter(t, client, LoginRateLimitConfig(1, time.Minute))

	require.Equal(t, http.StatusOK, postLogin(router, "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(router, "10.0.0.1").Code)

	mr.FastForward(61 * time.Second)

	assert.Equal(t, http.StatusOK, postLogin(router, "10.0.0.1").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	router := newLimitedRouter(t, client, LoginRateLimitConfig(1, time.Minute))
	mr.Close()

	w := postLogin(router, "10.0.0.1")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_LimitByIP(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	limiter := NewRateLimiter(client, zerolog.Nop())

	router := gin.New()
	group := router.Group("/api/auth", limiter.LimitByIP(AuthGroupRateLimitConfig(1, time.Minute)))
	group.POST("/send-code", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/send-code", nil)
	req.RemoteAddr = "10.0.0.1:1"
	router.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1"
	router.ServeHTTP(second, req)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
