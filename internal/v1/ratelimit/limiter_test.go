package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/config"
)

func testConfig() *config.Config {
	return &config.Config{
		RateLimitAPIGlobal: "1000-M",
		RateLimitAPIRooms:  "100-M",
		RateLimitAPIEvents: "500-M",
		RateLimitWsIP:      "100-M",
	}
}

func TestNewRateLimiter_MemoryStore(t *testing.T) {
	rl, err := NewRateLimiter(testConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, rl)
	assert.Nil(t, rl.breaker)
}

func TestNewRateLimiter_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl, err := NewRateLimiter(testConfig(), client)
	require.NoError(t, err)
	require.NotNil(t, rl)
	assert.NotNil(t, rl.breaker)
}

func TestNewRateLimiter_InvalidRate(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitAPIGlobal = "lots"

	_, err := NewRateLimiter(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API global rate")
}

func TestGlobalMiddleware_AllowsUnderLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, err := NewRateLimiter(testConfig(), nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(rl.GlobalMiddleware())
	router.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
}

func TestGlobalMiddleware_RejectsOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimitAPIGlobal = "2-M"
	rl, err := NewRateLimiter(cfg, nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(rl.GlobalMiddleware())
	router.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMiddlewareForEndpoint_EventsLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimitAPIEvents = "1-M"
	rl, err := NewRateLimiter(cfg, nil)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/events", rl.MiddlewareForEndpoint("events"), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/events", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/events", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCheckWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimitWsIP = "1-M"
	rl, err := NewRateLimiter(cfg, nil)
	require.NoError(t, err)

	allowed := func() (bool, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/ws/whiteboard", nil)
		return rl.CheckWebSocket(c), w
	}

	ok, _ := allowed()
	assert.True(t, ok)

	ok, w := allowed()
	assert.False(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many connections")
}

func TestRedisBackedLimiter_CountsAcrossRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := testConfig()
	cfg.RateLimitAPIGlobal = "2-M"
	rl, err := NewRateLimiter(cfg, client)
	require.NoError(t, err)

	router := gin.New()
	router.Use(rl.GlobalMiddleware())
	router.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRedisDown_FailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := testConfig()
	cfg.RateLimitAPIGlobal = "1-M"
	rl, err := NewRateLimiter(cfg, client)
	require.NoError(t, err)

	mr.Close() // store goes away

	router := gin.New()
	router.Use(rl.GlobalMiddleware())
	router.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Requests pass even though the store is unreachable and the limit is 1.
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/rooms", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
