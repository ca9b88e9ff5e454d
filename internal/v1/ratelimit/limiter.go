// Package ratelimit implements rate limiting logic using Redis or local memory.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/config"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimiter holds the rate limiter instances. All limits are keyed by
// client IP; there is no authenticated identity on this surface.
type RateLimiter struct {
	apiGlobal *limiter.Limiter
	apiRooms  *limiter.Limiter
	apiEvents *limiter.Limiter
	wsIP      *limiter.Limiter

	store       limiter.Store
	breaker     *gobreaker.CircuitBreaker
	redisClient *redis.Client
}

// NewRateLimiter creates a new RateLimiter instance. When redisClient is nil
// the limiter counts in local memory, which is fine for a single instance.
func NewRateLimiter(cfg *config.Config, redisClient *redis.Client) (*RateLimiter, error) {
	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}

	apiRoomsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIRooms)
	if err != nil {
		return nil, fmt.Errorf("invalid API rooms rate: %w", err)
	}

	apiEventsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIEvents)
	if err != nil {
		return nil, fmt.Errorf("invalid API events rate: %w", err)
	}

	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIP)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	rl := &RateLimiter{redisClient: redisClient}

	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		rl.store = s

		// Redis lookups go through a breaker so a dead Redis degrades the
		// limiter to fail-open instead of adding a timeout to every request.
		rl.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     15 * time.Second,
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				var stateVal float64
				switch to {
				case gobreaker.StateClosed:
					stateVal = 0
				case gobreaker.StateOpen:
					stateVal = 1
				case gobreaker.StateHalfOpen:
					stateVal = 2
				}
				metrics.CircuitBreakerState.WithLabelValues("redis").Set(stateVal)
			},
		})
		logging.Info(context.Background(), "✅ Rate limiter using Redis store")
	} else {
		rl.store = memory.NewStore()
		logging.Warn(context.Background(), "⚠️  Rate limiter using Memory store (Redis disabled or unavailable)")
	}

	rl.apiGlobal = limiter.New(rl.store, apiGlobalRate)
	rl.apiRooms = limiter.New(rl.store, apiRoomsRate)
	rl.apiEvents = limiter.New(rl.store, apiEventsRate)
	rl.wsIP = limiter.New(rl.store, wsIPRate)

	return rl, nil
}

// lookup fetches the limiter context for key, routing Redis-backed stores
// through the circuit breaker. Any store or breaker failure reports ok=false
// and the caller fails open.
func (rl *RateLimiter) lookup(ctx context.Context, l *limiter.Limiter, key string) (limiter.Context, bool) {
	if rl.breaker == nil {
		lctx, err := l.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			return limiter.Context{}, false
		}
		return lctx, true
	}

	result, err := rl.breaker.Execute(func() (interface{}, error) {
		return l.Get(ctx, key)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			logging.Warn(ctx, "Rate limiter circuit breaker open - failing open")
		} else {
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
		}
		return limiter.Context{}, false
	}
	return result.(limiter.Context), true
}

// GlobalMiddleware returns a Gin middleware that enforces the global
// per-IP rate limit across the whole HTTP surface.
func (rl *RateLimiter) GlobalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		lctx, ok := rl.lookup(ctx, rl.apiGlobal, c.ClientIP())
		if !ok {
			// Fail open: availability over strictness when the store is down.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), "ip").Inc()
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// MiddlewareForEndpoint returns a Gin middleware that enforces a specific
// endpoint rate limit ("rooms" or "events"), keyed by client IP.
func (rl *RateLimiter) MiddlewareForEndpoint(endpointType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var limiterInstance *limiter.Limiter

		switch endpointType {
		case "rooms":
			limiterInstance = rl.apiRooms
		case "events":
			limiterInstance = rl.apiEvents
		default:
			limiterInstance = rl.apiGlobal
		}

		ctx := c.Request.Context()
		lctx, ok := rl.lookup(ctx, limiterInstance, c.ClientIP())
		if !ok {
			c.Next()
			return
		}

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), endpointType).Inc()
			c.Header("X-RateLimit-Retry-After", strconv.FormatInt(lctx.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// CheckWebSocket checks if a WebSocket connection should be allowed.
// Returns true if allowed, false if the limit is exceeded (and writes the
// rejection response).
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()

	lctx, ok := rl.lookup(ctx, rl.wsIP, c.ClientIP())
	if !ok {
		return true // Fail open
	}

	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(lctx.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connections from this IP"})
		return false
	}

	return true
}

// StandardMiddleware allows using the stock ulule/limiter middleware if
// preferred over the custom handlers above.
func (rl *RateLimiter) StandardMiddleware() gin.HandlerFunc {
	return mgin.NewMiddleware(rl.apiGlobal)
}
