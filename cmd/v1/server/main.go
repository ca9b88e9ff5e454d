package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/api"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/board"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/config"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/health"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/middleware"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/ratelimit"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/tracing"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/transport"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
)

const serviceName = "whiteboard-go"

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// --- Tracing (Optional) ---
	var shutdownTracer func(context.Context) error
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(context.Background(), serviceName, cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			shutdownTracer = tp.Shutdown
			slog.Info("✅ Tracing initialized", "endpoint", cfg.OTLPEndpoint)
		}
	}

	// --- Redis (Optional) ---
	// Backs the rate limiter store and the readiness check. Absent Redis means
	// single-instance mode with in-memory limiting.
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			slog.Error("Failed to connect to Redis, running in single-instance mode", "error", err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			slog.Info("✅ Redis initialized", "addr", cfg.RedisAddr)
		}
		cancel()
	} else {
		slog.Info("Running in single-instance mode (Redis disabled)")
	}

	// --- Rate Limiting ---
	limiter, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		slog.Error("Failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	// --- Shared Room Registry ---
	// One registry per process, injected into both the WebSocket hub and the
	// HTTP handlers so every entry point sees the same rooms.
	registry := board.NewRegistry(board.Config{
		ClearCooldown:    cfg.ClearCooldown,
		MaxEventsPerRoom: cfg.MaxEventsPerRoom,
		IdleTTL:          cfg.RoomIdleTTL,
	})

	hub := transport.NewHub(registry, cfg, limiter)

	// --- Set up Server ---
	router := gin.Default()

	// Cors
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.ParseAllowedOrigins(cfg.AllowedOrigins, []string{"http://localhost:3000"})
	router.Use(cors.New(corsConfig))

	// Error handling, correlation ids, tracing
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if cfg.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware(serviceName))
	}

	// Routing
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/whiteboard", hub.ServeWs)
	}

	limits := types.Limits{MaxPoints: cfg.MaxPointsPerEvent}
	adminHandler := api.NewHandler(registry, hub, limits)
	apiGroup := router.Group("/", limiter.GlobalMiddleware())
	{
		roomsGroup := apiGroup.Group("/rooms", limiter.MiddlewareForEndpoint("rooms"))
		{
			roomsGroup.GET("", adminHandler.ListRooms)
			roomsGroup.GET("/:roomId/state", adminHandler.RoomState)
			roomsGroup.DELETE("/:roomId", adminHandler.DeleteRoom)
		}
		eventsGroup := apiGroup.Group("/events", limiter.MiddlewareForEndpoint("events"))
		{
			eventsGroup.GET("/:roomId", adminHandler.RoomEvents)
			eventsGroup.POST("", adminHandler.SubmitEvent)
		}
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(redisClient)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Start the server.
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		slog.Info("Whiteboard server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// The context is used to inform the server it has 30 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close all active sessions gracefully
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Error during Hub shutdown:", "error", err)
	}

	// Stop room idle timers
	registry.Shutdown()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	// Close Redis connection if it was initialized
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis connection:", "error", err)
		} else {
			slog.Info("Redis connection closed")
		}
	}

	// Flush traces
	if shutdownTracer != nil {
		if err := shutdownTracer(ctx); err != nil {
			slog.Error("Failed to shutdown tracer:", "error", err)
		}
	}

	slog.Info("Server exiting")
}
