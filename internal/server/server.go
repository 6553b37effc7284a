package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/replygate/replygate/internal/api"
	"github.com/replygate/replygate/internal/config"
	"github.com/replygate/replygate/internal/services/cache"
	"github.com/replygate/replygate/internal/services/database"
	"github.com/replygate/replygate/internal/services/drafts"
	"github.com/replygate/replygate/internal/services/orchestrator"
	"github.com/replygate/replygate/internal/services/prompt"
	"github.com/replygate/replygate/internal/services/providers"
	"github.com/replygate/replygate/internal/services/ratelimit"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// Server is one ReplyGate instance.
type Server struct {
	config  *config.Config
	app     *fiber.App
	redis   *redis.Client
	db      *database.DB
	sweeper *cache.Sweeper
}

// New creates a Server with the given configuration.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create one")
	}
	return &Server{config: cfg}
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	s.app = createFiberApp(s.config)

	// Infrastructure.
	redisClient, err := createRedisClient(s.config)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	s.redis = redisClient
	if s.redis != nil {
		defer func() {
			if err := s.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	if s.config.Database != nil {
		db, err := database.New(*s.config.Database)
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		defer func() {
			if err := s.db.Close(); err != nil {
				fiberlog.Errorf("Failed to close database connection: %v", err)
			}
		}()
		fiberlog.Infof("Database (%s) initialized successfully", db.DriverName())
	} else {
		fiberlog.Info("Database not configured - drafts will not be persisted")
	}

	setupMiddleware(s.app, s.config)

	if err := s.setupRoutes(); err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	s.app.Get("/", welcomeHandler())

	fmt.Printf("ReplyGate starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- s.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

func (s *Server) setupRoutes() error {
	registry := providers.BuildRegistry(s.config.Providers)
	rateLimiter := ratelimit.New(s.config.RateLimit, s.config.Providers)
	responseCache := cache.New(s.config.Cache, s.redis)
	builder := prompt.NewBuilder(s.config.Business)

	orch := orchestrator.New(registry, s.config.Providers, s.config.CircuitBreaker, rateLimiter, responseCache, builder)

	if s.redis != nil {
		s.sweeper = cache.NewSweeper(responseCache, s.config.Cache.WithDefaults().SweepInterval())
		s.sweeper.Start()
	}

	var draftStore *drafts.Service
	if s.db != nil {
		store, err := drafts.New(s.db)
		if err != nil {
			return err
		}
		draftStore = store
	}

	draftsHandler := api.NewDraftsHandler(orch, rateLimiter, draftStore)
	healthHandler := api.NewHealthHandler(orch, s.redis, s.db)
	statsHandler := api.NewStatsHandler(orch, responseCache, rateLimiter)

	s.app.Get("/health", healthHandler.HealthCheck)

	v1 := s.app.Group("/v1")
	v1.Post("/drafts", draftsHandler.Generate)
	v1.Get("/drafts", draftsHandler.List)
	v1.Get("/stats", statsHandler.Stats)
	v1.Post("/stats/reset", statsHandler.Reset)

	return nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "ReplyGate v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		ReadBufferSize:    8192,
		WriteBufferSize:   8192,
		CaseSensitive:     true,
		ServerHeader:      "ReplyGate",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	// Transport-level flood guard. The domain limiter enforces the real
	// per-sender policy inside the drafts handler.
	app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, User-Agent, X-Request-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Retry-After",
	}))
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	redisURL := cfg.Cache.RedisURL
	if redisURL == "" {
		fiberlog.Info("Redis not configured - response cache runs memory-only")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// A dead Redis only loses the durable cache tier, never drafting.
		fiberlog.Warnf("Redis unreachable, continuing memory-only: %v", err)
		if closeErr := client.Close(); closeErr != nil {
			fiberlog.Errorf("Failed to close Redis client: %v", closeErr)
		}
		return nil, nil
	}

	fiberlog.Info("Redis connection established successfully")
	return client, nil
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to ReplyGate!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"drafts":      "/v1/drafts",
				"stats":       "/v1/stats",
				"stats_reset": "/v1/stats/reset",
				"health":      "/health",
			},
		})
	}
}
