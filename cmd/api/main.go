package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"filemaster/docs"
	"filemaster/internal/config"
	"filemaster/internal/database"
	"filemaster/internal/database/migration"
	handlers "filemaster/internal/http/handler"
	"filemaster/internal/http/middleware"
	"filemaster/internal/logger"
	"filemaster/internal/otel"
	"filemaster/internal/ratelimit"
	"filemaster/internal/repository/postgres"
	"filemaster/internal/service"
	"filemaster/internal/staging"
	"filemaster/internal/storage"
	"filemaster/internal/transform"
)

// @title FileMaster API
// @version 1.0
// @description Compress, merge, convert, enhance and preview uploaded files.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.Location())
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("db_host", cfg.Database.Host).Msg("failed to connect to database")
	}
	defer db.Close()

	if _, err := migration.Run(ctx, db, log.With().Str("db_host", cfg.Database.Host).Logger()); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	objStore, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to initialize object storage")
	}

	area, err := staging.NewArea(cfg.Upload.TempDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare staging area")
	}

	if err := transform.Startup(); err != nil {
		log.Fatal().Err(err).Msg("failed to start image codec")
	}
	defer transform.Shutdown()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register service metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	files := postgres.NewProcessedFilePostgres(db)
	stats := postgres.NewUserStatsPostgres(db)
	dispatcher := service.NewDispatcher(
		transform.NewToolbox(area.Dir(), transform.DefaultImageCodec(), transform.ContainerCopy{}),
		area,
		objStore,
		service.NewProvenanceRecorder(files),
		service.NewStatsAggregator(stats),
		service.WithLogger(log),
		service.WithMetrics(metrics),
	)
	fileSvc := service.NewFileService(dispatcher, objStore, files, stats, service.DownloadOptions{
		Presign:    cfg.Download.Presign,
		PresignTTL: time.Duration(cfg.Download.PresignTTLSec) * time.Second,
	})

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.Upload.MaxBytes,
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	limiter, closeLimiter := newLimiter(cfg.RateLimit, log)
	defer closeLimiter()

	handlers.RegisterRoutes(app, db, fileSvc,
		middleware.Auth([]byte(cfg.Auth.JWTSecret)),
		middleware.RateLimit(limiter, log),
	)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("rate_limit", limiter != nil).
		Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

// newLimiter connects the Redis token bucket. It returns a nil limiter when
// rate limiting is not configured.
func newLimiter(c config.RateLimitConfig, log zerolog.Logger) (middleware.Limiter, func()) {
	if strings.TrimSpace(c.RedisAddr) == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	bucket, err := ratelimit.NewRedisTokenBucket(client, c.Capacity, time.Duration(c.WindowSec)*time.Second, "")
	if err != nil {
		log.Warn().Err(err).Msg("rate limiting disabled")
		_ = client.Close()
		return nil, func() {}
	}
	return bucket, func() { _ = client.Close() }
}
