package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/config"
	"github.com/emmayusufu/googledriveclone/internal/database"
	"github.com/emmayusufu/googledriveclone/internal/handlers"
	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/ratelimit"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DB.URL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	limiter, err := newLimiter(ctx, cfg.RateLimit)
	if err != nil {
		log.Fatalf("rate limiter initialization failed: %v", err)
	}

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:        db,
		Hierarchy: services.NewHierarchyService(db, store),
		Users:     services.NewUserService(db),
		Limiter:   limiter,
	})

	if cfg.Reconcile.Interval > 0 {
		reconciler := services.NewReconciler(db, store)
		go reconciler.Run(ctx, cfg.Reconcile.Interval, cfg.Reconcile.Grace)
		logger.Info("reconciler_started", map[string]interface{}{
			"interval": cfg.Reconcile.Interval.String(),
			"grace":    cfg.Reconcile.Grace.String(),
		})
	}

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":           cfg.Server.Port,
		"address":        listenAddr,
		"body_limit":     fmt.Sprintf("%dMB", cfg.Server.BodyLimitMB),
		"storage_driver": cfg.Storage.Driver,
		"rate_limit":     cfg.RateLimit.Backend,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	select {
	case <-ctx.Done():
		log.Print("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("forced shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (*ratelimit.Limiter, error) {
	uploads := ratelimit.Rule{Method: fiber.MethodPost, Path: "/api/files", Max: cfg.UploadMax}

	switch cfg.Backend {
	case "", "memory":
		return ratelimit.NewLimiter(ratelimit.NewMemoryStore(), cfg.Window, cfg.Max, uploads), nil
	case "redis":
		store := ratelimit.NewRedisStore(ratelimit.NewRedisPool(cfg.RedisURL))
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return ratelimit.NewLimiter(store, cfg.Window, cfg.Max, uploads), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
