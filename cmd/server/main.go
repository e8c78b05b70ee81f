package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingoquest/internal/cache"
	"lingoquest/internal/config"
	"lingoquest/internal/database"
	"lingoquest/internal/events"
	"lingoquest/internal/handlers"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
	"lingoquest/internal/scheduler"
	"lingoquest/internal/security"
	"lingoquest/internal/service"
)

// devJWTSecret signs tokens when JWT_SECRET is unset outside production
const devJWTSecret = "lingoquest-development-secret"

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if cfg.IsProduction() {
			return errors.New("JWT_SECRET must be set in production")
		}
		log.Warn("JWT_SECRET not set, using development secret")
		jwtSecret = devJWTSecret
	}

	// Initialize database with config (supports sqlite, postgres, pgx, mysql)
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	log.Info("database connection established", "type", db.Dialect.Name())

	applied, err := db.RunMigrations(ctx, database.MigrationSource(cfg.MigrationsPath))
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed", "applied", applied)

	var contentCache cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		contentCache = redisCache
		log.Info("content cache enabled", "ttl", cfg.ContentCacheTTL)
	}
	defer contentCache.Close()

	// Initialize repositories
	contentRepo := repository.NewContentRepository(db)
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, service.EmailConfig{
		Region:     cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	}, log)
	if err != nil {
		return err
	}

	bus := events.NewBus(log)
	rewardService := service.NewRewardService(profileRepo, log)
	if err := rewardService.Register(bus); err != nil {
		return fmt.Errorf("failed to register reward subscribers: %w", err)
	}

	tokens := security.NewTokenIssuer(jwtSecret, cfg.JWTTTL)
	contentService := service.NewContentService(contentRepo, contentCache, cfg.ContentCacheTTL, log)
	progressService := service.NewProgressService(db, contentRepo, progressRepo, profileRepo, bus, log)
	authService := service.NewAuthService(db, userRepo, profileRepo, tokens, emailService, log)
	profileService := service.NewProfileService(profileRepo, log)

	jobs := scheduler.New(rewardService, log)
	if err := jobs.Start(cfg.StreakResetCron); err != nil {
		return err
	}
	defer jobs.Stop()

	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	// Initialize handlers
	router := handlers.NewRouter(handlers.RouterConfig{
		Middleware:     handlers.NewMiddleware(authService, limiter, log),
		Content:        handlers.NewContentHandler(contentService, log),
		Progress:       handlers.NewProgressHandler(progressService, log),
		Auth:           handlers.NewAuthHandler(authService, log),
		Profile:        handlers.NewProfileHandler(profileService, log),
		DB:             db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: 30 * time.Second,
		Log:            log,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, failed := <-serverErr:
		if failed {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
