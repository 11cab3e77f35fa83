package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firesafety/internal/config"
	"firesafety/internal/database"
	"firesafety/internal/handlers"
	"firesafety/internal/logger"
	"firesafety/internal/repository"
	"firesafety/internal/repository/memory"
	"firesafety/internal/security"
	"firesafety/internal/service"
)

const (
	stepStore = "Store connection"
	stepSeed  = "Seed data"
	stepAdmin = "Admin bootstrap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(stepStore, stepSeed, stepAdmin)

	startup.SetCurrentStep(stepStore)
	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", "error", err)
	}
	defer cleanup()
	startup.CompleteStep(stepStore)

	// Initialize services
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	csrf := security.NewCSRFGenerator(cfg.SessionSecret)
	limiter := security.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)
	clientIP, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES", "error", err)
	}

	authService := service.NewAuthService(store.Users, store.Sessions, tokens, cfg.SessionDuration, log)
	achievementService := service.NewAchievementService(store.Users, store.Achievements, log)
	moduleService := service.NewModuleService(store.Modules, log)
	progressService := service.NewProgressService(store, achievementService, log)

	// Initialize handlers
	router := &handlers.Router{
		Middleware:     handlers.NewMiddleware(authService, csrf, limiter, clientIP, log),
		Auth:           handlers.NewAuthHandler(authService, achievementService, csrf, log),
		Modules:        handlers.NewModuleHandler(moduleService, log),
		Progress:       handlers.NewProgressHandler(progressService, log),
		Achievements:   handlers.NewAchievementHandler(achievementService, log),
		Log:            log,
		Startup:        startup,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, authService, log)

	go func() {
		log.Info("Server starting", "addr", addr, "store", cfg.StoreType, "sessions", cfg.SessionStore)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	startup.SetCurrentStep(stepSeed)
	if cfg.SeedSampleData {
		if _, err := service.NewSeedService(store.Modules, store.Achievements, log).Seed(ctx); err != nil {
			log.Warn("Failed to seed sample data", "error", err)
		}
	}
	startup.CompleteStep(stepSeed)

	startup.SetCurrentStep(stepAdmin)
	if cfg.AdminUsername != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatal("Failed to bootstrap admin", "error", err)
		}
	}
	startup.CompleteStep(stepAdmin)
	startup.MarkReady()
	log.Info("Server ready")

	<-ctx.Done()
	startup.MarkDraining()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}

// openStore builds the configured repositories and returns a func that
// releases their connections
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, func(), error) {
	var store repository.Store
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreType {
	case config.StoreSQL:
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return store, cleanup, fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		log.Info("Database connection established", "type", cfg.DatabaseType)

		var migrations fs.FS = database.EmbeddedMigrations()
		if cfg.MigrationsPath != "" {
			migrations = os.DirFS(cfg.MigrationsPath)
		}
		applied, err := db.RunMigrations(ctx, migrations)
		if err != nil {
			return store, cleanup, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Migrations completed successfully", "applied", len(applied))

		store = repository.NewSQLStore(db)
	default:
		store = memory.NewStore().Repositories()
		log.Info("Using in-memory store; data is lost on restart")
	}

	if cfg.SessionStore == config.StoreRedis {
		rdb, err := repository.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return store, cleanup, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() { rdb.Close() })
		store.Sessions = repository.NewRedisSessionRepository(rdb)
		log.Info("Sessions stored in redis", "addr", cfg.RedisAddr)
	}

	return store, cleanup, nil
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *logger.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(ctx); err != nil {
				log.Warn("Failed to cleanup expired sessions", "error", err)
			}
		}
	}
}
