// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoopclone/backend/api"
	"github.com/whoopclone/backend/api/handlers"
	"github.com/whoopclone/backend/api/middleware"
	"github.com/whoopclone/backend/config"
	"github.com/whoopclone/backend/internal/auth"
	"github.com/whoopclone/backend/internal/cache"
	"github.com/whoopclone/backend/internal/logger"
	"github.com/whoopclone/backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting backend server...")

	// 1. Load Configuration; the process must not serve with bad settings
	cfg, err := config.Load()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetDebug(cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	for key, set := range cfg.OptionalKeys() {
		customLog.Debugf("Optional setting %s configured: %t", key, set)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Token service
	tokens, err := auth.NewTokenServiceFromSettings(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize token service: %v", err)
	}

	// 3. Database
	db, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		customLog.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := db.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	// 4. Cache
	rdb, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		customLog.Fatalf("Failed to initialize redis client: %v", err)
	}
	defer rdb.Close()
	if err := cache.HealthCheck(ctx, rdb); err != nil {
		customLog.Warnf("Redis not reachable at startup, readiness will report it: %v", err)
	}

	// 5. Router
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.RunJanitor(ctx, 5*time.Minute)

	router := api.SetupRouter(api.Dependencies{
		Settings: cfg,
		Users:    storage.NewUserRepository(db),
		Tokens:   tokens,
		Limiter:  limiter,
		Checks: map[string]handlers.HealthCheckFunc{
			"database": db.HealthCheck,
			"cache": func(ctx context.Context) error {
				return cache.HealthCheck(ctx, rdb)
			},
		},
	})

	// 6. Serve until signalled
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		customLog.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			customLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	customLog.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		customLog.Printf("Server forced to shutdown: %v", err)
	}
}
