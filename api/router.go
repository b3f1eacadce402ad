// api/router.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoopclone/backend/api/handlers"
	"github.com/whoopclone/backend/api/middleware"
	"github.com/whoopclone/backend/config"
	"github.com/whoopclone/backend/internal/auth"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Settings *config.Settings
	Users    handlers.UserStore
	Tokens   *auth.TokenService
	// Checks feed /health/ready; nil means no dependency checks.
	Checks map[string]handlers.HealthCheckFunc
	// Limiter throttles signup/login; built from Settings when nil.
	Limiter *middleware.RateLimiter
	// PasswordCost overrides the bcrypt cost; zero keeps the default.
	PasswordCost int
}

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Settings

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	if corsMiddleware := middleware.CORS(cfg.CORSOrigins); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	router.Use(middleware.ErrorHandler())

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	if deps.PasswordCost != 0 {
		authHandler.PasswordCost = deps.PasswordCost
	}
	healthHandler := handlers.NewHealthHandler(cfg.AppName, deps.Checks)

	// --- Public Routes ---
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Readiness)

	v1 := router.Group(cfg.APIV1Prefix)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", middleware.RateLimitMiddleware(limiter), authHandler.Signup)
		authRoutes.POST("/login", middleware.RateLimitMiddleware(limiter), authHandler.Login)
	}

	// --- Protected Routes ---
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		protected.GET("/auth/me", authHandler.Me)
	}

	return router
}
