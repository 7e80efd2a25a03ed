package handler

import (
	"live-bingo-engine/internal/adapter/http/middleware"
	redisStore "live-bingo-engine/internal/adapter/storage/redis"
	"live-bingo-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	Coordinator    ports.RoundCoordinator
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	roundHandler := NewRoundHandler(deps.Coordinator)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	rounds := v1.Group("/rounds", jwtAuth)
	{
		rounds.GET("/history", rl("rounds"), roundHandler.History)
		rounds.GET("/:stake", rl("rounds"), roundHandler.Join)
		rounds.POST("/:stake/cards", rl("rounds"), roundHandler.AllocateCard)
		rounds.DELETE("/:stake/cards/:number", rl("rounds"), roundHandler.CancelAllocation)
		rounds.POST("/:stake/claim", rl("claims"), roundHandler.ClaimWin)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/topup", rl("wallet_topup"), walletHandler.Topup)
	}

	return r
}
