package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heartconomy/heartledger/internal/auth"
	"github.com/heartconomy/heartledger/internal/cache"
	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/ledger"
	"github.com/heartconomy/heartledger/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db     *db.DB
	cache  *cache.Cache
	ledger *ledger.Service
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, ledgerService *ledger.Service, tokens *auth.TokenManager) *Router {
	return &Router{
		db:     database,
		cache:  redisCache,
		ledger: ledgerService,
		tokens: tokens,
		logger: logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	engine.Use(cors.New(corsConfig))

	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", r.registerHandler)
		authGroup.POST("/login", r.loginHandler)
	}

	protected := v1.Group("")
	protected.Use(AuthMiddleware(r.tokens))
	{
		protected.POST("/transactions", r.transactionHandler)

		protected.GET("/feed", r.feedHandler)
		protected.GET("/feed/following", r.followingFeedHandler)
		protected.GET("/posts/:id/comments", r.commentsHandler)
		protected.GET("/profiles/:id", r.profileHandler)
		protected.GET("/leaderboard/vampires", r.leaderboardHandler)
		protected.GET("/activity", r.activityHandler)

		protected.GET("/notifications", r.notificationsHandler)
		protected.POST("/notifications/:id/read", r.markReadHandler)
		protected.POST("/notifications/read-all", r.markAllReadHandler)

		protected.POST("/follows/:id", r.followHandler)
		protected.DELETE("/follows/:id", r.unfollowHandler)
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	status := "OK"
	checks := gin.H{}

	if err := r.db.Health(c.Request.Context()); err != nil {
		status = "DEGRADED"
		checks["database"] = err.Error()
	} else {
		checks["database"] = "OK"
	}

	if r.cache != nil {
		if err := r.cache.Health(c.Request.Context()); err != nil {
			status = "DEGRADED"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "OK"
		}
	}

	code := http.StatusOK
	if status != "OK" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "heartledger-api",
		"checks":  checks,
	})
}
