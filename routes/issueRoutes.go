package routes

import (
	"civictrack-be/controllers"
	"civictrack-be/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit configures the per-identity write limiter. A nil Client disables it.
type RateLimit struct {
	Client *redis.Client
	Prefix string
	Limit  int
}

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, issues *controllers.IssueController, secret string, limit RateLimit) {
	reportLimiter := middlewares.IssueRateLimiter(limit.Client, limit.Prefix, limit.Limit)
	flagLimiter := middlewares.IssueRateLimiter(limit.Client, limit.Prefix+":flag", limit.Limit)

	issue := r.Group("/api/issues")
	{
		issue.POST("", middlewares.OptionalAuth(secret), reportLimiter, issues.Create)
		issue.POST("/create", middlewares.OptionalAuth(secret), reportLimiter, issues.Create)
		issue.GET("", issues.List)
		issue.GET("/filtered", issues.List)
		issue.GET("/:id", issues.Get)
		issue.PATCH("/:id/status", middlewares.AuthMiddleware(secret), issues.UpdateStatus)
		issue.POST("/:id/flag", middlewares.AuthMiddleware(secret), flagLimiter, issues.Flag)
	}
}

// AdminRoutes sets up moderation views
func AdminRoutes(r *gin.Engine, issues *controllers.IssueController, secret string) {
	admin := r.Group("/api/admin", middlewares.AuthMiddleware(secret))
	{
		admin.GET("/issues/flagged", issues.ListFlagged)
		admin.GET("/stats", issues.Stats)
	}
}
