package routes

import (
	"log/slog"
	"net/http"
	"time"

	"civictrack-be/controllers"
	"civictrack-be/metrics"
	"civictrack-be/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options collects what the router needs from main.
type Options struct {
	Logger         *slog.Logger
	JWTSecret      string
	AllowedOrigins []string
	RateLimit      RateLimit
}

// NewRouter builds the engine with middleware, API routes, health and metrics.
func NewRouter(issues *controllers.IssueController, auth *controllers.AuthController, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(opts.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	AuthRoutes(r, auth, opts.JWTSecret)
	IssueRoutes(r, issues, opts.JWTSecret, opts.RateLimit)
	AdminRoutes(r, issues, opts.JWTSecret)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
