package routes

import (
	"civictrack-be/controllers"
	"civictrack-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, auth *controllers.AuthController, secret string) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", auth.Login)
		group.GET("/me", middlewares.AuthMiddleware(secret), auth.GetMe)
		group.POST("/logout", auth.Logout)
	}
}
