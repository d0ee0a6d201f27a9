package middlewares

import (
	"net/http"
	"strings"

	authUtils "civictrack-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserIDKey       = "user_id"
	AuthCookieName  = "auth_token"
	bearerPrefix    = "Bearer "
	actorContextKey = "actor"
)

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		if !authenticate(c, tokenString, secret) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but still rejects a token
// that is present and invalid.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString != "" && !authenticate(c, tokenString, secret) {
			return
		}
		c.Next()
	}
}

// Actor returns the verified user id, or nil for anonymous requests.
func Actor(c *gin.Context) *primitive.ObjectID {
	if v, ok := c.Get(actorContextKey); ok {
		if id, ok := v.(primitive.ObjectID); ok {
			return &id
		}
	}
	return nil
}

func authenticate(c *gin.Context, tokenString, secret string) bool {
	userID, err := authUtils.ParseToken(tokenString, secret)
	if err != nil {
		requestLogger(c).Debug("token_rejected", "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
		c.Abort()
		return false
	}

	actor, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		c.Abort()
		return false
	}

	c.Set(UserIDKey, userID)
	c.Set(actorContextKey, actor)
	return true
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to the auth cookie.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}
