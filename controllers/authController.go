package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"civictrack-be/config"
	"civictrack-be/identity"
	"civictrack-be/middlewares"
	"civictrack-be/models"
	authUtils "civictrack-be/utils"

	"github.com/gin-gonic/gin"
)

// AuthController handles account registration and sessions.
type AuthController struct {
	users    identity.UserStore
	settings *config.Settings
}

func NewAuthController(users identity.UserStore, settings *config.Settings) *AuthController {
	return &AuthController{users: users, settings: settings}
}

// Register handles user registration
func (ac *AuthController) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	now := time.Now()
	user := models.User{
		Name:      input.Name,
		Email:     input.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.SetPassword(input.Password); err != nil {
		middlewares.RequestLog(c).Error("hash_password_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ac.users.Create(ctx, &user); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
			return
		}
		middlewares.RequestLog(c).Error("create_user_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, user.Profile())
}

// Login checks credentials, sets the auth cookie and returns the token for
// clients that send it as a bearer header.
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := ac.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			middlewares.RequestLog(c).Error("find_user_failed", "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.CheckPassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateAndSetToken(user.ID.Hex(), ac.settings.JWTSecret)
	if err != nil {
		middlewares.RequestLog(c).Error("generate_token_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	http.SetCookie(c.Writer, ac.cookie(token, int(authUtils.TokenTTL.Seconds())))

	c.JSON(http.StatusOK, gin.H{
		"user":  user.Profile(),
		"token": token,
	})
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	actor := middlewares.Actor(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := ac.users.FindByID(ctx, *actor)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user.Profile())
}

// Logout clears the auth_token cookie
func (ac *AuthController) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, ac.cookie("", -1))
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

func (ac *AuthController) cookie(value string, maxAge int) *http.Cookie {
	production := ac.settings.IsProduction()
	domain := ac.settings.Domain
	// For production, don't set domain to allow cross-origin cookies
	if production {
		domain = ""
	}

	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     middlewares.AuthCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   domain,
		Secure:   production,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
