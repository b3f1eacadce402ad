// api/handlers/auth_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/whoopclone/backend/api/middleware"
	"github.com/whoopclone/backend/api/models"
	"github.com/whoopclone/backend/internal/auth"
	"github.com/whoopclone/backend/internal/domain"
	"github.com/whoopclone/backend/internal/logger"
	"github.com/whoopclone/backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// UserStore is the persistence the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	Users        UserStore
	Tokens       *auth.TokenService
	PasswordCost int
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(users UserStore, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		PasswordCost: bcrypt.DefaultCost,
	}
}

// Signup handles user registration requests.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Signup binding error: %v", err)
		_ = c.Error(err)
		return
	}

	hashedPassword, err := auth.HashPasswordWithCost(req.Password, h.PasswordCost)
	if err != nil {
		customLog.Warnf("Failed to hash password during signup for email %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), req.Username, req.Email, hashedPassword)
	if err != nil {
		customLog.Warnf("Failed to create user %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Successfully registered user %s", user.UserId)
	c.JSON(http.StatusCreated, models.SignupResponse{
		Message: "User registered successfully",
		User:    models.NewUserResponse(user),
	})
}

// Login handles user login requests and issues an access token on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		_ = c.Error(err)
		return
	}

	user, err := h.Users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		customLog.Warnf("Login failed for email %s: %v", req.Email, err)
		if errors.Is(err, storage.ErrUserNotFound) {
			// same answer as a wrong password
			err = storage.ErrInvalidCredentials
		}
		_ = c.Error(err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		customLog.Warnf("Login attempt failed for user %s: invalid password", user.UserId)
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	if auth.NeedsRehash(user.PasswordHash, h.PasswordCost) {
		h.rehash(c.Request.Context(), user.UserId, req.Password)
	}

	tokenString, err := h.Tokens.Issue(auth.Claims{"sub": user.UserId, "email": user.Email})
	if err != nil {
		customLog.Warnf("Failed to generate token for user %s: %v", user.UserId, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Message:     "Login successful",
		AccessToken: tokenString,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.Tokens.DefaultTTL().Seconds()),
		User:        models.NewUserResponse(user),
	})
}

// Me returns the account behind the Bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	user, err := h.Users.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		customLog.Warnf("Me: user %s lookup failed: %v", userID, err)
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// rehash upgrades a stored digest to the current cost. Failures only log;
// the login itself already succeeded.
func (h *AuthHandler) rehash(ctx context.Context, userID, password string) {
	newHash, err := auth.HashPasswordWithCost(password, h.PasswordCost)
	if err != nil {
		customLog.Warnf("Rehash for user %s failed: %v", userID, err)
		return
	}
	if err := h.Users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		customLog.Warnf("Storing rehashed password for user %s failed: %v", userID, err)
		return
	}
	customLog.Printf("Upgraded password hash cost for user %s", userID)
}
