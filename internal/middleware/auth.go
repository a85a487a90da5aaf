// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"devflow/internal/config"
	"devflow/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var (
	errMissingToken = errors.New("Authorization header required")
	errTokenFormat  = errors.New("Invalid authorization header format")
	errTokenInvalid = errors.New("Invalid or expired token")
	errTokenSubject = errors.New("Invalid user ID in token")
)

// AuthRequired rejects requests without a valid bearer token and stores the
// subject as c.Locals("userID").
func AuthRequired(c *fiber.Ctx) error {
	userID, err := userFromHeader(c.Get("Authorization"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(err.Error()))
	}
	setUser(c, userID)
	return c.Next()
}

// OptionalAuth resolves the caller when a valid token is present and leaves
// the request anonymous otherwise.
func OptionalAuth(c *fiber.Ctx) error {
	if userID, err := userFromHeader(c.Get("Authorization")); err == nil {
		setUser(c, userID)
	}
	return c.Next()
}

// UserID returns the resolved caller, or 0 for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// userFromHeader resolves "Bearer <jwt>" to the numeric subject. Only
// HMAC-signed tokens with an expiry are accepted.
func userFromHeader(authHeader string) (uint, error) {
	if authHeader == "" {
		return 0, errMissingToken
	}
	scheme, raw, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" || strings.Contains(raw, " ") {
		return 0, errTokenFormat
	}

	token, err := jwt.Parse(raw, signingKey,
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, errTokenInvalid
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errTokenSubject
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, errTokenSubject
	}
	return uint(id), nil
}

func signingKey(*jwt.Token) (any, error) {
	return []byte(cfg.JWTSecret), nil
}
