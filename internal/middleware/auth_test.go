package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devflow/internal/config"
	"devflow/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func tokenFor(t *testing.T, sub any, exp time.Duration) string {
	t.Helper()
	return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(exp).Unix(),
	})
}

func TestUserFromHeader(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	noExpiry := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "5"})
	unsigned := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
		"sub": "5",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	otherKey := sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-123"), jwt.MapClaims{
		"sub": "5",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name    string
		header  string
		want    uint
		wantErr error
	}{
		{"valid", "Bearer " + tokenFor(t, "123", time.Hour), 123, nil},
		{"scheme is case-insensitive", "bearer " + tokenFor(t, "7", time.Hour), 7, nil},
		{"missing", "", 0, errMissingToken},
		{"basic scheme", "Basic dXNlcjpwYXNz", 0, errTokenFormat},
		{"no token", "Bearer ", 0, errTokenFormat},
		{"extra parts", "Bearer a b", 0, errTokenFormat},
		{"malformed", "Bearer malformed.token.here", 0, errTokenInvalid},
		{"expired", "Bearer " + tokenFor(t, "123", -time.Hour), 0, errTokenInvalid},
		{"no expiry", "Bearer " + noExpiry, 0, errTokenInvalid},
		{"alg none", "Bearer " + unsigned, 0, errTokenInvalid},
		{"wrong key", "Bearer " + otherKey, 0, errTokenInvalid},
		{"numeric subject", "Bearer " + tokenFor(t, 123, time.Hour), 0, errTokenSubject},
		{"zero subject", "Bearer " + tokenFor(t, "0", time.Hour), 0, errTokenSubject},
		{"non-numeric subject", "Bearer " + tokenFor(t, "alice", time.Hour), 0, errTokenSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := userFromHeader(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app := fiber.New()
	app.Get("/me", AuthRequired, func(c *fiber.Ctx) error {
		ctxUser, _ := c.UserContext().Value(UserIDKey).(uint)
		return c.JSON(fiber.Map{"local": UserID(c), "ctx": ctxUser})
	})

	t.Run("resolves the caller into locals and context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, "42", time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]uint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, uint(42), body["local"])
		assert.Equal(t, uint(42), body["ctx"])
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, models.CodeUnauthorized, body.Code)
		assert.False(t, body.Retryable)
	})
}

func TestOptionalAuth(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app := fiber.New()
	app.Get("/feed", OptionalAuth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"actor": UserID(c)})
	})

	tests := []struct {
		name   string
		header string
		want   uint
	}{
		{"anonymous", "", 0},
		{"garbage token stays anonymous", "Bearer nope", 0},
		{"expired token stays anonymous", "Bearer " + tokenFor(t, "9", -time.Minute), 0},
		{"valid token", "Bearer " + tokenFor(t, "9", time.Hour), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]uint
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.want, body["actor"])
		})
	}
}
