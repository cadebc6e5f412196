// Package middleware holds the gin middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
)

const userIDKey = "user_id"

// IssueToken signs an HS256 token carrying userID in the "user_id" claim.
func IssueToken(secret []byte, userID int, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller's ID under "user_id".
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authenticate(c.GetHeader("Authorization"), secret)
		if err != nil {
			appErr := apperr.As(err)
			c.AbortWithStatusJSON(appErr.HTTPStatus(), appErr.ToResponse())
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func authenticate(header string, secret []byte) (int, error) {
	if header == "" {
		return 0, apperr.Unauthenticated("authorization header required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, apperr.Unauthenticated("invalid authorization header format")
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, apperr.Unauthenticated("token expired")
		}
		return 0, apperr.Unauthenticated("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperr.Unauthenticated("invalid token claims")
	}
	// JSON numbers decode as float64.
	id, ok := claims[userIDKey].(float64)
	if !ok || id <= 0 {
		return 0, apperr.Unauthenticated("invalid token claims")
	}
	return int(id), nil
}

// UserID returns the authenticated caller set by AuthMiddleware.
func UserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
