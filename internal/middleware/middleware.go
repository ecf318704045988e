package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parkir/internal/cache"
	"parkir/internal/models"
)

// Ctx key and helpers for the authenticated operator.
// Using unexported type to avoid collisions

type ctxKey string

const operatorKey ctxKey = "operator"

func ContextWithOperator(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, operatorKey, username)
}

func OperatorUsernameFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorKey)
	if v == nil {
		return "", false
	}
	username, ok := v.(string)
	return username, ok
}

// CORS middleware for browser clients
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// Logger middleware for structured request logging
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		operator, exists := c.Get("operator")

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if exists {
			logFields = append(logFields, "operator", operator)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			slog.Error("Request completed with error", logFields...)
		}
	}
}

// Recovery middleware with detailed panic logging
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// OperatorStore is the credential lookup behind BasicAuth.
type OperatorStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// AuthCache is the read-through credential cache in front of the operator
// store. A nil AuthCache disables caching.
type AuthCache interface {
	GetOperatorAuth(ctx context.Context, username string) (*cache.OperatorAuth, error)
	SetOperatorAuth(ctx context.Context, username string, entry cache.OperatorAuth) error
	DeleteOperatorAuth(ctx context.Context, username string) error
}

// BasicAuth authenticates an operator via HTTP Basic Auth, checking the
// credential cache first and falling back to the operators table. A cached
// entry grants access only while it is marked active; any database-verified
// denial drops the cached entry so it cannot outlive a deactivation.
func BasicAuth(operators OperatorStore, authCache AuthCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()

		hash := sha256.Sum256([]byte(password))
		passwordHash := fmt.Sprintf("%x", hash)

		if authCache != nil {
			if entry, err := authCache.GetOperatorAuth(ctx, username); err == nil &&
				entry.IsActive && entry.PasswordHash == passwordHash {
				c.Set("operator", username)
				c.Request = c.Request.WithContext(ContextWithOperator(ctx, username))
				c.Next()
				return
			}
			// Miss, stale or inactive entries fall through to the database.
		}

		operator, err := operators.GetByUsername(ctx, username)
		if err != nil || operator == nil || !operator.IsActive {
			if authCache != nil && err == nil {
				_ = authCache.DeleteOperatorAuth(ctx, username)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if passwordHash != operator.PasswordHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if authCache != nil {
			_ = authCache.SetOperatorAuth(ctx, username, cache.OperatorAuth{
				PasswordHash: passwordHash,
				OperatorID:   operator.ID,
				IsActive:     operator.IsActive,
			})
		}

		c.Set("operator", username)
		c.Request = c.Request.WithContext(ContextWithOperator(c.Request.Context(), username))

		c.Next()
	}
}
