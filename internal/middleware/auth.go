package middleware

import (
	"strings"

	"github.com/fieldtrace/core/internal/pkg/apperr"
	"github.com/fieldtrace/core/internal/pkg/jwt"
	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	ContextKeyWorkerID = "worker_id"
	ContextKeyTenantID = "tenant_id"
	ContextKeyAdmin    = "is_admin"
)

// Auth returns a middleware that enforces JWT authentication. Token
// issuance lives in the identity service; this core only validates.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyWorkerID, claims.WorkerID)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyAdmin, claims.Admin)
		c.Next()
	}
}

// AdminOnly requires an authenticated token with the admin flag.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		if !claims.Admin {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Set(ContextKeyWorkerID, claims.WorkerID)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyAdmin, true)
		c.Next()
	}
}

// ValidateToken validates a raw JWT and returns its claims.
func ValidateToken(rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, apperr.Auth("token is required")
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, apperr.Auth("invalid token")
	}
	return claims, nil
}

// CurrentWorkerID extracts the authenticated worker ID from context.
func CurrentWorkerID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyWorkerID)
	id, _ := v.(string)
	return id
}

// CurrentTenantID extracts the authenticated tenant ID from context.
func CurrentTenantID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyTenantID)
	id, _ := v.(string)
	return id
}

// IsAdmin reports whether the request carries an admin token.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(ContextKeyAdmin)
	admin, _ := v.(bool)
	return admin
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
