package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/appointments"
	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// AuthMiddleware creates a middleware for JWT authentication. It resolves the
// bearer token to the caller's id and role.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Not authorized, no token")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], secret)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "Not authorized, token failed", err)
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(userIDKey, claims.UserID)
		c.Set(userRoleKey, claims.Role)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.Unauthorized(c, "Not authorized, no token")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if principal.Role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "Access denied for role "+string(principal.Role))
		c.Abort()
	}
}

// GetPrincipal returns the authenticated caller set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (appointments.Principal, bool) {
	userID, ok := c.Get(userIDKey)
	if !ok {
		return appointments.Principal{}, false
	}
	userRole, ok := c.Get(userRoleKey)
	if !ok {
		return appointments.Principal{}, false
	}

	id, idOK := userID.(string)
	role, roleOK := userRole.(models.Role)
	if !idOK || !roleOK {
		return appointments.Principal{}, false
	}
	return appointments.Principal{ID: id, Role: role}, true
}
