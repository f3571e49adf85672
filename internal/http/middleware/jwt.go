package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/service"
)

// JWT validates the Bearer token and stores user_id and role in the gin
// context for downstream handlers.
func JWT(jwtm *service.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, role, err := jwtm.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

// AdminOnly rejects requests whose token does not carry the admin role.
// Requires JWT middleware to run before this.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if role, ok := roleVal.(domain.Role); !ok || role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
