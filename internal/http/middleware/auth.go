package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedreach-backend/internal/authz"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey  = "userID"
	ContextRoleKey    = "role"
	ContextIsAdminKey = "isAdmin"
)

// AccessParser разбирает access токен.
type AccessParser interface {
	ParseAccess(token string) (*service.Principal, error)
}

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			c.Abort()
			return
		}

		principal, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, principal.UserID)
		c.Set(ContextRoleKey, principal.Role)
		c.Set(ContextIsAdminKey, principal.IsAdmin)
		c.Next()
	}
}

// RequireCapability пропускает запрос, только если у пользователя есть право.
// Ставится после AuthMiddleware.
func RequireCapability(capability authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		isAdmin := c.GetBool(ContextIsAdminKey)

		if !authz.Can(authz.Subject{Role: role, IsAdmin: isAdmin}, capability) {
			response.Forbidden(c, "недостаточно прав")
			c.Abort()
			return
		}
		c.Next()
	}
}
