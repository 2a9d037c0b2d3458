package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopie/internal/domain"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
	headerRequestID = "X-Request-ID"

	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxRequestID = "requestID"
)

// RequestID проставляет сквозной идентификатор запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Set(ctxRequestID, id)
		c.Next()
	}
}

// Identity доверяет заголовкам шлюза: аутентификация и роли решены снаружи,
// ядро лишь читает готовое решение
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		role := domain.Role(c.GetHeader(headerUserRole))
		if role != domain.RoleAdmin && role != domain.RoleCustomer {
			role = domain.RoleCustomer
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// RequireRole пускает дальше только запросы с нужной ролью
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ctxUserRole)
		if !ok || v.(domain.Role) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(string)
	return id
}
