package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/service"
	"github.com/sirupsen/logrus"
)

// userContextKey - ключ, под которым аутентифицированный пользователь лежит в контексте Gin
const userContextKey = "currentUser"

// AuthMiddleware - middleware аутентификации по API-токену.
// Токен принимается в заголовке X-API-Key или Authorization: Bearer
// и резолвится в учетную запись пользователя.
func AuthMiddleware(users service.UserService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Проверяем также заголовок Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Message: "API token required"})
			return
		}

		user, err := users.Authenticate(c.Request.Context(), apiKey)
		if err != nil {
			log.WithError(err).Warn("Invalid API token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Message: "Invalid API token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRole - middleware, пропускающее только пользователей с заданной ролью
func RequireRole(role models.Role, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || user.Role != role {
			log.WithField("required_role", role).Warn("Actor does not have the required role")
			c.AbortWithStatusJSON(http.StatusForbidden, Response{Success: false, Message: "Not authorized to access this resource"})
			return
		}
		c.Next()
	}
}

// currentUser достает аутентифицированного пользователя из контекста запроса
func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
