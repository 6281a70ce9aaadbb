package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/drill-dungeon/internal/auth"
	"github.com/annel0/drill-dungeon/internal/logging"
)

// OperatorKey — ключ контекста gin с именем оператора из токена
const OperatorKey = "operator"

// RequireToken пропускает только запросы с действительным Bearer токеном
func RequireToken(ts *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "требуется Bearer токен"})
			return
		}

		claims, err := ts.Validate(token)
		if err != nil {
			logging.GetAPILogger().Warn("🔒 Отклонён запрос %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "недействительный токен"})
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}
