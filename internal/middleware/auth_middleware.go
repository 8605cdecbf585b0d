// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
)

// Claves del contexto gin.
const (
	CtxUser   = "user"
	CtxUserID = "userID"
)

// AuthMiddleware valida el access token y deja al usuario en el contexto.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "acceso no autorizado"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)

		claims, err := auth.ParseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token inválido o expirado"})
			c.Abort()
			return
		}

		// El usuario debe existir y seguir activo.
		user, err := auth.CurrentUser(c.Request.Context(), claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token inválido o expirado"})
			c.Abort()
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxUserID, user.ID.Hex())
		c.Next()
	}
}
