// admin_only.go
package middleware

import (
	"net/http"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"

	"github.com/gin-gonic/gin"
)

// CurrentUser recupera el usuario que dejó AuthMiddleware en el contexto.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(CtxUser); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// AdminOnly corta la cadena si el usuario autenticado no es admin.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "se requieren privilegios de administrador"})
			c.Abort()
			return
		}
		c.Next()
	}
}
