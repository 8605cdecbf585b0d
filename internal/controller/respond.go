// respond.go
package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/logger"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail mapea los errores de negocio a código HTTP + cuerpo JSON.
// Nada se propaga más allá del handler.
func fail(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		authErr       *service.AuthError
		forbiddenErr  *service.ForbiddenError
		transitionErr *service.InvalidTransitionError
		windowErr     *service.WindowExpiredError
	)

	switch {
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Message}
		if len(validationErr.Details) > 0 {
			body["details"] = validationErr.Details
		}
		c.JSON(http.StatusBadRequest, body)

	case errors.As(err, &transitionErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              fmt.Sprintf("transición de estado no válida: %s -> %s", transitionErr.From, transitionErr.To),
			"allowedTransitions": transitionErr.Allowed,
		})

	case errors.As(err, &windowErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    windowErr.Message,
			"deadline": windowErr.Deadline,
			"today":    windowErr.Now,
		})

	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})

	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Message})

	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Message})

	default:
		logger.L().Error("error interno", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno del servidor"})
	}
}

// bindError responde los errores del binding de gin.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "error de validación",
		"details": err.Error(),
	})
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
