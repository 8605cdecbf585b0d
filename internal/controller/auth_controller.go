package controller

import (
	"net/http"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/middleware"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
)

const refreshCookie = "refresh_token"

type AuthController struct {
	Service    *service.AuthService
	RefreshTTL time.Duration
}

func NewAuthController(s *service.AuthService, refreshTTL time.Duration) *AuthController {
	return &AuthController{Service: s, RefreshTTL: refreshTTL}
}

// El refresh token viaja en cookie HTTP-only y también en el body.
func (ctl *AuthController) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(refreshCookie, token, int(ctl.RefreshTTL.Seconds()), "/api/auth", "", false, true)
}

// POST /api/auth/register
func (ctl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, tokens, err := ctl.Service.Register(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		fail(c, err)
		return
	}

	ctl.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusCreated, gin.H{
		"message": "usuario creado con éxito",
		"data":    dto.AuthResponse{User: user, Tokens: tokens},
	})
}

// POST /api/auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, tokens, err := ctl.Service.Login(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		fail(c, err)
		return
	}

	ctl.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"message": "inicio de sesión exitoso",
		"data":    dto.AuthResponse{User: user, Tokens: tokens},
	})
}

// refreshTokenFrom toma el token del body y cae a la cookie si no viene.
func refreshTokenFrom(c *gin.Context, body string) string {
	if body != "" {
		return body
	}
	if cookie, err := c.Cookie(refreshCookie); err == nil {
		return cookie
	}
	return ""
}

// POST /api/auth/refresh-token
func (ctl *AuthController) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	_ = c.ShouldBindJSON(&req) // el body es opcional si la cookie está presente

	token := refreshTokenFrom(c, req.RefreshToken)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token de refresco requerido"})
		return
	}

	_, tokens, err := ctl.Service.Refresh(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		fail(c, err)
		return
	}

	ctl.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, tokens)
}

// POST /api/auth/logout — requiere token de acceso
func (ctl *AuthController) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	token := refreshTokenFrom(c, req.RefreshToken)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token de refresco requerido"})
		return
	}

	if err := ctl.Service.Logout(c.Request.Context(), user.ID, token); err != nil {
		fail(c, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "sesión cerrada exitosamente"})
}

// POST /api/auth/logout-all
func (ctl *AuthController) LogoutAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := ctl.Service.LogoutAll(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "sesiones cerradas en todos los dispositivos"})
}
