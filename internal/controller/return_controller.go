package controller

import (
	"net/http"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/middleware"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
)

type ReturnController struct {
	Service *service.ReturnService
}

func NewReturnController(s *service.ReturnService) *ReturnController {
	return &ReturnController{Service: s}
}

// POST /api/orders/:id/return — solo el comprador, pedido entregado
func (ctl *ReturnController) Submit(c *gin.Context) {
	var req dto.ReturnOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rr, deadline, err := ctl.Service.Submit(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "solicitud de devolución registrada",
		"data":           rr,
		"returnDeadline": deadline.Format(time.RFC3339),
	})
}

// PATCH /api/returns/:returnId/order/:id — solo admin
func (ctl *ReturnController) Review(c *gin.Context) {
	var req dto.UpdateReturnStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rr, err := ctl.Service.Review(c.Request.Context(), c.Param("id"), c.Param("returnId"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "solicitud de devolución actualizada",
		"data":    rr,
	})
}

// GET /api/returns/:returnId
func (ctl *ReturnController) Details(c *gin.Context) {
	rr, order, err := ctl.Service.Details(c.Request.Context(), c.Param("returnId"), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"returnRequest": rr,
			"orderId":       order.ID,
			"orderStatus":   order.Status,
			"buyer":         order.Buyer,
		},
	})
}

// GET /api/returns — admin ve todas, usuario las suyas
func (ctl *ReturnController) List(c *gin.Context) {
	var q dto.ListReturnsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	returns, meta, err := ctl.Service.List(c.Request.Context(), middleware.CurrentUser(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": returns, "meta": meta})
}
