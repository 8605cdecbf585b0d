package controller

import (
	"net/http"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/middleware"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /api/orders — requiere token
func (ctl *OrderController) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := ctl.Service.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "pedido creado exitosamente",
		"data":    order,
	})
}

// GET /api/orders — pedidos del comprador autenticado
func (ctl *OrderController) ListMine(c *gin.Context) {
	var q dto.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	orders, meta, err := ctl.Service.ListByBuyer(c.Request.Context(), user.ID, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "meta": meta})
}

// GET /api/orders/:id — comprador, artesano con items, o admin
func (ctl *OrderController) Get(c *gin.Context) {
	order, err := ctl.Service.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	totalItems := 0
	for _, it := range order.Items {
		totalItems += it.Quantity
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       order,
		"totalItems": totalItems,
	})
}

// PATCH /api/orders/:id/status — artesano con items o admin
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := ctl.Service.UpdateStatus(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "estado del pedido actualizado",
		"data":    order,
	})
}

// POST /api/orders/:id/cancel — comprador o admin
func (ctl *OrderController) Cancel(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, refundInitiated, err := ctl.Service.Cancel(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "pedido cancelado",
		"data":            order,
		"refundInitiated": refundInitiated,
	})
}

// GET /api/orders/:id/tracking
func (ctl *OrderController) Tracking(c *gin.Context) {
	info, err := ctl.Service.Tracking(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tracking": info})
}

// GET /api/artisans/orders — pedidos con productos del artesano + ingresos
func (ctl *OrderController) ArtisanOrders(c *gin.Context) {
	var q dto.ArtisanOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	orders, meta, revenue, err := ctl.Service.ArtisanOrders(c.Request.Context(), middleware.CurrentUser(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"meta": gin.H{
			"total":      meta.Total,
			"page":       meta.Page,
			"limit":      meta.Limit,
			"totalPages": meta.TotalPages,
			"revenue":    revenue,
		},
	})
}
