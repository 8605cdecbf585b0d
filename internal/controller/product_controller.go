package controller

import (
	"net/http"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/middleware"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductController struct {
	Service *service.ProductService
}

func NewProductController(s *service.ProductService) *ProductController {
	return &ProductController{Service: s}
}

// POST /api/products — requiere token
func (ctl *ProductController) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := ctl.Service.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GET /api/products — pública
func (ctl *ProductController) List(c *gin.Context) {
	var q dto.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	products, meta, err := ctl.Service.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "meta": meta})
}

// GET /api/products/search — pública
func (ctl *ProductController) Search(c *gin.Context) {
	var q dto.ProductSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	products, meta, err := ctl.Service.Search(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "query": q.Query, "meta": meta})
}

// GET /api/products/:id — pública
func (ctl *ProductController) GetByID(c *gin.Context) {
	product, err := ctl.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// GET /api/products/artisan/:artisanId — pública
func (ctl *ProductController) ByArtisan(c *gin.Context) {
	var q dto.ArtisanProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	products, meta, err := ctl.Service.ByArtisan(c.Request.Context(), c.Param("artisanId"), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "meta": meta})
}

// PUT /api/products/:id — dueño o admin
func (ctl *ProductController) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := ctl.Service.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DELETE /api/products/:id — borrado lógico, dueño o admin
func (ctl *ProductController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "producto eliminado",
	})
}

// PATCH /api/products/:id/stock — dueño o admin
func (ctl *ProductController) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := ctl.Service.AdjustStock(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"productId": product.ID,
		"newStock":  product.Stock,
		"operation": req.Operation,
		"reason":    req.Reason,
	})
}

// GET /api/products/categories-available — pública
func (ctl *ProductController) Categories(c *gin.Context) {
	categories, err := ctl.Service.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(categories),
		"categories": categories,
	})
}
