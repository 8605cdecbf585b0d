// product.go
package dto

type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=100"`
	Description string   `json:"description" binding:"required,min=10,max=500"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Stock       int      `json:"stock" binding:"gte=0"`
	Category    string   `json:"category" binding:"required"`
	Images      []string `json:"images" binding:"required,min=1,max=5,dive,url"`
}

// UpdateProductRequest usa punteros para distinguir "no enviado" de "valor cero".
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=3,max=100"`
	Description *string  `json:"description" binding:"omitempty,min=10,max=500"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Category    *string  `json:"category" binding:"omitempty,min=1"`
	Images      []string `json:"images" binding:"omitempty,max=5,dive,url"`
}

type AdjustStockRequest struct {
	Operation string `json:"operation" binding:"required,oneof=increment decrement set"`
	Value     int    `json:"value" binding:"required,gt=0"`
	Reason    string `json:"reason"`
}

type ProductQuery struct {
	PageQuery
	Category string  `form:"category"`
	MinPrice float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Sort     string  `form:"sort" binding:"omitempty,oneof=price -price created_at -created_at name -name"`
}

type ProductSearchQuery struct {
	ProductQuery
	Query string `form:"query" binding:"required,min=1"`
}

type ArtisanProductsQuery struct {
	PageQuery
	Category string `form:"category"`
	Status   string `form:"status,default=active" binding:"omitempty,oneof=active inactive"`
}
