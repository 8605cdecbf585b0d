// common.go
package dto

// PageQuery es la convención de paginación de toda la API:
// page 1-based, limit con tope de 100.
type PageQuery struct {
	Page  int `form:"page,default=1" binding:"omitempty,gte=1"`
	Limit int `form:"limit,default=10" binding:"omitempty,gte=1,lte=100"`
}

func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

func NewMeta(total int64, page, limit int) Meta {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Meta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}
