// returns.go
package dto

type ReturnItemInput struct {
	ProductID string `json:"productId" binding:"required,len=24,hexadecimal"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type ReturnOrderRequest struct {
	Reason       string            `json:"reason" binding:"required,min=3,max=500"`
	Items        []ReturnItemInput `json:"items" binding:"required,min=1,dive"`
	Evidence     []string          `json:"evidence" binding:"omitempty,max=5,dive,url"`
	RefundMethod string            `json:"refundMethod" binding:"omitempty,oneof=original_payment store_credit"`
}

type UpdateReturnStatusRequest struct {
	Status       string  `json:"status" binding:"required,oneof=pending_review approved rejected refunded"`
	AdminComment string  `json:"adminComment" binding:"omitempty,max=500"`
	RefundAmount float64 `json:"refundAmount" binding:"omitempty,gt=0"`
}

type ListReturnsQuery struct {
	PageQuery
	Status    string `form:"status" binding:"omitempty,oneof=pending_review approved rejected refunded"`
	FromDate  string `form:"fromDate" binding:"omitempty,datetime=2006-01-02"`
	ToDate    string `form:"toDate" binding:"omitempty,datetime=2006-01-02"`
	ArtisanID string `form:"artisanId" binding:"omitempty,len=24,hexadecimal"`
}
