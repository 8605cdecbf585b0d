// order.go
package dto

type OrderItemInput struct {
	ProductID string `json:"productId" binding:"required,len=24,hexadecimal"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type ShippingAddressInput struct {
	Street     string `json:"street" binding:"required,min=5"`
	City       string `json:"city" binding:"required,min=2"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" binding:"required,min=2"`
}

type CreateOrderRequest struct {
	Items           []OrderItemInput     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddressInput `json:"shippingAddress" binding:"required"`
	PaymentMethod   string               `json:"paymentMethod" binding:"required,oneof=credit_card paypal cash_on_delivery"`
}

type OrderQuery struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
}

type UpdateOrderStatusRequest struct {
	Status             string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	TrackingNumber     string `json:"trackingNumber"`
	CancellationReason string `json:"cancellationReason"`
}

type CancelOrderRequest struct {
	Reason        string `json:"reason" binding:"required,min=3"`
	RefundRequest bool   `json:"refundRequest"`
}

type ArtisanOrdersQuery struct {
	PageQuery
	Status   string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	FromDate string `form:"fromDate" binding:"omitempty,datetime=2006-01-02"`
	ToDate   string `form:"toDate" binding:"omitempty,datetime=2006-01-02"`
}
