// order.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// IsFinal indica si el estado ya no admite transiciones.
func (s OrderStatus) IsFinal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentPaypal         PaymentMethod = "paypal"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// OrderItem congela el precio y el artesano al momento de la compra.
type OrderItem struct {
	Product         primitive.ObjectID `bson:"product" json:"product"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	PriceAtPurchase float64            `bson:"price_at_purchase" json:"priceAtPurchase"`
	Artisan         primitive.ObjectID `bson:"artisan" json:"artisan"`
}

type ShippingAddress struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country" json:"country"`
}

// HistoryEntry es un registro inmutable del historial de la orden.
type HistoryEntry struct {
	Status    OrderStatus        `bson:"status" json:"status"`
	ChangedBy primitive.ObjectID `bson:"changed_by" json:"changedBy"`
	Date      time.Time          `bson:"date" json:"date"`
	Metadata  map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type ReturnStatus string

const (
	ReturnPendingReview ReturnStatus = "pending_review"
	ReturnApproved      ReturnStatus = "approved"
	ReturnRejected      ReturnStatus = "rejected"
	ReturnRefunded      ReturnStatus = "refunded"
)

func (s ReturnStatus) IsFinal() bool {
	return s == ReturnRejected || s == ReturnRefunded
}

type ReturnItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// ReturnMetadata es la forma canónica de los datos de la solicitud
// (en revisiones viejas del esquema era un objeto libre).
type ReturnMetadata struct {
	Reason       string       `bson:"reason" json:"reason"`
	Items        []ReturnItem `bson:"items" json:"items"`
	Evidence     []string     `bson:"evidence,omitempty" json:"evidence,omitempty"`
	RefundMethod string       `bson:"refund_method,omitempty" json:"refundMethod,omitempty"`
}

type ReturnHistoryEntry struct {
	Status       ReturnStatus       `bson:"status" json:"status"`
	ChangedBy    primitive.ObjectID `bson:"changed_by" json:"changedBy"`
	Date         time.Time          `bson:"date" json:"date"`
	Comment      string             `bson:"comment,omitempty" json:"comment,omitempty"`
	RefundAmount float64            `bson:"refund_amount,omitempty" json:"refundAmount,omitempty"`
}

// ReturnRequest vive embebida dentro de la orden.
type ReturnRequest struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	RequestedBy primitive.ObjectID   `bson:"requested_by" json:"requestedBy"`
	Status      ReturnStatus         `bson:"status" json:"status"`
	Metadata    ReturnMetadata       `bson:"metadata" json:"metadata"`
	History     []ReturnHistoryEntry `bson:"history" json:"history"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Buyer           primitive.ObjectID `bson:"buyer" json:"buyer"`
	Items           []OrderItem        `bson:"items" json:"items"`
	Total           float64            `bson:"total" json:"total"`
	Status          OrderStatus        `bson:"status" json:"status"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   PaymentMethod      `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"paymentStatus"`
	TrackingNumber  string             `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	History         []HistoryEntry     `bson:"history" json:"history"`
	ReturnRequests  []ReturnRequest    `bson:"return_requests" json:"returnRequests"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

// HasArtisan indica si el artesano participa en algún item de la orden.
func (o *Order) HasArtisan(artisanID primitive.ObjectID) bool {
	for _, it := range o.Items {
		if it.Artisan == artisanID {
			return true
		}
	}
	return false
}

// DeliveredAt devuelve la fecha de entrega según el historial,
// con fallback a la fecha de creación.
func (o *Order) DeliveredAt() time.Time {
	for _, h := range o.History {
		if h.Status == OrderDelivered {
			return h.Date
		}
	}
	return o.CreatedAt
}

// FindReturn busca una solicitud de devolución embebida por su id.
func (o *Order) FindReturn(returnID primitive.ObjectID) *ReturnRequest {
	for i := range o.ReturnRequests {
		if o.ReturnRequests[i].ID == returnID {
			return &o.ReturnRequests[i]
		}
	}
	return nil
}
