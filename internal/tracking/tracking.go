// tracking.go
package tracking

import (
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
)

// Carrier simulado; no hay integración real con transportistas.
const Carrier = "FedEx"

type Event struct {
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

type Info struct {
	Number            string    `json:"number"`
	Carrier           string    `json:"carrier"`
	EstimatedDelivery time.Time `json:"estimateDelivery"`
	History           []Event   `json:"history"`
}

// Generate simula la línea de tiempo del envío a partir de la orden.
func Generate(order *model.Order, now time.Time) Info {
	history := []Event{
		{
			Date:        order.CreatedAt,
			Status:      "Confirmado",
			Location:    "Tienda del artesano",
			Description: "El pedido fue recibido por el artesano",
		},
		{
			Date:        order.CreatedAt.AddDate(0, 0, 2),
			Status:      "En preparación",
			Location:    "Taller artesanal",
			Description: "El artesano está preparando el pedido",
		},
		{
			Date:        order.CreatedAt.AddDate(0, 0, 4),
			Status:      "En tránsito",
			Location:    "Centro logístico",
			Description: "El pedido fue entregado al transportista",
		},
	}

	if order.Status == model.OrderDelivered {
		history = append(history, Event{
			Date:        order.CreatedAt.AddDate(0, 0, 6),
			Status:      "Entregado",
			Location:    "Dirección del comprador",
			Description: "El pedido fue entregado al cliente",
		})
	}

	return Info{
		Number:            order.TrackingNumber,
		Carrier:           Carrier,
		EstimatedDelivery: now.AddDate(0, 0, 14),
		History:           history,
	}
}
