// publisher.go
package rabbit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Exchanges fanout del dominio; los consumidores se suscriben con sus
// propias colas (notificaciones, reportes, etc.).
var exchanges = []string{
	"order_placed",
	"order_shipped",
	"order_cancelled",
	"return_requested",
	"return_reviewed",
}

type Publisher struct {
	ch *amqp091.Channel
}

// envelope es el sobre estándar de los mensajes publicados.
type envelope struct {
	CorrelationID string      `json:"correlation_id"`
	Exchange      string      `json:"exchange"`
	RoutingKey    string      `json:"routing_key"`
	Message       interface{} `json:"message"`
}

// NewPublisher declara los exchanges del dominio sobre el canal.
func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(
			ex,
			"fanout",
			true,  // durable
			false, // auto-delete
			false,
			false,
			nil,
		); err != nil {
			return nil, err
		}
	}
	return &Publisher{ch: ch}, nil
}

// Publish serializa el payload y lo emite al exchange indicado.
func (p *Publisher) Publish(ctx context.Context, exchange string, payload interface{}) error {
	body, err := json.Marshal(envelope{
		CorrelationID: uuid.NewString(),
		Exchange:      exchange,
		RoutingKey:    "", // fanout ignora routing key
		Message:       payload,
	})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, exchange, "", false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
