// Package queue publishes domain events to RabbitMQ.  Events are
// informational: the request that produced one has already committed, and
// a failed publish is logged but never undoes or fails that request.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys on the events exchange.
const (
	RouteOrderPlaced     = "order.placed"
	RouteContactReceived = "contact.received"
)

// OrderPlacedEvent is published after an order commits.  It carries enough
// to drive notifications and analytics without querying the database.
type OrderPlacedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	Email      string            `json:"email"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Items      []OrderPlacedLine `json:"items"`
	PlacedAt   time.Time         `json:"placed_at"`
}

type OrderPlacedLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// ContactReceivedEvent is published when a contact message is stored.
type ContactReceivedEvent struct {
	MessageID  uuid.UUID `json:"message_id"`
	Email      string    `json:"email"`
	ReceivedAt time.Time `json:"received_at"`
}
