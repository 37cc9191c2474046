package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "PLACED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the allowed next states for each status.
// DELIVERED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:  {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

// ParseOrderStatus validates a client supplied status name.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(s))
	switch st {
	case OrderPlaced, OrderShipped, OrderDelivered, OrderCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, n := range orderTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Order is the aggregate persisted by order placement.  Items, Shipping
// and Payment are populated only when the caller asked for them through
// an eager-load set; otherwise they stay nil.
//
// Fields:
//
//	ID         – primary key (UUID).
//	UserID     – owning user; NULL once the user has been deleted.
//	Status     – lifecycle state (PLACED, SHIPPED, DELIVERED, CANCELLED).
//	TotalPrice – Σ unit price × quantity, fixed at placement time.
//	CreatedAt  – UTC creation timestamp.
type Order struct {
	ID         uuid.UUID       `db:"id" json:"id"`                   // orders.id
	UserID     uuid.NullUUID   `db:"user_id" json:"user_id"`         // orders.user_id (nullable)
	Status     OrderStatus     `db:"status" json:"status"`           // orders.status
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"` // orders.total_price
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`   // orders.created_at

	Items    []OrderItem   `db:"-" json:"items,omitempty"`
	Shipping *ShippingInfo `db:"-" json:"shipping_info,omitempty"`
	Payment  *PaymentInfo  `db:"-" json:"payment_info,omitempty"`
}

// OrderItem is a single cart line of an order.  No unit price is copied;
// the order total is the only price record.  ProductID becomes NULL when
// the product is deleted from the catalog.
type OrderItem struct {
	ID        uint64        `db:"id" json:"id"`                 // order_items.id
	OrderID   uuid.UUID     `db:"order_id" json:"order_id"`     // order_items.order_id
	ProductID uuid.NullUUID `db:"product_id" json:"product_id"` // order_items.product_id (nullable)
	Quantity  int           `db:"quantity" json:"quantity"`     // order_items.quantity

	Product *Product `db:"-" json:"product,omitempty"`
}

// ShippingInfo is the one-to-one delivery address of an order.
type ShippingInfo struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"-"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Address   string    `db:"address" json:"address"`
	Unit      *string   `db:"unit" json:"unit"`
	City      string    `db:"city" json:"city"`
	Province  string    `db:"province" json:"province"`
	ZipCode   string    `db:"zip_code" json:"zip_code"`
	Country   string    `db:"country" json:"country"`
}

// PaymentInfo is the one-to-one card record of an order.  CardNumber and
// CVV hold sealed values (see package payment) while at rest; they are
// never serialized.  MaskedCard is filled for responses.
type PaymentInfo struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"-"`
	CardNumber     string    `db:"card_number" json:"-"`
	CardHolder     string    `db:"card_holder" json:"card_holder"`
	ExpirationDate string    `db:"expiration_date" json:"expiration_date"`
	CVV            string    `db:"cvv" json:"-"`

	MaskedCard string `db:"-" json:"card_number"`
}
