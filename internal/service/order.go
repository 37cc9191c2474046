package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/payment"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// CartLine is one requested product and quantity.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type ShippingInput struct {
	FirstName string
	LastName  string
	Email     string
	Address   string
	Unit      *string
	City      string
	Province  string
	ZipCode   string
	Country   string
}

type PaymentInput struct {
	CardNumber string
	ExpiryDate string
	CVV        string
}

// PlaceOrderInput is a validated checkout request.  UserID, when set, must
// name the caller.
type PlaceOrderInput struct {
	UserID   uuid.NullUUID
	Items    []CartLine
	Shipping ShippingInput
	Payment  PaymentInput
}

const defaultCountry = "CAN"

// OrderService places orders and manages them afterwards.  Every write is
// one transaction; reads of the order graph use named eager-load sets.
type OrderService struct {
	db       *sqlx.DB
	products *repository.ProductRepo
	orders   *repository.OrderRepo
	sealer   *payment.Sealer
	pub      queue.Publisher
	log      *zap.Logger
}

func NewOrderService(db *sqlx.DB, products *repository.ProductRepo, orders *repository.OrderRepo,
	sealer *payment.Sealer, pub queue.Publisher, log *zap.Logger) *OrderService {
	return &OrderService{db: db, products: products, orders: orders, sealer: sealer, pub: pub, log: log}
}

// PlaceOrder validates the cart against live stock, computes the total and
// persists the order, shipping, payment and items while decrementing stock.
// Either all of it commits or none of it does.
//
// Lines are checked in the order given.  For each line the product must
// exist, the quantity must be at least 1 and not exceed stock, and the
// price must be positive.  The stock decrement is conditional, so an order
// that loses a race for the last units fails with ErrInsufficientStock.
func (s *OrderService) PlaceOrder(ctx context.Context, caller *model.User, in PlaceOrderInput) (*model.Order, error) {
	if in.UserID.Valid && in.UserID.UUID != caller.ID {
		return nil, newErr(ErrForbidden, "Cannot place an order for another user")
	}
	if len(in.Items) == 0 {
		return nil, newErr(ErrBadRequest, "Order must contain at least one item")
	}

	var placed *model.Order
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		total := decimal.Zero
		for _, line := range in.Items {
			p, err := s.products.GetTx(ctx, tx, line.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return newErr(ErrNotFound, "Product with id %s not found", line.ProductID)
			}
			if err != nil {
				return fmt.Errorf("load product %s: %w", line.ProductID, err)
			}
			if line.Quantity < 1 {
				return detail(ErrInvalidQuantity,
					"Invalid quantity for product %s. Quantity must be at least 1.", p.Name)
			}
			if p.Stock < line.Quantity {
				return detail(ErrInsufficientStock,
					"Not enough stock for product %s. Available: %d, Requested: %d", p.Name, p.Stock, line.Quantity)
			}
			if !p.Price.IsPositive() {
				return detail(ErrInvalidPrice,
					"Invalid price for product %s. Price must be greater than 0.", p.Name)
			}
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		o := &model.Order{
			UserID:     uuid.NullUUID{UUID: caller.ID, Valid: true},
			Status:     model.OrderPlaced,
			TotalPrice: total.Round(2),
		}
		if err := s.orders.CreateTx(ctx, tx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		sh := in.Shipping
		if sh.Country == "" {
			sh.Country = defaultCountry
		}
		if err := s.orders.CreateShippingTx(ctx, tx, &model.ShippingInfo{
			OrderID:   o.ID,
			FirstName: sh.FirstName,
			LastName:  sh.LastName,
			Email:     sh.Email,
			Address:   sh.Address,
			Unit:      sh.Unit,
			City:      sh.City,
			Province:  sh.Province,
			ZipCode:   sh.ZipCode,
			Country:   sh.Country,
		}); err != nil {
			return fmt.Errorf("insert shipping: %w", err)
		}

		pay, err := s.sealPayment(o.ID, sh, in.Payment)
		if err != nil {
			return err
		}
		if err := s.orders.CreatePaymentTx(ctx, tx, pay); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		for _, line := range in.Items {
			item := &model.OrderItem{
				OrderID:   o.ID,
				ProductID: uuid.NullUUID{UUID: line.ProductID, Valid: true},
				Quantity:  line.Quantity,
			}
			if err := s.orders.CreateItemTx(ctx, tx, item); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			err := s.products.DecrementStockTx(ctx, tx, line.ProductID, line.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return detail(ErrInsufficientStock,
					"Not enough stock for product %s. Requested: %d", line.ProductID, line.Quantity)
			}
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		placed, err = s.orders.GetByIDTx(ctx, tx, o.ID, repository.LoadDetail)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("place order", err)
	}

	s.present(placed)
	s.log.Info("order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("user_id", caller.ID.String()),
		zap.String("total", placed.TotalPrice.StringFixed(2)))
	s.publishPlaced(ctx, caller, placed)
	return placed, nil
}

func (s *OrderService) sealPayment(orderID uuid.UUID, sh ShippingInput, in PaymentInput) (*model.PaymentInfo, error) {
	card, err := s.sealer.Seal(strings.ReplaceAll(in.CardNumber, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("seal card: %w", err)
	}
	cvv, err := s.sealer.Seal(in.CVV)
	if err != nil {
		return nil, fmt.Errorf("seal cvv: %w", err)
	}
	return &model.PaymentInfo{
		OrderID:        orderID,
		CardNumber:     card,
		CardHolder:     sh.FirstName + " " + sh.LastName,
		ExpirationDate: in.ExpiryDate,
		CVV:            cvv,
	}, nil
}

// present fills the masked card number for responses.
func (s *OrderService) present(o *model.Order) {
	if o == nil || o.Payment == nil {
		return
	}
	card, err := s.sealer.Open(o.Payment.CardNumber)
	if err != nil {
		s.log.Warn("cannot open sealed card number", zap.String("order_id", o.ID.String()), zap.Error(err))
		o.Payment.MaskedCard = "****"
		return
	}
	o.Payment.MaskedCard = payment.Mask(card)
}

func (s *OrderService) publishPlaced(ctx context.Context, caller *model.User, o *model.Order) {
	evt := queue.OrderPlacedEvent{
		OrderID:    o.ID,
		UserID:     caller.ID,
		Email:      caller.Email,
		TotalPrice: o.TotalPrice,
		PlacedAt:   o.CreatedAt,
	}
	for _, it := range o.Items {
		evt.Items = append(evt.Items, queue.OrderPlacedLine{ProductID: it.ProductID.UUID, Quantity: it.Quantity})
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(pctx, queue.RouteOrderPlaced, evt); err != nil {
		s.log.Warn("publish order.placed failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

// fail passes classified errors through and turns anything else into an
// internal error after logging the cause.
func (s *OrderService) fail(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	s.log.Error(op, zap.Error(err))
	return internal(err)
}

// List returns a page of orders with items and shipping.
func (s *OrderService) List(ctx context.Context, skip, limit int) ([]model.Order, error) {
	skip, limit = clampPage(skip, limit)
	orders, err := s.orders.List(ctx, skip, limit, repository.LoadSummary)
	if err != nil {
		return nil, s.fail("list orders", err)
	}
	return orders, nil
}

// Get returns one order with items, shipping and masked payment.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id, repository.LoadDetail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newErr(ErrNotFound, "Order not found")
	}
	if err != nil {
		return nil, s.fail("get order", err)
	}
	s.present(o)
	return o, nil
}

// ListForUser returns the orders of userID when caller is that user or an
// admin.
func (s *OrderService) ListForUser(ctx context.Context, caller *model.User, userID uuid.UUID) ([]model.Order, error) {
	if !caller.CanAccess(userID) {
		return nil, newErr(ErrForbidden, "Not authorized to access these orders")
	}
	orders, err := s.orders.ListByUser(ctx, userID, repository.LoadSummary)
	if err != nil {
		return nil, s.fail("list user orders", err)
	}
	return orders, nil
}

// ListForProduct returns the orders that contain productID.
func (s *OrderService) ListForProduct(ctx context.Context, productID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orders.ListByProduct(ctx, productID, repository.LoadSummary)
	if err != nil {
		return nil, s.fail("list product orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle.  Cancelling a placed
// order puts its items back into stock in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Order, error) {
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return nil, newErr(ErrBadRequest, "Invalid order status %q", status)
	}
	var updated *model.Order
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		o, err := s.orders.GetByIDTx(ctx, tx, id, repository.WithItems)
		if errors.Is(err, repository.ErrNotFound) {
			return newErr(ErrNotFound, "Order not found")
		}
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return detail(ErrInvalidTransition, "Cannot change order status from %s to %s", o.Status, next)
		}
		if err := s.orders.UpdateStatusTx(ctx, tx, id, next); err != nil {
			return err
		}
		if next == model.OrderCancelled {
			for _, it := range o.Items {
				if !it.ProductID.Valid {
					continue
				}
				if err := s.products.RestockTx(ctx, tx, it.ProductID.UUID, it.Quantity); err != nil {
					return fmt.Errorf("restock %s: %w", it.ProductID.UUID, err)
				}
			}
		}
		updated, err = s.orders.GetByIDTx(ctx, tx, id, repository.LoadDetail)
		return err
	})
	if err != nil {
		return nil, s.fail("update order status", err)
	}
	s.present(updated)
	s.log.Info("order status changed", zap.String("order_id", id.String()), zap.String("status", string(next)))
	return updated, nil
}

// Delete removes the order and its dependent rows.  Stock is not restored.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := s.orders.DeleteTx(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return newErr(ErrNotFound, "Order not found")
		}
		return err
	})
	if err != nil {
		return s.fail("delete order", err)
	}
	s.log.Info("order deleted", zap.String("order_id", id.String()))
	return nil
}
