package service

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/mocks"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/payment"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

var (
	productCols  = []string{"id", "name", "description", "price", "stock", "created_at", "updated_at"}
	orderCols    = []string{"id", "user_id", "status", "total_price", "created_at"}
	itemCols     = []string{"id", "order_id", "product_id", "quantity"}
	shippingCols = []string{"id", "order_id", "first_name", "last_name", "email", "address", "unit", "city", "province", "zip_code", "country"}
	paymentCols  = []string{"id", "order_id", "card_number", "card_holder", "expiration_date", "cvv"}
)

func q(s string) string { return regexp.QuoteMeta(s) }

type orderFixture struct {
	db     sqlmock.Sqlmock
	sealer *payment.Sealer
	pub    *mocks.MockPublisher
	svc    *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	raw, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "mysql")
	sealer, err := payment.NewEphemeralSealer()
	require.NoError(t, err)
	pub := new(mocks.MockPublisher)
	svc := NewOrderService(db, repository.NewProductRepo(db), repository.NewOrderRepo(db), sealer, pub, zap.NewNop())
	return &orderFixture{db: m, sealer: sealer, pub: pub, svc: svc}
}

func (f *orderFixture) expectProduct(id uuid.UUID, name string, price string, stock int) {
	now := time.Now()
	f.db.ExpectQuery(q("FROM products WHERE id=?")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(id.String(), name, nil, price, stock, now, now))
}

// expectOrderGraph expects the queries that load an order with the
// relations in load.
func (f *orderFixture) expectOrderGraph(t *testing.T, o model.Order, items []model.OrderItem, product *model.Product, load repository.Load) {
	t.Helper()
	userID := driver.Value(nil)
	if o.UserID.Valid {
		userID = o.UserID.UUID.String()
	}
	f.db.ExpectQuery(q("FROM orders o WHERE o.id=?")).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(o.ID.String(), userID, string(o.Status), o.TotalPrice.String(), o.CreatedAt))

	if load&repository.WithItems != 0 {
		rows := sqlmock.NewRows(itemCols)
		for _, it := range items {
			rows.AddRow(int64(it.ID), o.ID.String(), it.ProductID.UUID.String(), it.Quantity)
		}
		f.db.ExpectQuery(q("FROM order_items WHERE order_id IN (?)")).WillReturnRows(rows)
		if len(items) > 0 {
			f.db.ExpectQuery(q("FROM products WHERE id IN (?)")).
				WillReturnRows(sqlmock.NewRows(productCols).
					AddRow(product.ID.String(), product.Name, nil, product.Price.String(), product.Stock, o.CreatedAt, o.CreatedAt))
		}
	}
	if load&repository.WithShipping != 0 {
		f.db.ExpectQuery(q("FROM shipping_info WHERE order_id IN (?)")).
			WillReturnRows(sqlmock.NewRows(shippingCols).
				AddRow(uuid.NewString(), o.ID.String(), "Jane", "Doe", "jane@example.com", "1 Main Street", nil, "Ottawa", "Ontario", "K1A 0B1", "CAN"))
	}
	if load&repository.WithPayment != 0 {
		card, err := f.sealer.Seal("4111111111111111")
		require.NoError(t, err)
		cvv, err := f.sealer.Seal("123")
		require.NoError(t, err)
		f.db.ExpectQuery(q("FROM payment_info WHERE order_id IN (?)")).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(uuid.NewString(), o.ID.String(), card, "Jane Doe", "12/99", cvv))
	}
}

func checkoutInput(productID uuid.UUID, qty int) PlaceOrderInput {
	return PlaceOrderInput{
		Items: []CartLine{{ProductID: productID, Quantity: qty}},
		Shipping: ShippingInput{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
			Address: "1 Main Street", City: "Ottawa", Province: "Ontario", ZipCode: "K1A 0B1",
		},
		Payment: PaymentInput{CardNumber: "4111 1111 1111 1111", ExpiryDate: "12/99", CVV: "123"},
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	caller := &model.User{ID: uuid.New(), Email: "jane@example.com", Role: model.RoleUser, IsActive: true}
	productID := uuid.New()
	product := &model.Product{ID: productID, Name: "Double Scull", Price: decimal.RequireFromString("12000.00"), Stock: 2}

	tests := []struct {
		name          string
		in            func() PlaceOrderInput
		setupMocks    func(*testing.T, *orderFixture)
		expectedErr   error
		expectedError string
		check         func(*testing.T, *model.Order)
	}{
		{
			name: "places order and decrements stock",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 1) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Double Scull", "12000.00", 3)
				f.db.ExpectExec(q("INSERT INTO orders")).
					WithArgs(sqlmock.AnyArg(), caller.ID.String(), "PLACED", "12000", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO shipping_info")).
					WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Jane", "Doe", "jane@example.com", "1 Main Street",
						nil, "Ottawa", "Ontario", "K1A 0B1", "CAN").
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO payment_info")).
					WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sealedArg{}, "Jane Doe", "12/99", sealedArg{}).
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO order_items")).
					WithArgs(sqlmock.AnyArg(), productID.String(), 1).
					WillReturnResult(sqlmock.NewResult(1, 1))
				f.db.ExpectExec(q("UPDATE products SET stock = stock - ?")).
					WithArgs(1, sqlmock.AnyArg(), productID.String(), 1).
					WillReturnResult(sqlmock.NewResult(0, 1))
				o := model.Order{
					ID: uuid.New(), UserID: uuid.NullUUID{UUID: caller.ID, Valid: true},
					Status: model.OrderPlaced, TotalPrice: product.Price, CreatedAt: time.Now(),
				}
				items := []model.OrderItem{{ID: 1, ProductID: uuid.NullUUID{UUID: productID, Valid: true}, Quantity: 1}}
				f.expectOrderGraph(t, o, items, product, repository.LoadDetail)
				f.db.ExpectCommit()
				f.pub.On("Publish", mock.Anything, queue.RouteOrderPlaced, mock.AnythingOfType("queue.OrderPlacedEvent")).Return(nil)
			},
			check: func(t *testing.T, o *model.Order) {
				assert.Equal(t, model.OrderPlaced, o.Status)
				assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("12000")))
				require.Len(t, o.Items, 1)
				assert.Equal(t, 1, o.Items[0].Quantity)
				require.NotNil(t, o.Items[0].Product)
				assert.Equal(t, 2, o.Items[0].Product.Stock)
				require.NotNil(t, o.Shipping)
				assert.Equal(t, "CAN", o.Shipping.Country)
				require.NotNil(t, o.Payment)
				assert.Equal(t, "************1111", o.Payment.MaskedCard)
			},
		},
		{
			name: "user id of someone else",
			in: func() PlaceOrderInput {
				in := checkoutInput(productID, 1)
				in.UserID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
				return in
			},
			setupMocks:  func(*testing.T, *orderFixture) {},
			expectedErr: ErrForbidden,
		},
		{
			name: "empty cart",
			in: func() PlaceOrderInput {
				in := checkoutInput(productID, 1)
				in.Items = nil
				return in
			},
			setupMocks:    func(*testing.T, *orderFixture) {},
			expectedErr:   ErrBadRequest,
			expectedError: "Order must contain at least one item",
		},
		{
			name: "unknown product",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 1) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.db.ExpectQuery(q("FROM products WHERE id=?")).WillReturnRows(sqlmock.NewRows(productCols))
				f.db.ExpectRollback()
			},
			expectedErr:   ErrNotFound,
			expectedError: fmt.Sprintf("Product with id %s not found", productID),
		},
		{
			name: "zero quantity",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 0) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Double Scull", "12000.00", 3)
				f.db.ExpectRollback()
			},
			expectedErr:   ErrInvalidQuantity,
			expectedError: "Invalid quantity for product Double Scull. Quantity must be at least 1.",
		},
		{
			name: "more than in stock",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 5) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Double Scull", "12000.00", 3)
				f.db.ExpectRollback()
			},
			expectedErr:   ErrInsufficientStock,
			expectedError: "Not enough stock for product Double Scull. Available: 3, Requested: 5",
		},
		{
			name: "free product",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 1) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Sticker", "0.00", 3)
				f.db.ExpectRollback()
			},
			expectedErr: ErrInvalidPrice,
		},
		{
			name: "loses the race for the last unit",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 1) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Double Scull", "12000.00", 1)
				f.db.ExpectExec(q("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO shipping_info")).WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO payment_info")).WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
				f.db.ExpectExec(q("UPDATE products SET stock = stock - ?")).WillReturnResult(sqlmock.NewResult(0, 0))
				f.db.ExpectRollback()
			},
			expectedErr:   ErrInsufficientStock,
			expectedError: fmt.Sprintf("Not enough stock for product %s. Requested: 1", productID),
		},
		{
			name: "driver failure is internal",
			in:   func() PlaceOrderInput { return checkoutInput(productID, 1) },
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectProduct(productID, "Double Scull", "12000.00", 3)
				f.db.ExpectExec(q("INSERT INTO orders")).WillReturnError(fmt.Errorf("lock wait timeout"))
				f.db.ExpectRollback()
			},
			expectedErr:   ErrInternal,
			expectedError: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			tt.setupMocks(t, f)

			o, err := f.svc.PlaceOrder(context.Background(), caller, tt.in())

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				if tt.expectedError != "" {
					assert.EqualError(t, err, tt.expectedError)
				}
				assert.Nil(t, o)
				f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				tt.check(t, o)
			}
			assert.NoError(t, f.db.ExpectationsWereMet())
			f.pub.AssertExpectations(t)
		})
	}
}

// sealedArg matches a value produced by payment.Sealer.Seal.
type sealedArg struct{}

func (sealedArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && len(s) > 3 && s[:3] == "v1:"
}

func TestOrderService_UpdateStatus(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()
	product := &model.Product{ID: productID, Name: "Rowing Hat", Price: decimal.RequireFromString("25.00"), Stock: 98}
	items := []model.OrderItem{{ID: 7, ProductID: uuid.NullUUID{UUID: productID, Valid: true}, Quantity: 2}}
	at := func(st model.OrderStatus) model.Order {
		return model.Order{ID: orderID, Status: st, TotalPrice: decimal.RequireFromString("50.00"), CreatedAt: time.Now()}
	}

	tests := []struct {
		name          string
		status        string
		setupMocks    func(*testing.T, *orderFixture)
		expectedErr   error
		expectedError string
		expected      model.OrderStatus
	}{
		{
			name:   "cancel restocks items",
			status: "cancelled",
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectOrderGraph(t, at(model.OrderPlaced), items, product, repository.WithItems)
				f.db.ExpectExec(q("UPDATE orders SET status=?")).
					WithArgs("CANCELLED", orderID.String()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.db.ExpectExec(q("UPDATE products SET stock = stock + ?")).
					WithArgs(2, sqlmock.AnyArg(), productID.String()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.expectOrderGraph(t, at(model.OrderCancelled), items, product, repository.LoadDetail)
				f.db.ExpectCommit()
			},
			expected: model.OrderCancelled,
		},
		{
			name:   "ship does not touch stock",
			status: "SHIPPED",
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectOrderGraph(t, at(model.OrderPlaced), items, product, repository.WithItems)
				f.db.ExpectExec(q("UPDATE orders SET status=?")).
					WithArgs("SHIPPED", orderID.String()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				f.expectOrderGraph(t, at(model.OrderShipped), items, product, repository.LoadDetail)
				f.db.ExpectCommit()
			},
			expected: model.OrderShipped,
		},
		{
			name:   "delivered is terminal",
			status: "SHIPPED",
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.expectOrderGraph(t, at(model.OrderDelivered), nil, nil, repository.WithItems)
				f.db.ExpectRollback()
			},
			expectedErr:   ErrInvalidTransition,
			expectedError: "Cannot change order status from DELIVERED to SHIPPED",
		},
		{
			name:          "unknown status",
			status:        "LOST",
			setupMocks:    func(*testing.T, *orderFixture) {},
			expectedErr:   ErrBadRequest,
			expectedError: `Invalid order status "LOST"`,
		},
		{
			name:   "missing order",
			status: "SHIPPED",
			setupMocks: func(t *testing.T, f *orderFixture) {
				f.db.ExpectBegin()
				f.db.ExpectQuery(q("FROM orders o WHERE o.id=?")).WillReturnRows(sqlmock.NewRows(orderCols))
				f.db.ExpectRollback()
			},
			expectedErr:   ErrNotFound,
			expectedError: "Order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			tt.setupMocks(t, f)

			o, err := f.svc.UpdateStatus(context.Background(), orderID, tt.status)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.EqualError(t, err, tt.expectedError)
				assert.Nil(t, o)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, o.Status)
				require.NotNil(t, o.Payment)
				assert.Equal(t, "************1111", o.Payment.MaskedCard)
			}
			assert.NoError(t, f.db.ExpectationsWereMet())
		})
	}
}

func TestOrderService_Delete(t *testing.T) {
	orderID := uuid.New()

	t.Run("removes dependents first", func(t *testing.T) {
		f := newOrderFixture(t)
		f.db.ExpectBegin()
		f.db.ExpectExec(q("DELETE FROM order_items WHERE order_id=?")).WithArgs(orderID.String()).WillReturnResult(sqlmock.NewResult(0, 2))
		f.db.ExpectExec(q("DELETE FROM shipping_info WHERE order_id=?")).WillReturnResult(sqlmock.NewResult(0, 1))
		f.db.ExpectExec(q("DELETE FROM payment_info WHERE order_id=?")).WillReturnResult(sqlmock.NewResult(0, 1))
		f.db.ExpectExec(q("DELETE FROM orders WHERE id=?")).WillReturnResult(sqlmock.NewResult(0, 1))
		f.db.ExpectCommit()

		assert.NoError(t, f.svc.Delete(context.Background(), orderID))
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t)
		f.db.ExpectBegin()
		f.db.ExpectExec(q("DELETE FROM order_items")).WillReturnResult(sqlmock.NewResult(0, 0))
		f.db.ExpectExec(q("DELETE FROM shipping_info")).WillReturnResult(sqlmock.NewResult(0, 0))
		f.db.ExpectExec(q("DELETE FROM payment_info")).WillReturnResult(sqlmock.NewResult(0, 0))
		f.db.ExpectExec(q("DELETE FROM orders")).WillReturnResult(sqlmock.NewResult(0, 0))
		f.db.ExpectRollback()

		err := f.svc.Delete(context.Background(), orderID)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})
}

func TestOrderService_ListForUser(t *testing.T) {
	f := newOrderFixture(t)
	caller := &model.User{ID: uuid.New(), Role: model.RoleUser}

	_, err := f.svc.ListForUser(context.Background(), caller, uuid.New())

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, f.db.ExpectationsWereMet())
}
