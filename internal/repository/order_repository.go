package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

// Load selects which relations of an order are fetched alongside it.
// Call sites name the set they need; nothing is loaded implicitly.
type Load uint8

const (
	WithItems    Load = 1 << iota // order items, each with its product
	WithShipping                  // shipping_info row
	WithPayment                   // payment_info row
)

// Named eager-load sets.
const (
	LoadNone    Load = 0
	LoadSummary      = WithItems | WithShipping
	LoadDetail       = WithItems | WithShipping | WithPayment
)

const orderColumns = "o.id, o.user_id, o.status, o.total_price, o.created_at"

// OrderRepo persists the order aggregate: orders, order_items,
// shipping_info and payment_info.
type OrderRepo struct{ DB *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{DB: db} }

// CreateTx inserts the order row.  ID and CreatedAt are assigned when zero.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, status, total_price, created_at) VALUES (?,?,?,?,?)",
		o.ID, o.UserID, o.Status, o.TotalPrice, o.CreatedAt)
	return err
}

// CreateShippingTx inserts the shipping row of an order.
func (r *OrderRepo) CreateShippingTx(ctx context.Context, tx *sqlx.Tx, s *model.ShippingInfo) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO shipping_info
		 (id, order_id, first_name, last_name, email, address, unit, city, province, zip_code, country)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.OrderID, s.FirstName, s.LastName, s.Email, s.Address, s.Unit,
		s.City, s.Province, s.ZipCode, s.Country)
	return err
}

// CreatePaymentTx inserts the payment row.  CardNumber and CVV must already
// be sealed.
func (r *OrderRepo) CreatePaymentTx(ctx context.Context, tx *sqlx.Tx, p *model.PaymentInfo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_info (id, order_id, card_number, card_holder, expiration_date, cvv)
		 VALUES (?,?,?,?,?,?)`,
		p.ID, p.OrderID, p.CardNumber, p.CardHolder, p.ExpirationDate, p.CVV)
	return err
}

// CreateItemTx inserts one cart line and stores the generated id on it.
func (r *OrderRepo) CreateItemTx(ctx context.Context, tx *sqlx.Tx, it *model.OrderItem) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO order_items (order_id, product_id, quantity) VALUES (?,?,?)",
		it.OrderID, it.ProductID, it.Quantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// GetByID returns one order with the requested relations.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID, load Load) (*model.Order, error) {
	return getOrder(ctx, r.DB, id, load)
}

// GetByIDTx is GetByID inside the caller's transaction, so rows written
// earlier in the same transaction are visible.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, load Load) (*model.Order, error) {
	return getOrder(ctx, tx, id, load)
}

func getOrder(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, load Load) (*model.Order, error) {
	var o model.Order
	if err := sqlx.GetContext(ctx, q, &o,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id=? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	orders := []model.Order{o}
	if err := loadRelations(ctx, q, orders, load); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns one page of orders, newest first.
func (r *OrderRepo) List(ctx context.Context, skip, limit int, load Load) ([]model.Order, error) {
	return selectOrders(ctx, r.DB, load,
		"SELECT "+orderColumns+" FROM orders o ORDER BY o.created_at DESC, o.id LIMIT ? OFFSET ?",
		limit, skip)
}

// ListByUser returns every order owned by userID, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, load Load) ([]model.Order, error) {
	return selectOrders(ctx, r.DB, load,
		"SELECT "+orderColumns+" FROM orders o WHERE o.user_id=? ORDER BY o.created_at DESC, o.id",
		userID)
}

// ListByProduct returns the distinct orders that contain productID.
func (r *OrderRepo) ListByProduct(ctx context.Context, productID uuid.UUID, load Load) ([]model.Order, error) {
	return selectOrders(ctx, r.DB, load,
		"SELECT DISTINCT "+orderColumns+" FROM orders o JOIN order_items oi ON oi.order_id = o.id "+
			"WHERE oi.product_id=? ORDER BY o.created_at DESC, o.id",
		productID)
}

func selectOrders(ctx context.Context, q sqlx.ExtContext, load Load, query string, args ...any) ([]model.Order, error) {
	orders := []model.Order{}
	if err := sqlx.SelectContext(ctx, q, &orders, query, args...); err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, q, orders, load); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusTx sets the status column.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OrderStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx removes an order together with its items, shipping and payment
// rows.  Stock is not touched.
func (r *OrderRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	for _, stmt := range []string{
		"DELETE FROM order_items WHERE order_id=?",
		"DELETE FROM shipping_info WHERE order_id=?",
		"DELETE FROM payment_info WHERE order_id=?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// loadRelations fills the relations named by load for every order with one
// query per relation.
func loadRelations(ctx context.Context, q sqlx.ExtContext, orders []model.Order, load Load) error {
	if len(orders) == 0 || load == LoadNone {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID.String()
		index[orders[i].ID] = i
	}

	if load&WithItems != 0 {
		var items []model.OrderItem
		if err := selectIn(ctx, q, &items,
			"SELECT id, order_id, product_id, quantity FROM order_items WHERE order_id IN (?) ORDER BY id", ids); err != nil {
			return err
		}
		if err := attachProducts(ctx, q, items); err != nil {
			return err
		}
		for i := range orders {
			orders[i].Items = []model.OrderItem{}
		}
		for _, it := range items {
			o := &orders[index[it.OrderID]]
			o.Items = append(o.Items, it)
		}
	}

	if load&WithShipping != 0 {
		var rows []model.ShippingInfo
		if err := selectIn(ctx, q, &rows,
			`SELECT id, order_id, first_name, last_name, email, address, unit, city, province, zip_code, country
			 FROM shipping_info WHERE order_id IN (?)`, ids); err != nil {
			return err
		}
		for i := range rows {
			orders[index[rows[i].OrderID]].Shipping = &rows[i]
		}
	}

	if load&WithPayment != 0 {
		var rows []model.PaymentInfo
		if err := selectIn(ctx, q, &rows,
			`SELECT id, order_id, card_number, card_holder, expiration_date, cvv
			 FROM payment_info WHERE order_id IN (?)`, ids); err != nil {
			return err
		}
		for i := range rows {
			orders[index[rows[i].OrderID]].Payment = &rows[i]
		}
	}
	return nil
}

// attachProducts sets Product on every item whose product still exists.
func attachProducts(ctx context.Context, q sqlx.ExtContext, items []model.OrderItem) error {
	seen := map[uuid.UUID]bool{}
	var ids []string
	for _, it := range items {
		if it.ProductID.Valid && !seen[it.ProductID.UUID] {
			seen[it.ProductID.UUID] = true
			ids = append(ids, it.ProductID.UUID.String())
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var products []model.Product
	if err := selectIn(ctx, q, &products,
		"SELECT "+productColumns+" FROM products WHERE id IN (?)", ids); err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		if items[i].ProductID.Valid {
			items[i].Product = byID[items[i].ProductID.UUID]
		}
	}
	return nil
}

func selectIn(ctx context.Context, q sqlx.ExtContext, dest any, query string, ids []string) error {
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}
