package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const productColumns = "id, name, description, price, stock, created_at, updated_at"

// ProductRepo provides CRUD over the catalog plus the stock counter updates
// used by order placement and cancellation.
type ProductRepo struct{ DB *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{DB: db} }

// Create inserts p, assigning an id and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
	return err
}

// List returns one page of products in creation order.
func (r *ProductRepo) List(ctx context.Context, skip, limit int) ([]model.Product, error) {
	products := []model.Product{}
	err := r.DB.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products ORDER BY created_at, id LIMIT ? OFFSET ?", limit, skip)
	return products, err
}

func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return getProduct(ctx, r.DB, id)
}

// GetTx reads a product inside the caller's transaction.
func (r *ProductRepo) GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Product, error) {
	return getProduct(ctx, tx, id)
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := sqlx.GetContext(ctx, q, &p,
		"SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Update replaces name, description, price and stock.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, stock=?, updated_at=? WHERE id=?",
		p.Name, p.Description, p.Price, p.Stock, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard deletes the product.  Order items that referenced it keep
// their rows with product_id set to NULL by the foreign key.
func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStockTx takes qty units out of stock only if that many are
// still available.  When a concurrent order got there first no row
// matches and ErrInsufficientStock is returned; the caller must roll back.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ?, updated_at=? WHERE id=? AND stock >= ?",
		qty, time.Now().UTC(), id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestockTx returns qty units to stock.  A product that has been deleted
// meanwhile is silently skipped.
func (r *ProductRepo) RestockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + ?, updated_at=? WHERE id=?",
		qty, time.Now().UTC(), id)
	return err
}
