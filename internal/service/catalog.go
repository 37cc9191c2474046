package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// ProductInput carries every mutable product field.  Update replaces all of
// them.
type ProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

// CatalogService is CRUD over products.  Authorization for writes is
// enforced by the router.
type CatalogService struct {
	products ProductStore
	log      *zap.Logger
}

func NewCatalogService(products ProductStore, log *zap.Logger) *CatalogService {
	return &CatalogService{products: products, log: log}
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	p := &model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, internal(err)
	}
	return p, nil
}

func (s *CatalogService) List(ctx context.Context, skip, limit int) ([]model.Product, error) {
	skip, limit = clampPage(skip, limit)
	products, err := s.products.List(ctx, skip, limit)
	if err != nil {
		return nil, internal(err)
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newErr(ErrNotFound, "Product not found")
	}
	if err != nil {
		return nil, internal(err)
	}
	return p, nil
}

// Update replaces name, description, price and stock wholesale.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.Description, p.Price, p.Stock = in.Name, in.Description, in.Price.Round(2), in.Stock
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newErr(ErrNotFound, "Product not found")
		}
		return nil, internal(err)
	}
	return p, nil
}

// Delete hard deletes the product.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.products.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newErr(ErrNotFound, "Product not found")
	}
	if err != nil {
		return internal(err)
	}
	s.log.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}
