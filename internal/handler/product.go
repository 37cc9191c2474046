package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/service"
)

// ProductHandler serves /api/products.
type ProductHandler struct {
	Catalog *service.CatalogService
}

func NewProductHandler(s *service.CatalogService) *ProductHandler { return &ProductHandler{Catalog: s} }

type productReq struct {
	Name        string          `json:"name" label:"Name" validate:"required,max=100"`
	Description *string         `json:"description" label:"Description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price" label:"Price" validate:"gt=0"`
	Stock       *int            `json:"stock" label:"Stock" validate:"required,gte=0"`
}

func (r productReq) input() service.ProductInput {
	return service.ProductInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Price:       r.Price,
		Stock:       *r.Stock,
	}
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Catalog.Create(ctx, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) List(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	products, err := h.Catalog.List(ctx, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update replaces every mutable field of the product.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req productReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Catalog.Update(ctx, id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
