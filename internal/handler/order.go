package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/service"
)

// OrderHandler serves /api/orders.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(s *service.OrderService) *OrderHandler { return &OrderHandler{Orders: s} }

// ----- DTOs -----
// Field names follow the checkout form of the web client.

type shippingReq struct {
	FirstName string  `json:"firstName" label:"First name" validate:"required,person_name"`
	LastName  string  `json:"lastName" label:"Last name" validate:"required,person_name"`
	Email     string  `json:"email" label:"Email" validate:"required,email_format"`
	Address   string  `json:"address" label:"Address" validate:"required,address"`
	City      string  `json:"city" label:"City" validate:"required,person_name"`
	Province  string  `json:"province" label:"Province" validate:"required,person_name"`
	ZipCode   string  `json:"zip_code" label:"ZIP code" validate:"required,postal_code"`
	Unit      *string `json:"unit"`
	Country   string  `json:"country"`
}

type paymentReq struct {
	CardNumber string `json:"cardNumber" label:"Card number" validate:"required,card_number"`
	ExpiryDate string `json:"expiryDate" label:"Expiry date" validate:"required,card_expiry,not_expired"`
	CVV        string `json:"cvv" label:"CVV" validate:"required,cvv"`
}

type cartLineReq struct {
	ProductID uuid.UUID `json:"product_id" label:"Product id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// placeOrderReq is validated shipping first, then payment, then items.
type placeOrderReq struct {
	UserID   *uuid.UUID    `json:"user_id"`
	Shipping shippingReq   `json:"shippingDetails"`
	Payment  paymentReq    `json:"paymentDetails"`
	Items    []cartLineReq `json:"items" validate:"dive"`
}

type statusReq struct {
	Status string `json:"status" label:"Status" validate:"required"`
}

// PlaceOrder checks out the caller's cart.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	var req placeOrderReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := service.PlaceOrderInput{
		Shipping: service.ShippingInput{
			FirstName: req.Shipping.FirstName,
			LastName:  req.Shipping.LastName,
			Email:     req.Shipping.Email,
			Address:   req.Shipping.Address,
			Unit:      req.Shipping.Unit,
			City:      req.Shipping.City,
			Province:  req.Shipping.Province,
			ZipCode:   req.Shipping.ZipCode,
			Country:   req.Shipping.Country,
		},
		Payment: service.PaymentInput{
			CardNumber: req.Payment.CardNumber,
			ExpiryDate: req.Payment.ExpiryDate,
			CVV:        req.Payment.CVV,
		},
	}
	if req.UserID != nil {
		in.UserID = uuid.NullUUID{UUID: *req.UserID, Valid: true}
	}
	for _, l := range req.Items {
		in.Items = append(in.Items, service.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.PlaceOrder(ctx, middleware.CurrentUser(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) List(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.List(ctx, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) ListForUser(c echo.Context) error {
	id, err := paramUUID(c, "user_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.ListForUser(ctx, middleware.CurrentUser(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListForProduct(c echo.Context) error {
	id, err := paramUUID(c, "product_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.ListForProduct(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// UpdateStatus moves the order to the requested status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Delete(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
