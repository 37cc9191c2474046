package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/service"
)

// ContactHandler serves /api/contact.
type ContactHandler struct {
	Contact *service.ContactService
}

func NewContactHandler(s *service.ContactService) *ContactHandler { return &ContactHandler{Contact: s} }

type contactReq struct {
	Email   string `json:"email" label:"Email" validate:"required,email_format"`
	Message string `json:"message" label:"Message" validate:"required,max=500"`
}

// Create is public.
func (h *ContactHandler) Create(c echo.Context) error {
	var req contactReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Contact.Create(ctx, strings.TrimSpace(req.Email), req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *ContactHandler) List(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.Contact.List(ctx, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ContactHandler) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Contact.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
