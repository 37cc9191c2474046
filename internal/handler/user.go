package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

// UserHandler serves /api/users.
type UserHandler struct {
	Accounts *service.AccountService
}

func NewUserHandler(a *service.AccountService) *UserHandler { return &UserHandler{Accounts: a} }

type updateUserReq struct {
	Email    *string `json:"email" label:"Email" validate:"omitnil,email_format"`
	Password *string `json:"password" label:"Password" validate:"omitnil,min=12,max=64,has_lower,has_upper,has_digit,has_symbol"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, toUserResp(middleware.CurrentUser(c)))
}

func (h *UserHandler) List(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Accounts.List(ctx, middleware.CurrentUser(c), skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userResp, 0, len(users))
	for i := range users {
		out = append(out, toUserResp(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Profile(c echo.Context) error {
	id, err := paramUUID(c, "user_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Get(ctx, middleware.CurrentUser(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Update applies a partial change to the addressed account.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := paramUUID(c, "user_id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := service.UserUpdate{Email: req.Email, Password: req.Password, IsActive: req.IsActive}
	if req.Email != nil {
		e := strings.TrimSpace(*req.Email)
		in.Email = &e
	}
	if req.Role != nil {
		r, ok := model.ParseRole(*req.Role)
		if !ok {
			return writeError(c, badRequest("Invalid role"))
		}
		in.Role = &r
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Update(ctx, middleware.CurrentUser(c), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := paramUUID(c, "user_id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Accounts.Delete(ctx, middleware.CurrentUser(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
