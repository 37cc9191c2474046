package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" label:"Email" validate:"required,email_format"`
	Password string `json:"password" label:"Password" validate:"required,min=12,max=64,has_lower,has_upper,has_digit,has_symbol"`
}

// loginReq accepts a JSON body or an OAuth2 style form where the email is
// sent as "username".
type loginReq struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type changePasswordReq struct {
	Current string `json:"current" label:"Current password" validate:"required"`
	New     string `json:"new" label:"Password" validate:"required,min=12,max=64,has_lower,has_upper,has_digit,has_symbol"`
}

type userResp struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IsAdmin   bool       `json:"is_admin"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toUserResp(u *model.User) userResp {
	return userResp{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IsAdmin:   u.IsAdmin(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Register creates a USER account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Auth.Register(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login issues an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badRequest("invalid body"))
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}
	if email == "" || req.Password == "" {
		return writeError(c, badRequest("Email and password are required"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tok, err := h.Auth.Login(ctx, email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}

// Refresh rotates a token passed as refresh_token in the body or query.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req) // an empty or non-JSON body falls back to the query string
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		raw = strings.TrimSpace(c.QueryParam("refresh_token"))
	}
	if raw == "" {
		return writeError(c, badRequest("refresh_token is required"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tok, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}

// Logout revokes the bearer token of the request.  It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	h.Auth.Logout(ctx, middleware.BearerToken(c))
	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out"})
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.ChangePassword(ctx, middleware.CurrentUser(c), req.Current, req.New); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}
