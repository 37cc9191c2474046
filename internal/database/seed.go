package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/utils"
	"github.com/iliyamo/storefront-api/internal/validation"
)

// SeedAccount is a demo login created by Seed when its email is free.
type SeedAccount struct {
	Email    string
	Password string
	Role     model.Role
}

// DemoAccounts are the logins created by SEED_DEMO_DATA.  The passwords
// satisfy the registration policy so the accounts behave like real ones.
var DemoAccounts = []SeedAccount{
	{Email: "admin@example.com", Password: "AdminPass123!", Role: model.RoleAdmin},
	{Email: "user@example.com", Password: "StrongPass123!", Role: model.RoleUser},
}

type seedProduct struct {
	name, description string
	price             string
	stock             int
}

var demoProducts = []seedProduct{
	{"Double Scull", "Two-person racing shell", "12000.00", 3},
	{"Carbon Fiber Oars", "Lightweight sculling oars, pair", "400.00", 20},
	{"Rowing Hat", "Breathable cap with club logo", "25.00", 100},
}

// Seed inserts the demo accounts that do not exist yet and, when the
// catalog is empty, the demo products.  It is safe to run on every start.
// Accounts must pass the same email and password rules as registration.
func Seed(ctx context.Context, db *sqlx.DB, accounts []SeedAccount, bcryptCost int) error {
	v := validation.New()
	for _, a := range accounts {
		if err := v.Var(a.Email, validation.EmailTag, "Email"); err != nil {
			return fmt.Errorf("seed: %s: %w", a.Email, err)
		}
		if err := v.Var(a.Password, validation.PasswordTag, "Password"); err != nil {
			return fmt.Errorf("seed: %s: %w", a.Email, err)
		}
	}
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, a := range accounts {
			var n int
			if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE email=?", a.Email); err != nil {
				return fmt.Errorf("seed: count user: %w", err)
			}
			if n > 0 {
				continue
			}
			hash, err := utils.HashPassword(a.Password, bcryptCost)
			if err != nil {
				return fmt.Errorf("seed: hash: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO users (id, email, password_hash, role, is_active) VALUES (?,?,?,?,1)",
				uuid.New(), a.Email, hash, a.Role); err != nil {
				return fmt.Errorf("seed: insert user: %w", err)
			}
		}

		var products int
		if err := tx.GetContext(ctx, &products, "SELECT COUNT(*) FROM products"); err != nil {
			return fmt.Errorf("seed: count products: %w", err)
		}
		if products > 0 {
			return nil
		}
		for _, p := range demoProducts {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO products (id, name, description, price, stock) VALUES (?,?,?,?,?)",
				uuid.New(), p.name, p.description, decimal.RequireFromString(p.price), p.stock); err != nil {
				return fmt.Errorf("seed: insert product: %w", err)
			}
		}
		return nil
	})
}
