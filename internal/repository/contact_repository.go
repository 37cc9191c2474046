package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

// ContactRepo is append-only: messages are created and read, never changed.
type ContactRepo struct{ DB *sqlx.DB }

func NewContactRepo(db *sqlx.DB) *ContactRepo { return &ContactRepo{DB: db} }

func (r *ContactRepo) Create(ctx context.Context, m *model.ContactMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO contact_messages (id, email, message, created_at) VALUES (?,?,?,?)",
		m.ID, m.Email, m.Message, m.CreatedAt)
	return err
}

// List returns the newest messages first.
func (r *ContactRepo) List(ctx context.Context, skip, limit int) ([]model.ContactMessage, error) {
	msgs := []model.ContactMessage{}
	err := r.DB.SelectContext(ctx, &msgs,
		"SELECT id, email, message, created_at FROM contact_messages ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, skip)
	return msgs, err
}

func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ContactMessage, error) {
	var m model.ContactMessage
	if err := r.DB.GetContext(ctx, &m,
		"SELECT id, email, message, created_at FROM contact_messages WHERE id=? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}
