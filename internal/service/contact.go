package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// ContactService stores messages from the public contact form.
type ContactService struct {
	messages ContactStore
	pub      queue.Publisher
	log      *zap.Logger
}

func NewContactService(messages ContactStore, pub queue.Publisher, log *zap.Logger) *ContactService {
	return &ContactService{messages: messages, pub: pub, log: log}
}

// Create stores the message and announces it on the events exchange.
func (s *ContactService) Create(ctx context.Context, email, message string) (*model.ContactMessage, error) {
	m := &model.ContactMessage{Email: email, Message: message}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, internal(err)
	}
	evt := queue.ContactReceivedEvent{MessageID: m.ID, Email: m.Email, ReceivedAt: m.CreatedAt}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(pctx, queue.RouteContactReceived, evt); err != nil {
		s.log.Warn("publish contact.received failed", zap.String("message_id", m.ID.String()), zap.Error(err))
	}
	return m, nil
}

func (s *ContactService) List(ctx context.Context, skip, limit int) ([]model.ContactMessage, error) {
	skip, limit = clampPage(skip, limit)
	msgs, err := s.messages.List(ctx, skip, limit)
	if err != nil {
		return nil, internal(err)
	}
	return msgs, nil
}

func (s *ContactService) Get(ctx context.Context, id uuid.UUID) (*model.ContactMessage, error) {
	m, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newErr(ErrNotFound, "Contact message not found")
	}
	if err != nil {
		return nil, internal(err)
	}
	return m, nil
}
