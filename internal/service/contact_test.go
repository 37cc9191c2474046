package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/mocks"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

func TestContactService_Create(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*mocks.MockContactStore, *mocks.MockPublisher)
		expectErr  bool
	}{
		{
			name: "stored and published",
			setupMocks: func(store *mocks.MockContactStore, pub *mocks.MockPublisher) {
				store.On("Create", mock.Anything, mock.AnythingOfType("*model.ContactMessage")).Return(nil).Run(func(args mock.Arguments) {
					m := args.Get(1).(*model.ContactMessage)
					m.ID = uuid.New()
					m.CreatedAt = time.Now()
				})
				pub.On("Publish", mock.Anything, queue.RouteContactReceived, mock.AnythingOfType("queue.ContactReceivedEvent")).Return(nil)
			},
		},
		{
			name: "publish failure is not fatal",
			setupMocks: func(store *mocks.MockContactStore, pub *mocks.MockPublisher) {
				store.On("Create", mock.Anything, mock.Anything).Return(nil)
				pub.On("Publish", mock.Anything, queue.RouteContactReceived, mock.Anything).Return(errors.New("broker down"))
			},
		},
		{
			name: "store failure",
			setupMocks: func(store *mocks.MockContactStore, pub *mocks.MockPublisher) {
				store.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockContactStore)
			pub := new(mocks.MockPublisher)
			tt.setupMocks(store, pub)

			m, err := NewContactService(store, pub, zap.NewNop()).Create(context.Background(), "a@example.com", "hello")

			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInternal)
				assert.Nil(t, m)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "hello", m.Message)
			}
			store.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestContactService_Get(t *testing.T) {
	id := uuid.New()
	store := new(mocks.MockContactStore)
	store.On("GetByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

	_, err := NewContactService(store, queue.NopPublisher{}, zap.NewNop()).Get(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Contact message not found")
}
