package listener

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ApplyPaymentStatus(ctx context.Context, ticketID string, status models.PaymentStatus) (*models.Ticket, error) {
	args := m.Called(ctx, ticketID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *mockService) LinkTicketsToUser(ctx context.Context, userID, email string) (int, error) {
	args := m.Called(ctx, userID, email)
	return args.Int(0), args.Error(1)
}

func TestPaymentReconciler(t *testing.T) {
	svc := new(mockService)
	reconciler := &PaymentReconciler{Service: svc, Logger: logger.New(nil)}
	ctx := context.Background()

	svc.On("ApplyPaymentStatus", ctx, "t1", models.PaymentCompleted).
		Return(&models.Ticket{ID: "t1", PaymentStatus: models.PaymentCompleted}, nil)
	svc.On("ApplyPaymentStatus", ctx, "t2", models.PaymentFailed).
		Return(nil, apperr.ErrInvalidTransition)

	err := reconciler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"ticketId":"t1","status":"COMPLETED"}`)})
	require.NoError(t, err)

	err = reconciler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"ticketId":"t2","status":"FAILED"}`)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	assert.Error(t, reconciler.HandleMessage(ctx, kafka.Message{Value: []byte(`{not json`)}))
	assert.Error(t, reconciler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"status":"FAILED"}`)}))

	svc.AssertExpectations(t)
}

func TestUserLinker(t *testing.T) {
	svc := new(mockService)
	linker := &UserLinker{Service: svc}
	ctx := context.Background()

	svc.On("LinkTicketsToUser", ctx, "u1", "fan@example.com").Return(3, nil)

	err := linker.HandleMessage(ctx, kafka.Message{Value: []byte(`{"userId":"u1","email":"fan@example.com"}`)})
	require.NoError(t, err)
	assert.Error(t, linker.HandleMessage(ctx, kafka.Message{Value: []byte(`[]`)}))
	svc.AssertExpectations(t)
}
