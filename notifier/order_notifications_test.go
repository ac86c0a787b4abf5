package notifier

import (
	"context"
	"testing"

	"storefront-service/logger"
	"storefront-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		OrderNumber:  "HW-20240102-0042",
		CustomerName: "Juan",
		Phone:        "09171234567",
		Barangay:     "Poblacion",
		TotalAmount:  decimal.RequireFromString("1250.5"),
		Status:       models.OrderStatusPending,
		Items: []models.OrderItem{
			{Quantity: 2},
			{Quantity: 1},
		},
	}
}

func TestOrderPlaced_NotifiesCustomerAndAdmins(t *testing.T) {
	q := &recordingQueue{}
	n := NewOrderNotifications(q, "Hardware Store", []string{"09181111111", "09182222222"}, zap.NewNop())
	order := sampleOrder()

	ctx := logger.WithRequestID(context.Background(), "req-7")
	n.OrderPlaced(ctx, order)

	require.Len(t, q.msgs, 3)
	assert.Equal(t, "09171234567", q.msgs[0].Destination)
	assert.Equal(t, TemplateOrderConfirmed, q.msgs[0].Template)
	assert.Equal(t, order.ID, *q.msgs[0].OrderID)
	assert.Equal(t, "req-7", q.msgs[0].RequestID)
	assert.Equal(t, "PHP 1250.50", q.msgs[0].Params.Total)
	assert.Equal(t, 3, q.msgs[0].Params.ItemCount)

	for _, m := range q.msgs[1:] {
		assert.Equal(t, TemplateAdminNewOrder, m.Template)
	}
	assert.Equal(t, "09181111111", q.msgs[1].Destination)
	assert.Equal(t, "09182222222", q.msgs[2].Destination)
}

func TestStatusChanged_UsesStatusTemplate(t *testing.T) {
	q := &recordingQueue{}
	n := NewOrderNotifications(q, "Hardware Store", nil, zap.NewNop())
	order := sampleOrder()
	order.Status = models.OrderStatusOutForDelivery

	n.StatusChanged(context.Background(), order, models.OrderStatusPreparing)

	require.Len(t, q.msgs, 1)
	assert.Equal(t, TemplateOutForDelivery, q.msgs[0].Template)
	assert.Equal(t, "out for delivery", q.msgs[0].Params.Status)

	body, err := MustTemplates().Render(q.msgs[0].Template, q.msgs[0].Params)
	require.NoError(t, err)
	assert.Contains(t, body, "PHP 1250.50")
}

func TestOrderNotifications_EnqueueFailureIsSwallowed(t *testing.T) {
	q := &recordingQueue{err: ErrQueueFull}
	n := NewOrderNotifications(q, "Hardware Store", []string{"09181111111"}, zap.NewNop())

	assert.NotPanics(t, func() {
		n.OrderPlaced(context.Background(), sampleOrder())
	})
	assert.Empty(t, q.msgs)
}
