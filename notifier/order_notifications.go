package notifier

import (
	"context"

	"storefront-service/logger"
	"storefront-service/models"

	"go.uber.org/zap"
)

// OrderNotifications turns order lifecycle events into queued messages for
// the customer and the store admins.
type OrderNotifications struct {
	queue       Queue
	storeName   string
	adminPhones []string
	logger      *zap.Logger
}

func NewOrderNotifications(queue Queue, storeName string, adminPhones []string, logger *zap.Logger) *OrderNotifications {
	return &OrderNotifications{
		queue:       queue,
		storeName:   storeName,
		adminPhones: adminPhones,
		logger:      logger,
	}
}

// OrderPlaced confirms the order to the customer and alerts every admin.
func (n *OrderNotifications) OrderPlaced(ctx context.Context, order *models.Order) {
	params := n.params(order)
	n.enqueue(ctx, order, order.Phone, TemplateOrderConfirmed, params)
	for _, phone := range n.adminPhones {
		n.enqueue(ctx, order, phone, TemplateAdminNewOrder, params)
	}
}

// StatusChanged tells the customer about the order's new status.
func (n *OrderNotifications) StatusChanged(ctx context.Context, order *models.Order, _ models.OrderStatus) {
	n.enqueue(ctx, order, order.Phone, TemplateForStatus(order.Status), n.params(order))
}

func (n *OrderNotifications) enqueue(ctx context.Context, order *models.Order, destination, template string, params Params) {
	id := order.ID
	msg := Message{
		OrderID:     &id,
		Destination: destination,
		Template:    template,
		Params:      params,
		RequestID:   logger.RequestID(ctx),
	}
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		logger.For(ctx, n.logger).Warn("failed to queue notification",
			zap.String("order_number", order.OrderNumber),
			zap.String("template", template),
			zap.Error(err),
		)
	}
}

func (n *OrderNotifications) params(order *models.Order) Params {
	items := 0
	for _, it := range order.Items {
		items += it.Quantity
	}
	return Params{
		StoreName:    n.storeName,
		CustomerName: order.CustomerName,
		OrderNumber:  order.OrderNumber,
		Total:        "PHP " + order.TotalAmount.StringFixed(2),
		Status:       humanStatus(order.Status),
		Barangay:     order.Barangay,
		Phone:        order.Phone,
		ItemCount:    items,
	}
}

func humanStatus(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusOutForDelivery:
		return "out for delivery"
	default:
		return string(s)
	}
}
