package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderDeps bundles the collaborators of the order services.
type OrderDeps struct {
	Tx          repository.TxManager
	Inventory   repository.InventoryRepository
	Orders      repository.OrderRepository
	Invalidator *cache.Invalidator
	Notifier    OrderNotifier
	Events      EventPublisher
	Metrics     aws_pkg.Metrics
	Logger      *zap.Logger
}

// OrderService places orders and serves order reads.
type OrderService struct {
	OrderDeps
	numbers     *OrderNumberGenerator
	maxAttempts int
	validate    *validator.Validate
}

func NewOrderService(deps OrderDeps, numbers *OrderNumberGenerator, maxAttempts int) *OrderService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderService{
		OrderDeps:   deps,
		numbers:     numbers,
		maxAttempts: maxAttempts,
		validate:    newValidator(),
	}
}

// CreateOrder re-validates the cart against live stock and, in one
// transaction, decrements stock and writes the order, its items and the
// initial history row. Nothing is written when any line fails.
func (s *OrderService) CreateOrder(ctx context.Context, in models.CreateOrderInput, actor Actor) (*models.Order, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Barangay = strings.TrimSpace(in.Barangay)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if len(in.Items) == 0 {
		return nil, apperrors.EmptyCart()
	}

	start := time.Now()
	var order *models.Order
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err = s.placeOrder(ctx, in, actor, s.numbers.Next())
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		s.Logger.Warn("order number collision, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrdersFailed, nil)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return nil, apperrors.Internal(err)
		}
		return nil, mapRepoErr(err, "order")
	}

	s.Logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrdersCreated, nil)
	_ = s.Metrics.RecordLatency(ctx, aws_pkg.MetricInventoryReserved, time.Since(start), nil)

	s.Invalidator.Catalog(ctx)

	s.Events.Publish(ctx, models.OrderEvent{
		EventType:   models.EventOrderCreated,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		ToStatus:    order.Status,
		TotalAmount: order.TotalAmount,
		ActorID:     actorString(actor),
		Timestamp:   time.Now().UTC(),
	})
	s.Notifier.OrderPlaced(ctx, order)

	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, in models.CreateOrderInput, actor Actor, number string) (*models.Order, error) {
	var order *models.Order
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		valid, lineErrs, err := checkLines(ctx, s.Inventory, in.Items)
		if err != nil {
			return err
		}
		if len(lineErrs) > 0 {
			if onlyStockErrors(lineErrs) {
				return apperrors.InsufficientStock(lineErrs)
			}
			return apperrors.CartInvalid(lineErrs)
		}

		targets, demand := stockDemand(valid)
		for _, t := range targets {
			if err := s.Inventory.Decrement(ctx, t, demand[t]); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return apperrors.InsufficientStock(shortfall(valid, t, demand[t]))
				}
				return err
			}
		}

		order = buildOrder(in, actor, number, valid)
		if err := s.Orders.Create(ctx, order); err != nil {
			return err
		}

		initial := &models.OrderStatusHistory{
			OrderID:  order.ID,
			ToStatus: models.OrderStatusPending,
			ActorID:  actor.ID,
		}
		if err := s.Orders.AppendHistory(ctx, initial); err != nil {
			return err
		}
		order.History = []models.OrderStatusHistory{*initial}
		return nil
	})
	return order, err
}

func buildOrder(in models.CreateOrderInput, actor Actor, number string, lines []models.ValidatedLine) *models.Order {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			VariantName: l.VariantName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	var customerID *uuid.UUID
	if actor.ID != nil && actor.Role == RoleCustomer {
		id := *actor.ID
		customerID = &id
	}
	return &models.Order{
		OrderNumber:  number,
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		Address:      in.Address,
		Barangay:     in.Barangay,
		Landmarks:    in.Landmarks,
		Notes:        in.Notes,
		CustomerID:   customerID,
		TotalAmount:  totalOf(lines),
		Status:       models.OrderStatusPending,
		Items:        items,
	}
}

// shortfall reports the lines drawing from a target whose conditional
// decrement failed.
func shortfall(lines []models.ValidatedLine, t models.StockTarget, requested int) []models.LineError {
	var out []models.LineError
	for _, l := range lines {
		if l.Target != t {
			continue
		}
		out = append(out, models.LineError{
			Index:     l.Index,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Code:      models.LineErrInsufficientStock,
			Message:   "not enough stock left for " + l.ProductName,
			Requested: requested,
		})
	}
	return out
}

func actorString(a Actor) string {
	if a.ID == nil {
		return ""
	}
	return a.ID.String()
}

// OrderList is a page of orders.
type OrderList struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) (*OrderList, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit, 20, 100)
	orders, total, err := s.Orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &OrderList{Orders: orders, Meta: newMeta(filter.Page, filter.Limit, total)}, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page, limit int) (*OrderList, error) {
	return s.ListOrders(ctx, models.OrderFilter{CustomerID: &customerID, Page: page, Limit: limit})
}

// TrackOrder is the public lookup by order number. Contact details are
// left out.
func (s *OrderService) TrackOrder(ctx context.Context, orderNumber string) (*models.OrderTracking, error) {
	order, err := s.Orders.FindByNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	history := make([]models.OrderStatusHistory, len(order.History))
	for i, h := range order.History {
		h.ActorID = nil
		history[i] = h
	}
	return &models.OrderTracking{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
		Items:       order.Items,
		History:     history,
	}, nil
}

func (s *OrderService) GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Orders.FindByID(ctx, orderID); err != nil {
		return nil, mapRepoErr(err, "order")
	}
	history, err := s.Orders.History(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return history, nil
}
