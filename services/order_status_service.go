package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStatusService is the order state machine. Every change appends one
// history row in the same transaction as the status update and any stock
// movement. A cancelled order holds no stock; leaving cancelled takes it
// back.
type OrderStatusService struct {
	OrderDeps
	policy TransitionPolicy
}

func NewOrderStatusService(deps OrderDeps, policy TransitionPolicy) *OrderStatusService {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	return &OrderStatusService{OrderDeps: deps, policy: policy}
}

// transition is the outcome of one committed status change.
type transition struct {
	order    *models.Order
	from     models.OrderStatus
	restored int
	reserved int
}

// SetStatus is the admin status change.
func (s *OrderStatusService) SetStatus(ctx context.Context, orderID uuid.UUID, status string, actor Actor, note *string) (*models.Order, error) {
	var t transition
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepoErr(err, "order")
		}
		to, ok := models.ParseOrderStatus(strings.TrimSpace(status))
		if !ok {
			return apperrors.InvalidStatus(status, models.OrderStatusNames())
		}
		if err := s.policy.Allow(order.Status, to); err != nil {
			return err
		}
		t, err = s.apply(ctx, order, to, actor, note)
		return err
	})
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	s.afterCommit(ctx, t, actor)
	return t.order, nil
}

// CancelOwnOrder lets a customer cancel their own order while it is still
// pending. Orders of other customers look like they do not exist.
func (s *OrderStatusService) CancelOwnOrder(ctx context.Context, orderNumber string, customerID uuid.UUID) (*models.Order, error) {
	actor := Actor{ID: &customerID, Role: RoleCustomer}
	var t transition
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.Orders.FindByNumberForUpdate(ctx, strings.TrimSpace(orderNumber))
		if err != nil {
			return mapRepoErr(err, "order")
		}
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return apperrors.NotFound("order")
		}
		if order.Status != models.OrderStatusPending {
			return apperrors.AlreadyProcessing()
		}
		note := "cancelled by customer"
		t, err = s.apply(ctx, order, models.OrderStatusCancelled, actor, &note)
		return err
	})
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	s.afterCommit(ctx, t, actor)
	return t.order, nil
}

// apply moves stock for the transition, then persists the status and its
// history row. Must run inside a transaction holding the order lock.
func (s *OrderStatusService) apply(ctx context.Context, order *models.Order, to models.OrderStatus, actor Actor, note *string) (transition, error) {
	from := order.Status
	t := transition{order: order, from: from}

	switch {
	case to == models.OrderStatusCancelled && from != models.OrderStatusCancelled:
		restored, err := s.restore(ctx, order)
		if err != nil {
			return t, err
		}
		t.restored = restored
	case from == models.OrderStatusCancelled && to != models.OrderStatusCancelled:
		reserved, err := s.reserve(ctx, order)
		if err != nil {
			return t, err
		}
		t.reserved = reserved
	}

	if err := s.Orders.UpdateStatus(ctx, order.ID, to); err != nil {
		return t, err
	}
	prev := from
	if err := s.Orders.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: &prev,
		ToStatus:   to,
		ActorID:    actor.ID,
		Note:       note,
	}); err != nil {
		return t, err
	}

	order.Status = to
	order.UpdatedAt = time.Now()
	return t, nil
}

// restore returns every item's units, skipping entries retired since the
// order was placed.
func (s *OrderStatusService) restore(ctx context.Context, order *models.Order) (int, error) {
	units := 0
	for i := range order.Items {
		item := &order.Items[i]
		restored, err := s.Inventory.Restore(ctx, item.StockTarget(), item.Quantity)
		if err != nil {
			return 0, err
		}
		if !restored {
			s.Logger.Info("stock restore skipped for retired entry",
				zap.String("order_number", order.OrderNumber),
				zap.String("target", item.StockTarget().String()),
			)
			continue
		}
		units += item.Quantity
	}
	return units, nil
}

// reserve takes stock back for a revived cancelled order with the same
// conditional decrement order placement uses. Retired entries were never
// restored, so they are skipped here too.
func (s *OrderStatusService) reserve(ctx context.Context, order *models.Order) (int, error) {
	retired, err := s.retiredTargets(ctx, order.Items)
	if err != nil {
		return 0, err
	}
	demand := make(map[models.StockTarget]int, len(order.Items))
	targets := make([]models.StockTarget, 0, len(order.Items))
	for i := range order.Items {
		t := order.Items[i].StockTarget()
		if retired[t] {
			continue
		}
		if _, ok := demand[t]; !ok {
			targets = append(targets, t)
		}
		demand[t] += order.Items[i].Quantity
	}
	sortTargets(targets)

	units := 0
	for _, t := range targets {
		if err := s.Inventory.Decrement(ctx, t, demand[t]); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return 0, apperrors.InsufficientStock(itemShortfall(order.Items, t, demand[t]))
			}
			return 0, err
		}
		units += demand[t]
	}
	return units, nil
}

// retiredTargets reports which stock counters behind items are soft-deleted.
func (s *OrderStatusService) retiredTargets(ctx context.Context, items []models.OrderItem) (map[models.StockTarget]bool, error) {
	var productIDs, variantIDs []uuid.UUID
	for i := range items {
		if items[i].VariantID != nil {
			variantIDs = append(variantIDs, *items[i].VariantID)
		} else {
			productIDs = append(productIDs, items[i].ProductID)
		}
	}
	products, err := s.Inventory.LoadProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	variants, err := s.Inventory.LoadVariants(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	retired := make(map[models.StockTarget]bool)
	for id, p := range products {
		if p.IsDeleted {
			retired[models.ProductStock(id)] = true
		}
	}
	for id, v := range variants {
		if v.IsDeleted {
			retired[models.VariantStock(id)] = true
		}
	}
	return retired, nil
}

// itemShortfall reports the order items drawing from a target that could
// not be re-reserved.
func itemShortfall(items []models.OrderItem, t models.StockTarget, requested int) []models.LineError {
	var out []models.LineError
	for i := range items {
		item := &items[i]
		if item.StockTarget() != t {
			continue
		}
		out = append(out, models.LineError{
			Index:     i,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Code:      models.LineErrInsufficientStock,
			Message:   "not enough stock left for " + item.ProductName,
			Requested: requested,
		})
	}
	return out
}

func (s *OrderStatusService) afterCommit(ctx context.Context, t transition, actor Actor) {
	order := t.order
	if t.reserved > 0 {
		s.Invalidator.Catalog(ctx)
		s.Logger.Info("stock reserved for revived order",
			zap.String("order_number", order.OrderNumber),
			zap.Int("units", t.reserved),
		)
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricInventoryReserved, nil)
	}
	if t.restored > 0 {
		s.Invalidator.Catalog(ctx)
		s.Logger.Info("stock restored",
			zap.String("order_number", order.OrderNumber),
			zap.Int("units", t.restored),
		)
		_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricInventoryReleased, nil)
	}

	s.Logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(t.from)),
		zap.String("to", string(order.Status)),
		zap.String("actor", actorString(actor)),
	)
	_ = s.Metrics.RecordCount(ctx, aws_pkg.MetricOrderStatusChanged, map[string]string{"Status": string(order.Status)})

	from := t.from
	s.Events.Publish(ctx, models.OrderEvent{
		EventType:   models.EventOrderStatusChanged,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		FromStatus:  &from,
		ToStatus:    order.Status,
		TotalAmount: order.TotalAmount,
		ActorID:     actorString(actor),
		Timestamp:   time.Now().UTC(),
	})
	s.Notifier.StatusChanged(ctx, order, t.from)
}
