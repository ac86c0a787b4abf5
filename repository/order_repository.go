package repository

import (
	"context"
	"errors"

	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository persists orders, their items and the status history.
type OrderRepository interface {
	// Create inserts the order and its items. A clash on order_number
	// yields ErrDuplicateOrderNumber.
	Create(ctx context.Context, order *models.Order) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	// The ForUpdate variants lock the order row for the rest of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*models.Order, error)

	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrderNumber
		}
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return db.Create(&order.Items).Error
}

func (r *GormOrderRepository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(conn(ctx, r.db).Preload("History", orderHistory), "id = ?", id)
}

func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.find(conn(ctx, r.db).Preload("History", orderHistory), "order_number = ?", number)
}

func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *GormOrderRepository) FindByNumberForUpdate(ctx context.Context, number string) (*models.Order, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), "order_number = ?", number)
}

func (r *GormOrderRepository) find(db *gorm.DB, where string, arg interface{}) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items").Where(where, arg).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *GormOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := conn(ctx, r.db).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Items").
		Offset(offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var history []models.OrderStatusHistory
	err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&history).Error
	return history, err
}

func orderHistory(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
