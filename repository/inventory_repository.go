package repository

import (
	"context"
	"fmt"

	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryRepository owns the stock counters. Every mutation is a single
// conditional statement so concurrent callers cannot drive stock negative.
type InventoryRepository interface {
	// LoadProducts and LoadVariants include soft-deleted rows so callers can
	// tell "retired" apart from "never existed". LoadProducts preloads the
	// live variants of each product.
	LoadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	LoadVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error)
	// Decrement returns ErrInsufficientStock when fewer than qty units remain.
	Decrement(ctx context.Context, target models.StockTarget, qty int) error
	// Restore adds qty back unless the entry was soft-deleted; it reports
	// whether anything was restored.
	Restore(ctx context.Context, target models.StockTarget, qty int) (bool, error)
	SetStock(ctx context.Context, target models.StockTarget, qty int) error
}

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) LoadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	err := conn(ctx, r.db).
		Preload("Variants", "is_deleted = ?", false).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *GormInventoryRepository) LoadVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error) {
	out := make(map[uuid.UUID]*models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var variants []models.ProductVariant
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, err
	}
	for i := range variants {
		out[variants[i].ID] = &variants[i]
	}
	return out, nil
}

func (r *GormInventoryRepository) Decrement(ctx context.Context, target models.StockTarget, qty int) error {
	model, err := stockModel(target)
	if err != nil {
		return err
	}
	res := conn(ctx, r.db).Model(model).
		Where("id = ? AND stock_quantity >= ?", target.ID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *GormInventoryRepository) Restore(ctx context.Context, target models.StockTarget, qty int) (bool, error) {
	model, err := stockModel(target)
	if err != nil {
		return false, err
	}
	res := conn(ctx, r.db).Model(model).
		Where("id = ? AND is_deleted = ?", target.ID, false).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormInventoryRepository) SetStock(ctx context.Context, target models.StockTarget, qty int) error {
	if qty < 0 {
		return fmt.Errorf("stock quantity must not be negative")
	}
	model, err := stockModel(target)
	if err != nil {
		return err
	}
	res := conn(ctx, r.db).Model(model).
		Where("id = ? AND is_deleted = ?", target.ID, false).
		UpdateColumn("stock_quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func stockModel(target models.StockTarget) (interface{}, error) {
	switch target.Kind {
	case models.StockKindProduct:
		return &models.Product{}, nil
	case models.StockKindVariant:
		return &models.ProductVariant{}, nil
	default:
		return nil, fmt.Errorf("unknown stock target kind %d", target.Kind)
	}
}
