package repository

import (
	"context"
	"errors"

	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads and mutates categories, products and variants.
// Reads skip soft-deleted rows.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// CreateCategory yields ErrDuplicateSlug when the slug is taken.
	CreateCategory(ctx context.Context, c *models.Category) error
	SoftDeleteCategory(ctx context.Context, id uuid.UUID) error

	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID, page, limit int) ([]models.Product, int64, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) error

	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	CreateVariant(ctx context.Context, v *models.ProductVariant) error
	UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteVariant(ctx context.Context, id uuid.UUID) error
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := conn(ctx, r.db).
		Where("is_deleted = ?", false).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

func (r *GormCatalogRepository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := conn(ctx, r.db).Where("id = ? AND is_deleted = ?", id, false).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormCatalogRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := conn(ctx, r.db).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *GormCatalogRepository) SoftDeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.softDelete(ctx, &models.Category{}, id)
}

func (r *GormCatalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := conn(ctx, r.db).
		Preload("Variants", "is_deleted = ?", false).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormCatalogRepository) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID, page, limit int) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := conn(ctx, r.db).
		Model(&models.Product{}).
		Where("category_id = ? AND is_deleted = ?", categoryID, false)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Variants", "is_deleted = ?", false).
		Offset(offset(page, limit)).
		Limit(limit).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *GormCatalogRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	return conn(ctx, r.db).Omit("Variants").Create(p).Error
}

func (r *GormCatalogRepository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.update(ctx, &models.Product{}, id, updates)
}

func (r *GormCatalogRepository) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.softDelete(ctx, &models.Product{}, id)
}

func (r *GormCatalogRepository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var v models.ProductVariant
	if err := conn(ctx, r.db).Where("id = ? AND is_deleted = ?", id, false).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *GormCatalogRepository) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	return conn(ctx, r.db).Create(v).Error
}

func (r *GormCatalogRepository) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.update(ctx, &models.ProductVariant{}, id, updates)
}

func (r *GormCatalogRepository) SoftDeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.softDelete(ctx, &models.ProductVariant{}, id)
}

func (r *GormCatalogRepository) update(ctx context.Context, model interface{}, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := conn(ctx, r.db).Model(model).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCatalogRepository) softDelete(ctx context.Context, model interface{}, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(model).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
