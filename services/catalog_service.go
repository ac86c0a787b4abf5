package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/models"
	"storefront-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService serves cached catalog reads and admin mutations. Every
// mutation clears the affected cache namespaces before it returns.
type CatalogService struct {
	catalog     repository.CatalogRepository
	inventory   repository.InventoryRepository
	cache       cache.Cache
	invalidator *cache.Invalidator
	ttl         time.Duration
	logger      *zap.Logger
}

func NewCatalogService(catalog repository.CatalogRepository, inventory repository.InventoryRepository, c cache.Cache, invalidator *cache.Invalidator, ttl time.Duration, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		catalog:     catalog,
		inventory:   inventory,
		cache:       c,
		invalidator: invalidator,
		ttl:         ttl,
		logger:      logger,
	}
}

// ProductList is a page of products in one category.
type ProductList struct {
	Products []models.Product `json:"products"`
	Meta     MetaData         `json:"meta"`
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := cache.Remember(ctx, s.cache, cache.CategoriesKey(), s.ttl, s.catalog.ListCategories)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return categories, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := cache.Remember(ctx, s.cache, cache.CategoryKey(id), s.ttl, func(ctx context.Context) (*models.Category, error) {
		return s.catalog.FindCategory(ctx, id)
	})
	if err != nil {
		return nil, mapRepoErr(err, "category")
	}
	return c, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := cache.Remember(ctx, s.cache, cache.ProductKey(id), s.ttl, func(ctx context.Context) (*models.Product, error) {
		return s.catalog.FindProduct(ctx, id)
	})
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	return p, nil
}

func (s *CatalogService) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID, page, limit int) (*ProductList, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit, 20, 100)
	list, err := cache.Remember(ctx, s.cache, cache.CategoryProductsKey(categoryID, page, limit), s.ttl, func(ctx context.Context) (*ProductList, error) {
		products, total, err := s.catalog.ListProductsByCategory(ctx, categoryID, page, limit)
		if err != nil {
			return nil, err
		}
		return &ProductList{Products: products, Meta: newMeta(page, limit, total)}, nil
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error) {
	c := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        strings.ToLower(strings.TrimSpace(req.Slug)),
		Description: req.Description,
	}
	if err := s.catalog.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, apperrors.Conflict("category slug already exists")
		}
		return nil, apperrors.Internal(err)
	}
	s.invalidator.Invalidate(ctx, cache.NSCategories, cache.NSResponses)
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.SoftDeleteCategory(ctx, id); err != nil {
		return mapRepoErr(err, "category")
	}
	s.invalidator.Catalog(ctx)
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, apperrors.Validation("invalid input", map[string]string{"price": "gte"})
	}
	if _, err := s.catalog.FindCategory(ctx, req.CategoryID); err != nil {
		return nil, mapRepoErr(err, "category")
	}
	p := &models.Product{
		CategoryID:    req.CategoryID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price.Round(2),
		StockQuantity: req.StockQuantity,
		IsAvailable:   req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := s.catalog.CreateProduct(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidator.Products(ctx)
	s.logger.Info("product created", zap.String("product_id", p.ID.String()))
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error) {
	updates := map[string]interface{}{}
	if req.CategoryID != nil {
		if _, err := s.catalog.FindCategory(ctx, *req.CategoryID); err != nil {
			return nil, mapRepoErr(err, "category")
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, apperrors.Validation("invalid input", map[string]string{"price": "gte"})
		}
		updates["price"] = req.Price.Round(2)
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}

	if err := s.catalog.UpdateProduct(ctx, id, updates); err != nil {
		return nil, mapRepoErr(err, "product")
	}
	s.invalidator.Products(ctx)
	return s.freshProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.SoftDeleteProduct(ctx, id); err != nil {
		return mapRepoErr(err, "product")
	}
	s.invalidator.Products(ctx)
	return nil
}

func (s *CatalogService) SetProductStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error) {
	if err := s.setStock(ctx, models.ProductStock(id), qty, "product"); err != nil {
		return nil, err
	}
	return s.freshProduct(ctx, id)
}

func (s *CatalogService) CreateVariant(ctx context.Context, productID uuid.UUID, req models.CreateVariantRequest) (*models.ProductVariant, error) {
	if req.Price.IsNegative() {
		return nil, apperrors.Validation("invalid input", map[string]string{"price": "gte"})
	}
	if _, err := s.catalog.FindProduct(ctx, productID); err != nil {
		return nil, mapRepoErr(err, "product")
	}
	v := &models.ProductVariant{
		ProductID:     productID,
		Name:          strings.TrimSpace(req.Name),
		Price:         req.Price.Round(2),
		StockQuantity: req.StockQuantity,
		IsAvailable:   req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := s.catalog.CreateVariant(ctx, v); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidator.Products(ctx)
	return v, nil
}

func (s *CatalogService) UpdateVariant(ctx context.Context, id uuid.UUID, req models.UpdateVariantRequest) (*models.ProductVariant, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, apperrors.Validation("invalid input", map[string]string{"price": "gte"})
		}
		updates["price"] = req.Price.Round(2)
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if err := s.catalog.UpdateVariant(ctx, id, updates); err != nil {
		return nil, mapRepoErr(err, "variant")
	}
	s.invalidator.Products(ctx)
	return s.freshVariant(ctx, id)
}

func (s *CatalogService) SetVariantStock(ctx context.Context, id uuid.UUID, qty int) (*models.ProductVariant, error) {
	if err := s.setStock(ctx, models.VariantStock(id), qty, "variant"); err != nil {
		return nil, err
	}
	return s.freshVariant(ctx, id)
}

func (s *CatalogService) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.SoftDeleteVariant(ctx, id); err != nil {
		return mapRepoErr(err, "variant")
	}
	s.invalidator.Products(ctx)
	return nil
}

func (s *CatalogService) setStock(ctx context.Context, target models.StockTarget, qty int, what string) error {
	if qty < 0 {
		return apperrors.Validation("invalid input", map[string]string{"stock_quantity": "gte"})
	}
	if err := s.inventory.SetStock(ctx, target, qty); err != nil {
		return mapRepoErr(err, what)
	}
	s.invalidator.Products(ctx)
	s.logger.Info("stock set", zap.String("target", target.String()), zap.Int("quantity", qty))
	return nil
}

// freshProduct reads from the database, never the cache.
func (s *CatalogService) freshProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.catalog.FindProduct(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	return p, nil
}

func (s *CatalogService) freshVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	v, err := s.catalog.FindVariant(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "variant")
	}
	return v, nil
}
