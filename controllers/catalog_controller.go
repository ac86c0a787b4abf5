package controllers

import (
	"context"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID, page, limit int) (*services.ProductList, error)

	CreateCategory(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SetProductStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error)
	CreateVariant(ctx context.Context, productID uuid.UUID, req models.CreateVariantRequest) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, req models.UpdateVariantRequest) (*models.ProductVariant, error)
	SetVariantStock(ctx context.Context, id uuid.UUID, qty int) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

type CatalogController struct {
	catalog CatalogService
}

func NewCatalogController(catalog CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

func (cc *CatalogController) ListCategories(ctx *gin.Context) {
	categories, err := cc.catalog.ListCategories(ctx.Request.Context())
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	ctx.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (cc *CatalogController) GetCategory(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	category, err := cc.catalog.GetCategory(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"category": category})
}

func (cc *CatalogController) ListCategoryProducts(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx, "limit", 20)
	result, err := cc.catalog.ListProductsByCategory(ctx.Request.Context(), id, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (cc *CatalogController) GetProduct(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	product, err := cc.catalog.GetProduct(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"product": product})
}

func (cc *CatalogController) CreateCategory(ctx *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(ctx, &req) {
		return
	}
	category, err := cc.catalog.CreateCategory(ctx.Request.Context(), req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"category": category})
}

func (cc *CatalogController) DeleteCategory(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if err := cc.catalog.DeleteCategory(ctx.Request.Context(), id); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (cc *CatalogController) CreateProduct(ctx *gin.Context) {
	var req models.CreateProductRequest
	if !bindJSON(ctx, &req) {
		return
	}
	product, err := cc.catalog.CreateProduct(ctx.Request.Context(), req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"product": product})
}

func (cc *CatalogController) UpdateProduct(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if !bindJSON(ctx, &req) {
		return
	}
	product, err := cc.catalog.UpdateProduct(ctx.Request.Context(), id, req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"product": product})
}

func (cc *CatalogController) DeleteProduct(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if err := cc.catalog.DeleteProduct(ctx.Request.Context(), id); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (cc *CatalogController) SetProductStock(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.SetStockRequest
	if !bindJSON(ctx, &req) {
		return
	}
	product, err := cc.catalog.SetProductStock(ctx.Request.Context(), id, *req.StockQuantity)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"product": product})
}

func (cc *CatalogController) CreateVariant(ctx *gin.Context) {
	productID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.CreateVariantRequest
	if !bindJSON(ctx, &req) {
		return
	}
	variant, err := cc.catalog.CreateVariant(ctx.Request.Context(), productID, req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"variant": variant})
}

func (cc *CatalogController) UpdateVariant(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateVariantRequest
	if !bindJSON(ctx, &req) {
		return
	}
	variant, err := cc.catalog.UpdateVariant(ctx.Request.Context(), id, req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}

func (cc *CatalogController) SetVariantStock(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.SetStockRequest
	if !bindJSON(ctx, &req) {
		return
	}
	variant, err := cc.catalog.SetVariantStock(ctx.Request.Context(), id, *req.StockQuantity)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}

func (cc *CatalogController) DeleteVariant(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if err := cc.catalog.DeleteVariant(ctx.Request.Context(), id); err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
