package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products in the storefront catalog.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(140);uniqueIndex;not null" json:"slug"`
	Description string    `json:"description,omitempty"`
	IsDeleted   bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Product is a sellable catalog entry. When it has variants, stock is
// tracked on the variants and StockQuantity is ignored for ordering.
type Product struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CategoryID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"category_id"`
	Name          string           `gorm:"type:varchar(200);not null" json:"name"`
	Description   string           `json:"description,omitempty"`
	Price         decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int              `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	IsAvailable   bool             `gorm:"not null;default:true" json:"is_available"`
	IsDeleted     bool             `gorm:"not null;default:false;index" json:"-"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// Orderable reports whether the product itself may be put on an order.
func (p *Product) Orderable() bool {
	return p.IsAvailable && !p.IsDeleted
}

// HasVariants reports whether any loaded variant is still live. Such a
// product can only be ordered through one of its variants.
func (p *Product) HasVariants() bool {
	for i := range p.Variants {
		if !p.Variants[i].IsDeleted {
			return true
		}
	}
	return false
}

// ProductVariant carries its own price and stock.
type ProductVariant struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Name          string          `gorm:"type:varchar(120);not null" json:"name"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	IsAvailable   bool            `gorm:"not null;default:true" json:"is_available"`
	IsDeleted     bool            `gorm:"not null;default:false;index" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Orderable reports whether the variant may be put on an order.
func (v *ProductVariant) Orderable() bool {
	return v.IsAvailable && !v.IsDeleted
}

// CreateCategoryRequest is the admin payload for a new category.
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Slug        string `json:"slug" binding:"required,max=140"`
	Description string `json:"description"`
}

// CreateProductRequest is the admin payload for a new product.
type CreateProductRequest struct {
	CategoryID    uuid.UUID       `json:"category_id" binding:"required"`
	Name          string          `json:"name" binding:"required,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" binding:"gte=0"`
	IsAvailable   *bool           `json:"is_available"`
}

// UpdateProductRequest is a partial admin update. Nil fields are untouched.
type UpdateProductRequest struct {
	CategoryID  *uuid.UUID       `json:"category_id"`
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

// CreateVariantRequest is the admin payload for a new variant.
type CreateVariantRequest struct {
	Name          string          `json:"name" binding:"required,max=120"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" binding:"gte=0"`
	IsAvailable   *bool           `json:"is_available"`
}

// UpdateVariantRequest is a partial admin update of a variant.
type UpdateVariantRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=120"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

// SetStockRequest overwrites the stock counter of a product or variant.
type SetStockRequest struct {
	StockQuantity *int `json:"stock_quantity" binding:"required,gte=0"`
}
