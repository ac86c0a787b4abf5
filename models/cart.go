package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one requested product/variant + quantity.
type CartLine struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// StockTarget returns the counter the line would draw from once the
// variant question is settled by validation.
func (l CartLine) StockTarget() StockTarget {
	if l.VariantID != nil {
		return VariantStock(*l.VariantID)
	}
	return ProductStock(l.ProductID)
}

// Line error codes reported per cart line.
const (
	LineErrNotFound           = "NOT_FOUND"
	LineErrUnavailable        = "UNAVAILABLE"
	LineErrVariantNotFound    = "VARIANT_NOT_FOUND"
	LineErrVariantUnavailable = "VARIANT_UNAVAILABLE"
	LineErrInsufficientStock  = "INSUFFICIENT_STOCK"
	LineErrInvalidQuantity    = "INVALID_QUANTITY"
)

// LineError explains why a cart line cannot be ordered.
type LineError struct {
	Index     int        `json:"index"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Requested int        `json:"requested,omitempty"`
	Available *int       `json:"available,omitempty"`
}

// ValidatedLine carries the authoritative price and stock for a valid line.
type ValidatedLine struct {
	Index          int             `json:"index"`
	ProductID      uuid.UUID       `json:"product_id"`
	VariantID      *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName    string          `json:"product_name"`
	VariantName    *string         `json:"variant_name,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	AvailableStock int             `json:"available_stock"`
	Target         StockTarget     `json:"-"`
}

// CartValidation is the result of validating a whole cart.
type CartValidation struct {
	Valid          bool            `json:"valid"`
	Errors         []LineError     `json:"errors"`
	ValidatedItems []ValidatedLine `json:"validated_items"`
}
