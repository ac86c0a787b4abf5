package models

import (
	"fmt"

	"github.com/google/uuid"
)

// StockKind says which table a StockTarget counter lives in.
type StockKind uint8

const (
	StockKindProduct StockKind = iota + 1
	StockKindVariant
)

func (k StockKind) String() string {
	switch k {
	case StockKindProduct:
		return "product"
	case StockKindVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// StockTarget identifies one stock counter: a product or a variant.
// It is comparable and can key maps.
type StockTarget struct {
	Kind StockKind
	ID   uuid.UUID
}

// ProductStock targets product-level stock.
func ProductStock(id uuid.UUID) StockTarget {
	return StockTarget{Kind: StockKindProduct, ID: id}
}

// VariantStock targets variant-level stock.
func VariantStock(id uuid.UUID) StockTarget {
	return StockTarget{Kind: StockKindVariant, ID: id}
}

func (t StockTarget) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}
