package services

import (
	"context"
	"fmt"
	"sort"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartValidator checks cart lines against live catalog state. It never
// reserves stock, so a valid result is advisory.
type CartValidator struct {
	inventory repository.InventoryRepository
}

func NewCartValidator(inventory repository.InventoryRepository) *CartValidator {
	return &CartValidator{inventory: inventory}
}

func (v *CartValidator) Validate(ctx context.Context, lines []models.CartLine) (*models.CartValidation, error) {
	if len(lines) == 0 {
		return nil, apperrors.EmptyCart()
	}
	valid, errs, err := checkLines(ctx, v.inventory, lines)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &models.CartValidation{
		Valid:          len(errs) == 0,
		Errors:         errs,
		ValidatedItems: valid,
	}, nil
}

// checkLines loads every referenced product and variant in one batch each
// and evaluates the lines. Order placement calls it inside its transaction.
func checkLines(ctx context.Context, inv repository.InventoryRepository, lines []models.CartLine) ([]models.ValidatedLine, []models.LineError, error) {
	productIDs := make([]uuid.UUID, 0, len(lines))
	variantIDs := make([]uuid.UUID, 0)
	seenP := make(map[uuid.UUID]bool, len(lines))
	seenV := make(map[uuid.UUID]bool)
	for _, l := range lines {
		if !seenP[l.ProductID] {
			seenP[l.ProductID] = true
			productIDs = append(productIDs, l.ProductID)
		}
		if l.VariantID != nil && !seenV[*l.VariantID] {
			seenV[*l.VariantID] = true
			variantIDs = append(variantIDs, *l.VariantID)
		}
	}

	products, err := inv.LoadProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	variants, err := inv.LoadVariants(ctx, variantIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load variants: %w", err)
	}

	valid, errs := evaluateLines(lines, products, variants)
	return valid, errs, nil
}

// evaluateLines applies the per-line rules, then checks stock with the
// quantities of lines sharing a stock target summed.
func evaluateLines(lines []models.CartLine, products map[uuid.UUID]*models.Product, variants map[uuid.UUID]*models.ProductVariant) ([]models.ValidatedLine, []models.LineError) {
	var errs []models.LineError
	candidates := make([]models.ValidatedLine, 0, len(lines))
	requested := make(map[models.StockTarget]int)

	for i, l := range lines {
		lineErr := func(code, msg string) models.LineError {
			return models.LineError{Index: i, ProductID: l.ProductID, VariantID: l.VariantID, Code: code, Message: msg}
		}

		if l.Quantity <= 0 {
			errs = append(errs, lineErr(models.LineErrInvalidQuantity, "quantity must be greater than zero"))
			continue
		}
		p, ok := products[l.ProductID]
		if !ok {
			errs = append(errs, lineErr(models.LineErrNotFound, "product not found"))
			continue
		}
		if !p.Orderable() {
			errs = append(errs, lineErr(models.LineErrUnavailable, fmt.Sprintf("%s is not available", p.Name)))
			continue
		}
		if l.VariantID == nil && p.HasVariants() {
			errs = append(errs, lineErr(models.LineErrVariantNotFound, fmt.Sprintf("choose a variant of %s", p.Name)))
			continue
		}

		vl := models.ValidatedLine{
			Index:          i,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       l.Quantity,
			UnitPrice:      p.Price,
			AvailableStock: p.StockQuantity,
			Target:         models.ProductStock(p.ID),
		}

		if l.VariantID != nil {
			v, ok := variants[*l.VariantID]
			if !ok || v.ProductID != p.ID {
				errs = append(errs, lineErr(models.LineErrVariantNotFound, "variant not found"))
				continue
			}
			if !v.Orderable() {
				errs = append(errs, lineErr(models.LineErrVariantUnavailable, fmt.Sprintf("%s (%s) is not available", p.Name, v.Name)))
				continue
			}
			name := v.Name
			vid := v.ID
			vl.VariantID = &vid
			vl.VariantName = &name
			vl.UnitPrice = v.Price
			vl.AvailableStock = v.StockQuantity
			vl.Target = models.VariantStock(v.ID)
		}

		vl.Subtotal = vl.UnitPrice.Mul(decimal.NewFromInt(int64(vl.Quantity)))
		requested[vl.Target] += vl.Quantity
		candidates = append(candidates, vl)
	}

	valid := make([]models.ValidatedLine, 0, len(candidates))
	for _, vl := range candidates {
		want := requested[vl.Target]
		if want > vl.AvailableStock {
			available := vl.AvailableStock
			errs = append(errs, models.LineError{
				Index:     vl.Index,
				ProductID: vl.ProductID,
				VariantID: vl.VariantID,
				Code:      models.LineErrInsufficientStock,
				Message:   fmt.Sprintf("only %d left of %s", available, vl.ProductName),
				Requested: want,
				Available: &available,
			})
			continue
		}
		valid = append(valid, vl)
	}

	sort.Slice(errs, func(a, b int) bool { return errs[a].Index < errs[b].Index })
	return valid, errs
}

// totalOf sums line subtotals.
func totalOf(lines []models.ValidatedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// stockDemand sums quantities per target in a stable order so concurrent
// orders lock rows in the same sequence.
func stockDemand(lines []models.ValidatedLine) ([]models.StockTarget, map[models.StockTarget]int) {
	demand := make(map[models.StockTarget]int, len(lines))
	targets := make([]models.StockTarget, 0, len(lines))
	for _, l := range lines {
		if _, ok := demand[l.Target]; !ok {
			targets = append(targets, l.Target)
		}
		demand[l.Target] += l.Quantity
	}
	sortTargets(targets)
	return targets, demand
}

// sortTargets orders targets so concurrent transactions lock stock rows in
// the same sequence.
func sortTargets(targets []models.StockTarget) {
	sort.Slice(targets, func(a, b int) bool {
		if targets[a].Kind != targets[b].Kind {
			return targets[a].Kind < targets[b].Kind
		}
		return targets[a].ID.String() < targets[b].ID.String()
	})
}

// onlyStockErrors reports whether every line error is a stock shortfall.
func onlyStockErrors(errs []models.LineError) bool {
	for _, e := range errs {
		if e.Code != models.LineErrInsufficientStock {
			return false
		}
	}
	return len(errs) > 0
}
