package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_DecrementsStockAndWritesInitialHistory(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Claw Hammer", "349.50", 10)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.ProductKey(p.ID), []byte(`{}`), time.Minute))

	order, err := f.orders.CreateOrder(ctx, checkoutInput(line(p.ID, 3)), Actor{})
	require.NoError(t, err)

	assert.Equal(t, 7, f.store.productStock(p.ID))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("1048.50")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Claw Hammer", order.Items[0].ProductName)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("349.50")))

	history := f.store.historyFor(order.ID)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, models.OrderStatusPending, history[0].ToStatus)

	_, cached, _ := f.cache.Get(ctx, cache.ProductKey(p.ID))
	assert.False(t, cached, "product cache must be cleared before CreateOrder returns")

	calls := f.notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "placed", calls[0].kind)
	events := f.events.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOrderCreated, events[0].EventType)
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)

	order, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^HW-\d{8}-\d{4}$`), order.OrderNumber)
}

func TestCreateOrder_OversellRejected(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Drill Bit", "80", 2)

	_, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 3)), Actor{})

	require.Error(t, err)
	appErr := apperrors.As(err)
	assert.Equal(t, apperrors.KindInsufficientStock, appErr.Kind)
	lines, ok := appErr.Details.([]models.LineError)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Requested)
	assert.Equal(t, 2, *lines[0].Available)

	assert.Equal(t, 2, f.store.productStock(p.ID))
	assert.Equal(t, 0, f.store.orderCount())
	assert.Empty(t, f.store.history)
	assert.Empty(t, f.notifier.snapshot())
}

func TestCreateOrder_AllOrNothingOnInvalidLine(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Paint Brush", "60", 5)

	_, err := f.orders.CreateOrder(context.Background(),
		checkoutInput(line(p.ID, 1), line(uuid.New(), 1)), Actor{})

	appErr := apperrors.As(err)
	assert.Equal(t, apperrors.KindCartInvalid, appErr.Kind)
	lines := appErr.Details.([]models.LineError)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Index)
	assert.Equal(t, models.LineErrNotFound, lines[0].Code)
	assert.Equal(t, 5, f.store.productStock(p.ID))
	assert.Equal(t, 0, f.store.orderCount())
}

func TestCreateOrder_RollsBackEarlierDecrements(t *testing.T) {
	f := newFixture(t, nil)
	a := f.store.addProduct("Screws", "2", 10)
	b := f.store.addProduct("Anchors", "3", 10)
	f.store.failDecrement[models.ProductStock(b.ID)] = true

	_, err := f.orders.CreateOrder(context.Background(),
		checkoutInput(line(a.ID, 4), line(b.ID, 4)), Actor{})

	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientStock))
	assert.Equal(t, 10, f.store.productStock(a.ID))
	assert.Equal(t, 10, f.store.productStock(b.ID))
	assert.Equal(t, 0, f.store.orderCount())
	assert.Empty(t, f.store.history)
}

func TestCreateOrder_SameTargetQuantitiesSummed(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Sandpaper", "10", 5)

	_, err := f.orders.CreateOrder(context.Background(),
		checkoutInput(line(p.ID, 3), line(p.ID, 3)), Actor{})

	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientStock))
	assert.Equal(t, 5, f.store.productStock(p.ID))
}

func TestCreateOrder_VariantStock(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Latex Paint", "500", 100)
	v := f.store.addVariant(p.ID, "1 Gallon, White", "650", 4)

	order, err := f.orders.CreateOrder(context.Background(),
		checkoutInput(variantLine(p.ID, v.ID, 2)), Actor{})
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.variantStock(v.ID))
	assert.Equal(t, 100, f.store.productStock(p.ID))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "1 Gallon, White", *order.Items[0].VariantName)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1300)))
}

func TestCreateOrder_ProductWithVariantsNeedsVariant(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Latex Paint", "500", 100)
	v := f.store.addVariant(p.ID, "1 Gallon, White", "650", 4)

	_, err := f.orders.CreateOrder(context.Background(),
		checkoutInput(line(p.ID, 1), variantLine(p.ID, v.ID, 1)), Actor{})

	require.True(t, apperrors.IsKind(err, apperrors.KindCartInvalid))
	lines := apperrors.As(err).Details.([]models.LineError)
	require.Len(t, lines, 1)
	assert.Equal(t, 0, lines[0].Index)
	assert.Equal(t, models.LineErrVariantNotFound, lines[0].Code)
	assert.Equal(t, 100, f.store.productStock(p.ID))
	assert.Equal(t, 4, f.store.variantStock(v.ID))
	assert.Zero(t, f.store.orderCount())
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orders.CreateOrder(context.Background(), checkoutInput(), Actor{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindEmptyCart))
}

func TestCreateOrder_ValidationListsFields(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)
	in := checkoutInput(line(p.ID, 1))
	in.CustomerName = "  "
	in.Barangay = ""

	_, err := f.orders.CreateOrder(context.Background(), in, Actor{})

	appErr := apperrors.As(err)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	fields := appErr.Details.(map[string]string)
	assert.Equal(t, "required", fields["customer_name"])
	assert.Equal(t, "required", fields["barangay"])
	assert.Equal(t, 5, f.store.productStock(p.ID))
}

func TestCreateOrder_LinksAuthenticatedCustomer(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)
	customer := uuid.New()

	order, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)),
		Actor{ID: &customer, Role: RoleCustomer})
	require.NoError(t, err)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, customer, *order.CustomerID)

	list, err := f.orders.ListCustomerOrders(context.Background(), customer, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
	assert.Equal(t, int64(1), list.Meta.Total)
}

func TestCreateOrder_RetriesOnOrderNumberCollision(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)

	suffixes := []int{42, 42, 43}
	f.orders.numbers.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	f.orders.numbers.suffix = func() int {
		n := suffixes[0]
		suffixes = suffixes[1:]
		return n
	}

	first, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)

	assert.Equal(t, "HW-20240501-0042", first.OrderNumber)
	assert.Equal(t, "HW-20240501-0043", second.OrderNumber)
	assert.Equal(t, 3, f.store.productStock(p.ID))
	assert.Len(t, f.store.history, 2)
}

func TestCreateOrder_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)
	f.orders.numbers.suffix = func() int { return 7 }

	_, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})

	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
	assert.Equal(t, 4, f.store.productStock(p.ID))
}

func TestCreateOrder_TotalIgnoresLaterPriceChanges(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Level", "199.99", 10)
	q := f.store.addProduct("Square", "150", 10)
	v := f.store.addVariant(q.ID, "24 inch", "299.99", 10)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, checkoutInput(line(p.ID, 2), variantLine(q.ID, v.ID, 1)), Actor{})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(999)
	_, err = f.catalog.UpdateProduct(ctx, p.ID, models.UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range got.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	assert.True(t, got.TotalAmount.Equal(sum))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("699.97")))
}

func TestCreateOrder_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Last Wrench", "500", 1)

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsKind(err, apperrors.KindInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, f.store.productStock(p.ID))
	assert.Equal(t, 1, f.store.orderCount())
}

func TestCreateOrder_StockNeverNegativeUnderLoad(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Gloves", "35", 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orders.CreateOrder(context.Background(), checkoutInput(line(p.ID, 1)), Actor{}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, f.store.productStock(p.ID))
}

func TestTrackOrder_HidesContactDetails(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 5)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)

	tracking, err := f.orders.TrackOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, tracking.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, tracking.Status)
	assert.Len(t, tracking.History, 1)

	_, err = f.orders.TrackOrder(ctx, "HW-00000000-0000")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListOrders_FiltersByStatus(t *testing.T) {
	f := newFixture(t, nil)
	p := f.store.addProduct("Tape", "45", 10)
	ctx := context.Background()
	first, err := f.orders.CreateOrder(ctx, checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, checkoutInput(line(p.ID, 1)), Actor{})
	require.NoError(t, err)
	_, err = f.status.SetStatus(ctx, first.ID, "accepted", Actor{}, nil)
	require.NoError(t, err)

	list, err := f.orders.ListOrders(ctx, models.OrderFilter{Status: models.OrderStatusAccepted})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, first.ID, list.Orders[0].ID)
	assert.Equal(t, 20, list.Meta.Limit)
	assert.False(t, list.Meta.HasMore)
}
