package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"storefront-service/cache"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for Postgres. Single statements are
// atomic; a failed transaction is undone from a per-transaction undo log.
type memStore struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*models.Category
	products   map[uuid.UUID]*models.Product
	variants   map[uuid.UUID]*models.ProductVariant
	orders     map[uuid.UUID]*models.Order
	history    []models.OrderStatusHistory

	failDecrement map[models.StockTarget]bool
	catalogReads  int
}

func newMemStore() *memStore {
	return &memStore{
		categories:    make(map[uuid.UUID]*models.Category),
		products:      make(map[uuid.UUID]*models.Product),
		variants:      make(map[uuid.UUID]*models.ProductVariant),
		orders:        make(map[uuid.UUID]*models.Order),
		failDecrement: make(map[models.StockTarget]bool),
	}
}

type memTx struct {
	undo []func()
}

type memTxKey struct{}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx)
	}
	tx := &memTx{}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// record registers an undo step. Callers hold s.mu.
func (s *memStore) record(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *memStore) addCategory(name string) *models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &models.Category{ID: uuid.New(), Name: name, Slug: name}
	s.categories[c.ID] = c
	return c
}

func (s *memStore) addProduct(name, price string, stock int) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   true,
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addVariant(productID uuid.UUID, name, price string, stock int) *models.ProductVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     productID,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   true,
	}
	s.variants[v.ID] = v
	return v
}

func (s *memStore) productStock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

func (s *memStore) variantStock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variants[id].StockQuantity
}

func (s *memStore) historyFor(orderID uuid.UUID) []models.OrderStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderStatusHistory
	for _, h := range s.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// --- InventoryRepository ---

func (s *memStore) LoadProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			cp.Variants = nil
			for _, v := range s.variants {
				if v.ProductID == id && !v.IsDeleted {
					cp.Variants = append(cp.Variants, *v)
				}
			}
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) LoadVariants(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*models.ProductVariant)
	for _, id := range ids {
		if v, ok := s.variants[id]; ok {
			cp := *v
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) stockRef(t models.StockTarget) (*int, bool) {
	switch t.Kind {
	case models.StockKindProduct:
		if p, ok := s.products[t.ID]; ok {
			return &p.StockQuantity, p.IsDeleted
		}
	case models.StockKindVariant:
		if v, ok := s.variants[t.ID]; ok {
			return &v.StockQuantity, v.IsDeleted
		}
	}
	return nil, false
}

func (s *memStore) Decrement(ctx context.Context, t models.StockTarget, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, _ := s.stockRef(t)
	if ref == nil || *ref < qty || s.failDecrement[t] {
		return repository.ErrInsufficientStock
	}
	*ref -= qty
	s.record(ctx, func() { *ref += qty })
	return nil
}

func (s *memStore) Restore(ctx context.Context, t models.StockTarget, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, deleted := s.stockRef(t)
	if ref == nil || deleted {
		return false, nil
	}
	*ref += qty
	s.record(ctx, func() { *ref -= qty })
	return true, nil
}

func (s *memStore) SetStock(ctx context.Context, t models.StockTarget, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, deleted := s.stockRef(t)
	if ref == nil || deleted {
		return repository.ErrNotFound
	}
	prev := *ref
	*ref = qty
	s.record(ctx, func() { *ref = prev })
	return nil
}

// --- OrderRepository ---

func (s *memStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	cp.History = nil
	s.orders[cp.ID] = &cp
	id := cp.ID
	s.record(ctx, func() { delete(s.orders, id) })
	return nil
}

func (s *memStore) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	s.history = append(s.history, *entry)
	id := entry.ID
	s.record(ctx, func() {
		for i, h := range s.history {
			if h.ID == id {
				s.history = append(s.history[:i], s.history[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := o.Status
	o.Status = status
	s.record(ctx, func() { o.Status = prev })
	return nil
}

func (s *memStore) copyOrder(o *models.Order, withHistory bool) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	cp.History = nil
	if withHistory {
		for _, h := range s.history {
			if h.OrderID == o.ID {
				cp.History = append(cp.History, h)
			}
		}
	}
	return &cp
}

func (s *memStore) findBy(match func(*models.Order) bool, withHistory bool) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if match(o) {
			return s.copyOrder(o, withHistory), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return s.findBy(func(o *models.Order) bool { return o.ID == id }, true)
}

func (s *memStore) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	return s.findBy(func(o *models.Order) bool { return o.OrderNumber == number }, true)
}

func (s *memStore) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return s.findBy(func(o *models.Order) bool { return o.ID == id }, false)
}

func (s *memStore) FindByNumberForUpdate(_ context.Context, number string) (*models.Order, error) {
	return s.findBy(func(o *models.Order) bool { return o.OrderNumber == number }, false)
}

func (s *memStore) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *f.CustomerID) {
			continue
		}
		all = append(all, *s.copyOrder(o, false))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memStore) History(_ context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	return s.historyFor(orderID), nil
}

// --- CatalogRepository ---

func (s *memStore) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogReads++
	var out []models.Category
	for _, c := range s.categories {
		if !c.IsDeleted {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) FindCategory(_ context.Context, id uuid.UUID) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogReads++
	c, ok := s.categories[id]
	if !ok || c.IsDeleted {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) CreateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Slug == c.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	c.ID = uuid.New()
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *memStore) SoftDeleteCategory(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.IsDeleted {
		return repository.ErrNotFound
	}
	c.IsDeleted = true
	return nil
}

func (s *memStore) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogReads++
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Variants = nil
	for _, v := range s.variants {
		if v.ProductID == id && !v.IsDeleted {
			cp.Variants = append(cp.Variants, *v)
		}
	}
	return &cp, nil
}

func (s *memStore) ListProductsByCategory(_ context.Context, categoryID uuid.UUID, _, _ int) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogReads++
	var out []models.Product
	for _, p := range s.products {
		if p.CategoryID == categoryID && !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memStore) UpdateProduct(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return repository.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			p.Name = v.(string)
		case "price":
			p.Price = v.(decimal.Decimal)
		case "is_available":
			p.IsAvailable = v.(bool)
		case "description":
			p.Description = v.(string)
		case "category_id":
			p.CategoryID = v.(uuid.UUID)
		}
	}
	return nil
}

func (s *memStore) SoftDeleteProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return repository.ErrNotFound
	}
	p.IsDeleted = true
	return nil
}

func (s *memStore) FindVariant(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok || v.IsDeleted {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *memStore) CreateVariant(_ context.Context, v *models.ProductVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = uuid.New()
	cp := *v
	s.variants[v.ID] = &cp
	return nil
}

func (s *memStore) UpdateVariant(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok || v.IsDeleted {
		return repository.ErrNotFound
	}
	for k, val := range updates {
		switch k {
		case "name":
			v.Name = val.(string)
		case "price":
			v.Price = val.(decimal.Decimal)
		case "is_available":
			v.IsAvailable = val.(bool)
		}
	}
	return nil
}

func (s *memStore) SoftDeleteVariant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok || v.IsDeleted {
		return repository.ErrNotFound
	}
	v.IsDeleted = true
	return nil
}

// --- side-effect recorders ---

type notifyCall struct {
	kind  string
	order string
	from  models.OrderStatus
	to    models.OrderStatus
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{kind: "placed", order: o.OrderNumber, to: o.Status})
}

func (n *recordingNotifier) StatusChanged(_ context.Context, o *models.Order, from models.OrderStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{kind: "status", order: o.OrderNumber, from: from, to: o.Status})
}

func (n *recordingNotifier) snapshot() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (e *recordingEvents) Publish(_ context.Context, ev models.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEvents) snapshot() []models.OrderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.OrderEvent(nil), e.events...)
}

type fixture struct {
	store    *memStore
	cache    *cache.MemoryCache
	notifier *recordingNotifier
	events   *recordingEvents
	orders   *OrderService
	status   *OrderStatusService
	catalog  *CatalogService
	cart     *CartValidator
}

func newFixture(t *testing.T, policy TransitionPolicy) *fixture {
	t.Helper()
	store := newMemStore()
	c := cache.NewMemoryCache()
	logger := zap.NewNop()
	f := &fixture{
		store:    store,
		cache:    c,
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
	}
	deps := OrderDeps{
		Tx:          store,
		Inventory:   store,
		Orders:      store,
		Invalidator: cache.NewInvalidator(c, logger),
		Notifier:    f.notifier,
		Events:      f.events,
		Metrics:     aws_pkg.NopMetrics{},
		Logger:      logger,
	}
	f.orders = NewOrderService(deps, NewOrderNumberGenerator("HW"), 5)
	f.status = NewOrderStatusService(deps, policy)
	f.catalog = NewCatalogService(store, store, c, deps.Invalidator, time.Minute, logger)
	f.cart = NewCartValidator(store)
	return f
}

func checkoutInput(lines ...models.CartLine) models.CreateOrderInput {
	return models.CreateOrderInput{
		CustomerName: "Maria Santos",
		Phone:        "0917 123 4567",
		Address:      "12 Mabini St",
		Barangay:     "Poblacion",
		Items:        lines,
	}
}

func line(productID uuid.UUID, qty int) models.CartLine {
	return models.CartLine{ProductID: productID, Quantity: qty}
}

func variantLine(productID, variantID uuid.UUID, qty int) models.CartLine {
	return models.CartLine{ProductID: productID, VariantID: &variantID, Quantity: qty}
}
