package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key namespaces. Invalidation works on whole namespaces.
const (
	NSCategories = "categories:"
	NSProducts   = "products:"
	NSResponses  = "responses:"
)

// Cache is an advisory byte cache. Callers must treat every error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidateByPrefix(ctx context.Context, prefix string) error
}

func CategoriesKey() string { return NSCategories + "all" }

func CategoryKey(id uuid.UUID) string { return NSCategories + "id:" + id.String() }

func ProductKey(id uuid.UUID) string { return NSProducts + "id:" + id.String() }

// CategoryProductsKey lives under products: because product writes change it.
func CategoryProductsKey(categoryID uuid.UUID, page, limit int) string {
	return fmt.Sprintf("%scategory:%s:p:%d:l:%d", NSProducts, categoryID, page, limit)
}

func ResponseKey(url string) string { return NSResponses + url }

// Remember returns the cached value under key, or calls load and caches its
// result. Cache failures fall through to load.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = c.Set(ctx, key, raw, ttl)
	}
	return v, nil
}
