package cache

import (
	"context"

	"go.uber.org/zap"
)

// Invalidator clears namespaces after writes. Failures are logged and
// swallowed; the write has already committed.
type Invalidator struct {
	cache  Cache
	logger *zap.Logger
	onFail func(ctx context.Context, prefix string, err error)
}

func NewInvalidator(c Cache, logger *zap.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// OnFailure registers a hook called for every failed prefix, e.g. a metric.
func (i *Invalidator) OnFailure(fn func(ctx context.Context, prefix string, err error)) {
	i.onFail = fn
}

// Invalidate clears every prefix before returning.
func (i *Invalidator) Invalidate(ctx context.Context, prefixes ...string) {
	for _, p := range prefixes {
		if err := i.cache.InvalidateByPrefix(ctx, p); err != nil {
			i.logger.Error("cache invalidation failed", zap.String("prefix", p), zap.Error(err))
			if i.onFail != nil {
				i.onFail(ctx, p, err)
			}
		}
	}
}

// Catalog clears everything that can show catalog or stock data.
func (i *Invalidator) Catalog(ctx context.Context) {
	i.Invalidate(ctx, NSProducts, NSCategories, NSResponses)
}

// Products clears product and response entries.
func (i *Invalidator) Products(ctx context.Context) {
	i.Invalidate(ctx, NSProducts, NSResponses)
}
