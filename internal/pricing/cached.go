package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/cache"
)

type cachedDiscount struct {
	Found    bool     `json:"found"`
	Discount Discount `json:"discount"`
}

type cachedPrice struct {
	Found bool  `json:"found"`
	Price Price `json:"price"`
}

// CachedSource decorates a Source with a TTL cache. Misses and hits are both
// cached; source errors are not. A failing cache falls through to the source.
type CachedSource struct {
	source Source
	cache  cache.System
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps source with c.
func NewCachedSource(source Source, c cache.System, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("system", "pricing-cache"),
	}
}

func (s *CachedSource) CustomerGroupDiscount(ctx context.Context, customerNumber, productGroup string) (Discount, bool, error) {
	key := "pricing:cgd:" + customerNumber + ":" + productGroup
	return s.discount(ctx, key, func() (Discount, bool, error) {
		return s.source.CustomerGroupDiscount(ctx, customerNumber, productGroup)
	})
}

func (s *CachedSource) GroupDiscount(ctx context.Context, customerGroup, productGroup string) (Discount, bool, error) {
	key := "pricing:gd:" + customerGroup + ":" + productGroup
	return s.discount(ctx, key, func() (Discount, bool, error) {
		return s.source.GroupDiscount(ctx, customerGroup, productGroup)
	})
}

func (s *CachedSource) NegotiatedPrice(ctx context.Context, customerNumber, productCode string) (Price, bool, error) {
	key := "pricing:np:" + customerNumber + ":" + productCode

	var entry cachedPrice
	if s.get(ctx, key, &entry) {
		return entry.Price, entry.Found, nil
	}

	p, found, err := s.source.NegotiatedPrice(ctx, customerNumber, productCode)
	if err != nil {
		return Price{}, false, err
	}
	s.set(ctx, key, cachedPrice{Found: found, Price: p})
	return p, found, nil
}

func (s *CachedSource) discount(ctx context.Context, key string, load func() (Discount, bool, error)) (Discount, bool, error) {
	var entry cachedDiscount
	if s.get(ctx, key, &entry) {
		return entry.Discount, entry.Found, nil
	}

	d, found, err := load()
	if err != nil {
		return Discount{}, false, err
	}
	s.set(ctx, key, cachedDiscount{Found: found, Discount: d})
	return d, found, nil
}

func (s *CachedSource) get(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *CachedSource) set(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
