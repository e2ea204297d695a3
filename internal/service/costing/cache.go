package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/internal/repository"
	"github.com/saqreed/super-sto-sub000/pkg/metrics"
)

// CachingResolver fronts the catalog with a short-lived price cache so
// a multi-part report does not hammer the catalog for repeated parts.
// Unknown products are not cached; the catalog may gain them at any time.
type CachingResolver struct {
	catalog repository.CatalogRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewCachingResolver(catalog repository.CatalogRepository, ttl time.Duration, m *metrics.Metrics) *CachingResolver {
	return &CachingResolver{
		catalog: catalog,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (r *CachingResolver) ResolvePrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error) {
	key := productID.String()
	if cached, ok := r.cache.Get(key); ok {
		if r.metrics != nil {
			r.metrics.PriceCacheHits.Inc()
		}
		return cached.(*model.ProductPrice), nil
	}
	if r.metrics != nil {
		r.metrics.PriceCacheMiss.Inc()
	}

	price, err := r.catalog.GetProductPrice(ctx, productID)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, price, gocache.DefaultExpiration)
	return price, nil
}

// Invalidate drops a cached price, e.g. after a catalog change event.
func (r *CachingResolver) Invalidate(productID uuid.UUID) {
	r.cache.Delete(productID.String())
}

var _ PriceResolver = (*CachingResolver)(nil)
