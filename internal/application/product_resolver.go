package application

import (
	"context"
	"sync"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

// ProductFields is the projection requested from the product listing endpoint.
var ProductFields = []string{"_id", "name", "nameAr", "price", "originalPrice", "image", "images", "rating", "reviews", "discount", "badge"}

const (
	defaultFetchBatchSize   = 50
	defaultFetchParallelism = 4
)

// ProductResolver turns product IDs into product records, serving what it can from
// the ProductCache and fetching the rest from the catalog.
type ProductResolver struct {
	cache       *ProductCache
	catalog     domain.ProductCatalog
	logger      domain.Logger
	batchSize   int
	parallelism int
}

// NewProductResolver creates a new ProductResolver.
func NewProductResolver(cache *ProductCache, catalog domain.ProductCatalog, logger domain.Logger, batchSize, parallelism int) *ProductResolver {
	if cache == nil {
		panic("product cache is nil in NewProductResolver")
	}
	if catalog == nil {
		panic("product catalog is nil in NewProductResolver")
	}
	if logger == nil {
		panic("logger is nil in NewProductResolver")
	}
	if batchSize <= 0 {
		batchSize = defaultFetchBatchSize
	}
	if parallelism <= 0 {
		parallelism = defaultFetchParallelism
	}
	return &ProductResolver{
		cache:       cache,
		catalog:     catalog,
		logger:      logger,
		batchSize:   batchSize,
		parallelism: parallelism,
	}
}

// Resolve returns the products for ids in request order. IDs that are neither cached
// nor returned by the catalog are left out; a failed batch only loses its own IDs.
func (r *ProductResolver) Resolve(ctx context.Context, ids []string) []domain.CachedProduct {
	hits, missing := r.cache.GetCachedProducts(ids)

	if len(missing) > 0 {
		fetched := r.fetch(ctx, missing)
		r.cache.CacheProducts(ctx, fetched)
		for _, p := range fetched {
			hits[p.ID] = p
		}
	}

	out := make([]domain.CachedProduct, 0, len(hits))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		p, ok := hits[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (r *ProductResolver) fetch(ctx context.Context, ids []string) []domain.CachedProduct {
	var (
		mu      sync.Mutex
		fetched []domain.CachedProduct
		g       errgroup.Group
	)
	g.SetLimit(r.parallelism)

	for start := 0; start < len(ids); start += r.batchSize {
		batch := ids[start:min(start+r.batchSize, len(ids))]
		g.Go(func() error {
			safego.Run(ctx, r.logger, "ProductBatchFetch", func() {
				raw, err := r.catalog.ListProductsByIDs(ctx, batch, ProductFields)
				if err != nil {
					r.logger.Warn(ctx, "Product batch fetch failed", "batch_size", len(batch), "error", err.Error())
					metrics.IncrementProductFetchFailure()
					return
				}
				normalized := make([]domain.CachedProduct, 0, len(raw))
				for _, rp := range raw {
					if p, ok := NormalizeProduct(rp); ok {
						normalized = append(normalized, p)
					}
				}
				mu.Lock()
				fetched = append(fetched, normalized...)
				mu.Unlock()
			})
			return nil
		})
	}
	_ = g.Wait() // batches never return errors
	return fetched
}

// NormalizeProduct maps a raw listing record onto a CachedProduct. It reports false
// when the record carries no usable ID.
func NormalizeProduct(raw domain.RawProduct) (domain.CachedProduct, bool) {
	id := cast.ToString(raw.MongoID)
	if id == "" {
		id = cast.ToString(raw.ID)
	}
	if id == "" {
		return domain.CachedProduct{}, false
	}

	name, nameAr := raw.Name, raw.NameAr
	if name == "" {
		name = nameAr
	}
	if nameAr == "" {
		nameAr = name
	}

	image := raw.Image
	if image == "" && len(raw.Images) > 0 {
		image = raw.Images[0]
	}

	return domain.CachedProduct{
		ID:            id,
		Name:          name,
		NameAr:        nameAr,
		Price:         cast.ToFloat64(raw.Price),
		OriginalPrice: optionalFloat(raw.OriginalPrice),
		Image:         image,
		Rating:        cast.ToFloat64(raw.Rating),
		Reviews:       cast.ToInt(raw.Reviews),
		Discount:      optionalFloat(raw.Discount),
		Badge:         raw.Badge,
	}, true
}

func optionalFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}
