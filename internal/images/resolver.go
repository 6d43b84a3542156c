package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// CatalogClient is the upstream surface the resolver needs.
type CatalogClient interface {
	ListProductsByIDs(ctx context.Context, ids []shopify.ID) ([]shopify.Product, error)
	GetProduct(ctx context.Context, id shopify.ID) (*shopify.Product, error)
	AbsolutizeImageURL(src string) string
	Throttle(ctx context.Context) error
}

// Resolver maps product and variant identifiers to catalog image URLs.
// Lookups are batched and failures are tolerated per batch, so the result
// is always the best-effort partial map.
type Resolver struct {
	client     CatalogClient
	logg       *logger.Logger
	batchSize  int
	refetchCap int
}

// ResolverParams carries the dependencies for NewResolver.
type ResolverParams struct {
	Client     CatalogClient
	Logger     *logger.Logger
	BatchSize  int
	RefetchCap int
}

// NewResolver validates dependencies and builds a Resolver.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 || batch > shopify.MaxProductBatchSize {
		batch = shopify.MaxProductBatchSize
	}
	refetch := params.RefetchCap
	if refetch < 0 {
		refetch = 0
	}
	return &Resolver{
		client:     params.Client,
		logg:       params.Logger,
		batchSize:  batch,
		refetchCap: refetch,
	}, nil
}

// Resolve fetches one image URL per product and variant identifier. Variants
// are resolved through their owning product's payload and inherit its image
// unless they carry a distinct one. Identifiers the upstream could not serve
// are absent from the map; only an auth failure aborts the pass.
func (r *Resolver) Resolve(ctx context.Context, productIDs, variantIDs []shopify.ID) (map[shopify.ID]string, error) {
	result := make(map[shopify.ID]string)

	wanted := dedupeIDs(productIDs)
	wantedVariants := dedupeIDs(variantIDs)

	for start := 0; start < len(wanted); start += r.batchSize {
		end := start + r.batchSize
		if end > len(wanted) {
			end = len(wanted)
		}
		batch := wanted[start:end]

		if start > 0 {
			if err := r.client.Throttle(ctx); err != nil {
				return result, err
			}
		}

		products, err := r.client.ListProductsByIDs(ctx, batch)
		if err != nil {
			if shopify.IsAuthError(err) {
				return result, err
			}
			warnCtx := r.logg.WithFields(ctx, map[string]any{"batch_size": len(batch), "error": err.Error()})
			r.logg.Warn(warnCtx, "product image batch failed, continuing")
			continue
		}
		r.collectProducts(result, products)
	}

	r.refetchMissing(ctx, result, wanted)

	if missing := countMissing(result, wantedVariants); missing > 0 {
		r.logg.Info(r.logg.WithField(ctx, "unresolved_variants", missing), "variant images not present in any product payload")
	}

	return result, nil
}

// refetchMissing retries still-unresolved products one at a time, up to the
// configured cap. Transient batch failures are usually recoverable here.
func (r *Resolver) refetchMissing(ctx context.Context, result map[shopify.ID]string, wanted []shopify.ID) {
	fetched := 0
	for _, id := range wanted {
		if _, ok := result[id]; ok {
			continue
		}
		if fetched >= r.refetchCap {
			r.logg.Warn(r.logg.WithField(ctx, "refetch_cap", r.refetchCap), "image re-fetch cap reached, remaining ids unresolved")
			return
		}
		fetched++

		if err := r.client.Throttle(ctx); err != nil {
			return
		}
		product, err := r.client.GetProduct(ctx, id)
		if err != nil {
			if shopify.IsAuthError(err) {
				return
			}
			warnCtx := r.logg.WithFields(ctx, map[string]any{"product_id": id.String(), "error": err.Error()})
			r.logg.Warn(warnCtx, "individual image fetch failed")
			continue
		}
		r.collectProducts(result, []shopify.Product{*product})
	}
}

func (r *Resolver) collectProducts(result map[shopify.ID]string, products []shopify.Product) {
	for _, product := range products {
		src := pickProductImage(product)
		if src == "" {
			continue
		}
		result[shopify.NormalizeID(product.ID)] = r.client.AbsolutizeImageURL(src)

		for _, variant := range product.Variants {
			if variant.ID.Empty() {
				continue
			}
			variantSrc := variantImage(product, variant)
			if variantSrc == "" {
				variantSrc = src
			}
			result[shopify.NormalizeID(variant.ID)] = r.client.AbsolutizeImageURL(variantSrc)
		}
	}
}

// pickProductImage prefers the first non-placeholder image, falling back to
// the first image of any kind.
func pickProductImage(product shopify.Product) string {
	for _, img := range product.Images {
		if img.Src != "" && !isPlaceholder(img.Src) {
			return img.Src
		}
	}
	for _, img := range product.Images {
		if img.Src != "" {
			return img.Src
		}
	}
	return ""
}

// variantImage returns the variant's own image src when it references one.
func variantImage(product shopify.Product, variant shopify.Variant) string {
	if variant.ImageID.Empty() {
		return ""
	}
	for _, img := range product.Images {
		if shopify.NormalizeID(img.ID) == shopify.NormalizeID(variant.ImageID) && img.Src != "" {
			return img.Src
		}
	}
	return ""
}

func isPlaceholder(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, "placeholder") || strings.Contains(lower, "no-image")
}

func dedupeIDs(ids []shopify.ID) []shopify.ID {
	seen := make(map[shopify.ID]struct{}, len(ids))
	out := make([]shopify.ID, 0, len(ids))
	for _, id := range ids {
		canonical := shopify.NormalizeID(id)
		if canonical.Empty() {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

func countMissing(result map[shopify.ID]string, ids []shopify.ID) int {
	missing := 0
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			missing++
		}
	}
	return missing
}
