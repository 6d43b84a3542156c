package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/shopdesk/shopdesk-backend/internal/orders"
	"github.com/shopdesk/shopdesk-backend/pkg/config"
	"github.com/shopdesk/shopdesk-backend/pkg/dedup"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/metrics"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// Driver labels identify what kicked off a sync run.
const (
	DriverPoll    = "poll"
	DriverManual  = "manual"
	DriverResync  = "resync"
	DriverWebhook = "webhook"
)

// Storefront is the slice of the Shopify client the sync drivers consume.
type Storefront interface {
	ListOrders(ctx context.Context, params shopify.OrderPageParams) (*shopify.OrderPage, error)
	GetOrder(ctx context.Context, orderID shopify.ID) (*shopify.Order, error)
	AbsolutizeImageURL(src string) string
	Throttle(ctx context.Context) error
}

// ImageResolver maps product and variant ids to image URLs.
type ImageResolver interface {
	Resolve(ctx context.Context, productIDs, variantIDs []shopify.ID) (map[shopify.ID]string, error)
}

// Upserter persists one normalized order.
type Upserter interface {
	Upsert(ctx context.Context, normalized orders.NormalizedOrder) (orders.UpsertOutcome, error)
}

// OrderIndex lists the Shopify order ids already known locally.
type OrderIndex interface {
	ListShopifyOrderIDs(ctx context.Context) ([]shopify.ID, error)
}

// OrderError reports one order that failed during a run.
type OrderError struct {
	OrderCode      string `json:"order_code,omitempty"`
	ShopifyOrderID string `json:"shopify_order_id,omitempty"`
	Message        string `json:"message"`
}

// RunSummary is the outcome of one sync run.
type RunSummary struct {
	Success  bool         `json:"success"`
	Imported int          `json:"imported"`
	Updated  int          `json:"updated"`
	Errors   []OrderError `json:"errors,omitempty"`
	Total    int          `json:"total"`
}

// Runner walks the upstream order listing and funnels every order through
// normalization and upsert. A single bad order never aborts the run; an
// authentication failure always does.
type Runner struct {
	client   Storefront
	resolver ImageResolver
	upserter Upserter
	index    OrderIndex
	seen     dedup.Store
	metrics  *metrics.SyncMetrics
	logg     *logger.Logger
	cfg      config.SyncConfig
}

// RunnerParams carries the dependencies for NewRunner.
type RunnerParams struct {
	Client   Storefront
	Resolver ImageResolver
	Upserter Upserter
	Index    OrderIndex
	Seen     dedup.Store
	Metrics  *metrics.SyncMetrics
	Logger   *logger.Logger
	Config   config.SyncConfig
}

// NewRunner validates dependencies and builds a Runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("image resolver required")
	}
	if params.Upserter == nil {
		return nil, fmt.Errorf("order upserter required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("order index required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	seen := params.Seen
	if seen == nil {
		seen = dedup.NewBounded(0)
	}
	return &Runner{
		client:   params.Client,
		resolver: params.Resolver,
		upserter: params.Upserter,
		index:    params.Index,
		seen:     seen,
		metrics:  params.Metrics,
		logg:     params.Logger,
		cfg:      params.Config,
	}, nil
}

// SyncAll pulls every page of upstream orders and upserts them locally.
// Returns the run summary; the error is non-nil only for run-fatal
// conditions such as revoked credentials.
func (r *Runner) SyncAll(ctx context.Context) (*RunSummary, error) {
	return r.run(ctx, DriverPoll)
}

func (r *Runner) run(ctx context.Context, driver string) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}
	defer r.record(driver, start, summary)

	var perOrder error
	sinceID := shopify.ID("")
	emptyPages := 0

	for {
		page, err := r.client.ListOrders(ctx, shopify.OrderPageParams{
			SinceID: sinceID,
			Limit:   r.cfg.PageLimit,
			Status:  "any",
		})
		if err != nil {
			summary.Success = false
			return summary, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list orders page")
		}

		if len(page.Orders) == 0 {
			emptyPages++
			if emptyPages >= r.cfg.MaxEmptyPages {
				break
			}
			continue
		}
		emptyPages = 0

		images, err := r.resolveImages(ctx, page.Orders)
		if err != nil {
			summary.Success = false
			return summary, err
		}

		for i := range page.Orders {
			raw := &page.Orders[i]
			if raw.ID.Int64() > sinceID.Int64() {
				sinceID = raw.ID
			}
			if r.seen.MarkSeen(seenKey(raw)) {
				continue
			}
			if err := r.processOrder(ctx, raw, images, summary); err != nil {
				if shopify.IsAuthError(err) {
					summary.Success = false
					return summary, err
				}
				perOrder = multierr.Append(perOrder, err)
			}
		}

		if len(page.Orders) < r.cfg.PageLimit {
			break
		}
		if err := r.client.Throttle(ctx); err != nil {
			summary.Success = false
			return summary, err
		}
	}

	summary.Success = len(summary.Errors) == 0
	if perOrder != nil {
		r.logg.Error(r.logg.WithField(ctx, "failed_orders", len(summary.Errors)),
			"sync run completed with order errors", perOrder)
	}
	return summary, nil
}

// SyncOne pulls a single upstream order by id and upserts it.
func (r *Runner) SyncOne(ctx context.Context, orderID shopify.ID) (*RunSummary, error) {
	if orderID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shopify order id required")
	}

	start := time.Now()
	summary := &RunSummary{}
	defer r.record(DriverManual, start, summary)

	raw, err := r.client.GetOrder(ctx, orderID)
	if err != nil {
		summary.Success = false
		return summary, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch order")
	}

	images, err := r.resolveImages(ctx, []shopify.Order{*raw})
	if err != nil {
		summary.Success = false
		return summary, err
	}

	if err := r.processOrder(ctx, raw, images, summary); err != nil {
		summary.Success = false
		return summary, err
	}
	summary.Success = true
	return summary, nil
}

// ResyncAll refreshes every locally known Shopify order one by one, pacing
// the upstream calls by the configured delay.
func (r *Runner) ResyncAll(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}
	defer r.record(DriverResync, start, summary)

	ids, err := r.index.ListShopifyOrderIDs(ctx)
	if err != nil {
		summary.Success = false
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list known order ids")
	}

	var perOrder error
	for i, id := range ids {
		if i > 0 && r.cfg.ResyncDelay > 0 {
			if err := sleep(ctx, r.cfg.ResyncDelay); err != nil {
				summary.Success = false
				return summary, err
			}
		}

		raw, err := r.client.GetOrder(ctx, id)
		if err != nil {
			if shopify.IsAuthError(err) {
				summary.Success = false
				return summary, err
			}
			summary.Total++
			summary.Errors = append(summary.Errors, OrderError{
				ShopifyOrderID: id.String(),
				Message:        err.Error(),
			})
			perOrder = multierr.Append(perOrder, err)
			continue
		}

		images, err := r.resolveImages(ctx, []shopify.Order{*raw})
		if err != nil {
			summary.Success = false
			return summary, err
		}

		if err := r.processOrder(ctx, raw, images, summary); err != nil {
			if shopify.IsAuthError(err) {
				summary.Success = false
				return summary, err
			}
			perOrder = multierr.Append(perOrder, err)
		}
	}

	summary.Success = len(summary.Errors) == 0
	if perOrder != nil {
		r.logg.Error(r.logg.WithField(ctx, "failed_orders", len(summary.Errors)),
			"resync completed with order errors", perOrder)
	}
	return summary, nil
}

// seenKey identifies one revision of an upstream order. Keying on the
// upstream modification time keeps page overlap deduplicated while letting
// an order edited after an earlier run flow through again.
func seenKey(raw *shopify.Order) string {
	if raw.UpdatedAt == nil {
		return raw.ID.String()
	}
	return raw.ID.String() + "|" + raw.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// processOrder normalizes and persists one upstream order, updating the
// summary counters. The returned error is already recorded in the summary.
func (r *Runner) processOrder(ctx context.Context, raw *shopify.Order, images map[shopify.ID]string, summary *RunSummary) error {
	summary.Total++
	ctx = r.logg.WithShopifyOrderID(ctx, raw.ID.String())

	normalized := orders.Normalize(raw, images, r.client.AbsolutizeImageURL)
	outcome, err := r.upserter.Upsert(ctx, normalized)
	if err != nil {
		summary.Errors = append(summary.Errors, OrderError{
			OrderCode:      normalized.Order.OrderCode,
			ShopifyOrderID: raw.ID.String(),
			Message:        err.Error(),
		})
		return err
	}

	switch outcome {
	case orders.UpsertOutcomeInserted:
		summary.Imported++
	case orders.UpsertOutcomeUpdated:
		summary.Updated++
	}
	return nil
}

// resolveImages collects the product and variant ids across the given
// orders and resolves them in one pass. Only credential failures surface.
func (r *Runner) resolveImages(ctx context.Context, batch []shopify.Order) (map[shopify.ID]string, error) {
	var productIDs, variantIDs []shopify.ID
	for _, order := range batch {
		for _, line := range order.LineItems {
			if !line.ProductID.Empty() {
				productIDs = append(productIDs, line.ProductID)
			}
			if !line.VariantID.Empty() {
				variantIDs = append(variantIDs, line.VariantID)
			}
		}
	}
	if len(productIDs) == 0 && len(variantIDs) == 0 {
		return map[shopify.ID]string{}, nil
	}

	images, err := r.resolver.Resolve(ctx, productIDs, variantIDs)
	if err != nil {
		if shopify.IsAuthError(err) {
			return nil, err
		}
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "image resolution degraded")
	}
	return images, nil
}

func (r *Runner) record(driver string, start time.Time, summary *RunSummary) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveDuration(driver, time.Since(start))
	r.metrics.AddImported(driver, summary.Imported)
	r.metrics.AddUpdated(driver, summary.Updated)
	r.metrics.AddFailures(driver, len(summary.Errors))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
