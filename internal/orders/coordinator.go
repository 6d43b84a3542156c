package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
)

// totalEpsilon is the tolerance when comparing the stored displayed total
// against the freshly computed upstream total. A larger difference means an
// admin overrode the price and the override must survive the sync.
var totalEpsilon = decimal.NewFromFloat(0.01)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Coordinator decides insert versus update per order, applies the manual
// edit preservation rules, and persists the reconciled order and item set.
type Coordinator struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// CoordinatorParams carries the dependencies for NewCoordinator.
type CoordinatorParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
}

// NewCoordinator validates dependencies and builds a Coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Coordinator{repo: params.Repo, tx: params.Tx, logg: params.Logger}, nil
}

// Upsert persists one normalized order. Existing orders are matched by
// Shopify order id first, then by human order code, and updated through
// read-merge-write; anything else is inserted fresh with its full item set.
func (c *Coordinator) Upsert(ctx context.Context, normalized NormalizedOrder) (UpsertOutcome, error) {
	ctx = c.logg.WithOrderCode(ctx, normalized.Order.OrderCode)

	existing, err := c.findExisting(ctx, normalized)
	if err != nil {
		return "", err
	}

	if existing == nil {
		if err := c.insert(ctx, normalized); err != nil {
			return "", err
		}
		return UpsertOutcomeInserted, nil
	}

	if err := c.update(ctx, existing, normalized); err != nil {
		return "", err
	}
	return UpsertOutcomeUpdated, nil
}

func (c *Coordinator) findExisting(ctx context.Context, normalized NormalizedOrder) (*models.Order, error) {
	if normalized.Order.ShopifyOrderID != nil {
		order, err := c.repo.FindOrderByShopifyID(ctx, *normalized.Order.ShopifyOrderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by shopify id")
		}
	}
	if code := normalized.Order.OrderCode; code != "" {
		order, err := c.repo.FindOrderByCode(ctx, code)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by code")
		}
	}
	return nil, nil
}

func (c *Coordinator) insert(ctx context.Context, normalized NormalizedOrder) error {
	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)

		order := normalized.Order
		created, err := repo.CreateOrder(ctx, &order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		items := make([]models.OrderItem, len(normalized.Items))
		copy(items, normalized.Items)
		for i := range items {
			items[i].OrderID = created.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
		}
		return nil
	})
}

func (c *Coordinator) update(ctx context.Context, existing *models.Order, normalized NormalizedOrder) error {
	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)

		existingItems, err := repo.FindItemsByOrder(ctx, existing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing items")
		}
		merged := Reconcile(existingItems, normalized.Items)

		finalTotal, overridden := c.resolveTotal(ctx, existing, normalized.Order.TotalOrderFees)
		balance := resolveBalance(existing, finalTotal, normalized.Order, overridden)

		updates := map[string]any{
			"customer_name":    normalized.Order.CustomerName,
			"customer_phone":   normalized.Order.CustomerPhone,
			"customer_email":   normalized.Order.CustomerEmail,
			"shipping_address": normalized.Order.ShippingAddr,
			"billing_address":  normalized.Order.BillingAddr,

			"currency":         normalized.Order.Currency,
			"subtotal":         normalized.Order.Subtotal,
			"tax":              normalized.Order.Tax,
			"discounts":        normalized.Order.Discounts,
			"shipping_fees":    normalized.Order.ShippingFees,
			"total_order_fees": finalTotal,
			"paid_amount":      normalized.Order.PaidAmount,
			"balance":          balance,

			"payment_method":   normalized.Order.PaymentMethod,
			"payment_status":   normalized.Order.PaymentStatus,
			"payment_gateways": normalized.Order.PaymentGateways,

			"fulfillment_status": normalized.Order.FulfillmentStatus,
			"shipping_method":    normalized.Order.ShippingMethod,
			"tracking_number":    normalized.Order.TrackingNumber,
			"tracking_url":       normalized.Order.TrackingURL,

			"tags":           normalized.Order.Tags,
			"product_images": normalized.Order.ProductImages,
			"raw_payload":    normalized.Order.RawPayload,

			"archived":     normalized.Order.Archived,
			"archived_at":  normalized.Order.ArchivedAt,
			"cancelled_at": normalized.Order.CancelledAt,
			"closed_at":    normalized.Order.ClosedAt,
		}
		if note := normalized.Order.OrderNote; note != nil {
			updates["order_note"] = note
		}
		if note := normalized.Order.CustomerNote; note != nil {
			updates["customer_note"] = note
		}

		// A form-created order matched by code gains its upstream link on the
		// first sync so later resyncs can address it by Shopify id.
		if existing.ShopifyOrderID == nil && normalized.Order.ShopifyOrderID != nil {
			updates["shopify_order_id"] = normalized.Order.ShopifyOrderID
		}

		// Upstream cancellation always wins, even over a manually advanced
		// status; a resync never pushes a progressed order back to pending.
		if normalized.Order.CancelledAt != nil {
			updates["status"] = enums.OrderStatusCanceled
		}

		if err := repo.UpdateOrder(ctx, existing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if err := repo.ReplaceOrderItems(ctx, existing.ID, merged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
		}
		return nil
	})
}

// resolveTotal keeps the stored displayed total when it was manually
// overridden: nonzero and differing from the upstream total by more than
// the epsilon.
func (c *Coordinator) resolveTotal(ctx context.Context, existing *models.Order, upstreamTotal decimal.Decimal) (decimal.Decimal, bool) {
	if existing.TotalOrderFees.IsZero() {
		return upstreamTotal, false
	}
	if existing.TotalOrderFees.Sub(upstreamTotal).Abs().GreaterThan(totalEpsilon) {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"stored_total":   existing.TotalOrderFees.String(),
			"upstream_total": upstreamTotal.String(),
		}), "preserving manual total override")
		return existing.TotalOrderFees, true
	}
	return upstreamTotal, false
}

// resolveBalance applies the precedence: a manually saved balance wins, an
// overridden total derives total minus paid, otherwise the upstream
// outstanding figure is used. Always clamped at zero.
func resolveBalance(existing *models.Order, finalTotal decimal.Decimal, upstream models.Order, totalOverridden bool) decimal.Decimal {
	if existing.ManualBalance != nil {
		return clampMoney(*existing.ManualBalance)
	}
	if totalOverridden {
		return clampMoney(finalTotal.Sub(upstream.PaidAmount))
	}
	return clampMoney(upstream.Balance)
}
