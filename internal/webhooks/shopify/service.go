package shopifywebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/shopdesk/shopdesk-backend/internal/orders"
	internalsync "github.com/shopdesk/shopdesk-backend/internal/sync"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/metrics"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// DefaultScope namespaces the idempotency keys for order webhooks.
const DefaultScope = "shopify_webhook"

type imageResolver interface {
	Resolve(ctx context.Context, productIDs, variantIDs []shopify.ID) (map[shopify.ID]string, error)
}

type upserter interface {
	Upsert(ctx context.Context, normalized orders.NormalizedOrder) (orders.UpsertOutcome, error)
}

type catalog interface {
	AbsolutizeImageURL(src string) string
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// ServiceParams carries the dependencies for NewService. Metrics may be nil.
type ServiceParams struct {
	Resolver imageResolver
	Upserter upserter
	Catalog  catalog
	Guard    idempotencyGuard
	Metrics  *metrics.SyncMetrics
	Logger   *logger.Logger
}

// Service turns Shopify order webhook deliveries into local upserts. Each
// delivery carries the full order payload, so processing never calls the
// orders API back except for product image lookups.
type Service struct {
	resolver imageResolver
	upserter upserter
	catalog  catalog
	guard    idempotencyGuard
	metrics  *metrics.SyncMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("image resolver required")
	}
	if params.Upserter == nil {
		return nil, fmt.Errorf("order upserter required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		resolver: params.Resolver,
		upserter: params.Upserter,
		catalog:  params.Catalog,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleOrderPayload processes one order webhook delivery. Duplicate
// deliveries are acknowledged without reprocessing; a processing failure
// clears the idempotency mark so Shopify's retry can succeed.
func (s *Service) HandleOrderPayload(ctx context.Context, deliveryID string, body []byte) error {
	if deliveryID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook delivery id required")
	}

	var raw shopify.Order
	if err := json.Unmarshal(body, &raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order payload")
	}
	if raw.ID.Empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order payload missing id")
	}

	ctx = s.logg.WithShopifyOrderID(ctx, raw.ID.String())

	duplicate, err := s.guard.CheckAndMark(ctx, deliveryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate webhook delivery skipped")
		return nil
	}

	if err := s.process(ctx, &raw); err != nil {
		if delErr := s.guard.Delete(ctx, deliveryID); delErr != nil {
			s.logg.Error(ctx, "failed to clear idempotency mark", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, raw *shopify.Order) error {
	var productIDs, variantIDs []shopify.ID
	for _, line := range raw.LineItems {
		if !line.ProductID.Empty() {
			productIDs = append(productIDs, line.ProductID)
		}
		if !line.VariantID.Empty() {
			variantIDs = append(variantIDs, line.VariantID)
		}
	}

	images := map[shopify.ID]string{}
	if len(productIDs) > 0 || len(variantIDs) > 0 {
		resolved, err := s.resolver.Resolve(ctx, productIDs, variantIDs)
		if err != nil {
			if shopify.IsAuthError(err) {
				return err
			}
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "image resolution degraded")
		}
		if resolved != nil {
			images = resolved
		}
	}

	normalized := orders.Normalize(raw, images, s.catalog.AbsolutizeImageURL)
	outcome, err := s.upserter.Upsert(ctx, normalized)
	if err != nil {
		s.metrics.AddFailures(internalsync.DriverWebhook, 1)
		return err
	}
	switch outcome {
	case orders.UpsertOutcomeInserted:
		s.metrics.AddImported(internalsync.DriverWebhook, 1)
	case orders.UpsertOutcomeUpdated:
		s.metrics.AddUpdated(internalsync.DriverWebhook, 1)
	}
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "webhook order processed")
	return nil
}

// VerifySignature checks the X-Shopify-Hmac-Sha256 header against the
// shared secret. An empty secret disables verification.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
