package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/shopdesk/shopdesk-backend/api/responses"
	shopifywebhook "github.com/shopdesk/shopdesk-backend/internal/webhooks/shopify"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
)

type ShopifyWebhookService interface {
	HandleOrderPayload(ctx context.Context, deliveryID string, body []byte) error
}

// ShopifyOrderWebhook ingests order create/update deliveries from Shopify.
// Signature verification is skipped when no secret is configured.
func ShopifyOrderWebhook(svc ShopifyWebhookService, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Shopify-Hmac-Sha256")
		if !shopifywebhook.VerifySignature(secret, body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid"))
			return
		}

		deliveryID := strings.TrimSpace(r.Header.Get("X-Shopify-Webhook-Id"))
		if err := svc.HandleOrderPayload(ctx, deliveryID, body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
