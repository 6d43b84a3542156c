package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk-backend/api/responses"
	internalsync "github.com/shopdesk/shopdesk-backend/internal/sync"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

type syncRunner interface {
	SyncAll(ctx context.Context) (*internalsync.RunSummary, error)
	SyncOne(ctx context.Context, orderID shopify.ID) (*internalsync.RunSummary, error)
	ResyncAll(ctx context.Context) (*internalsync.RunSummary, error)
}

// ShopifySyncAll triggers a full paginated import pass.
func ShopifySyncAll(runner syncRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync runner unavailable"))
			return
		}

		summary, err := runner.SyncAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ShopifySyncOrder imports or refreshes a single order by its upstream id.
func ShopifySyncOrder(runner syncRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync runner unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		summary, err := runner.SyncOne(r.Context(), shopify.NormalizeID(raw))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ShopifyResyncAll refreshes every order already known to the database.
func ShopifyResyncAll(runner syncRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync runner unavailable"))
			return
		}

		summary, err := runner.ResyncAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
