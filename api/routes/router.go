package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk-backend/api/controllers"
	webhookcontrollers "github.com/shopdesk/shopdesk-backend/api/controllers/webhooks"
	"github.com/shopdesk/shopdesk-backend/api/middleware"
	"github.com/shopdesk/shopdesk-backend/internal/orders"
	internalsync "github.com/shopdesk/shopdesk-backend/internal/sync"
	"github.com/shopdesk/shopdesk-backend/pkg/config"
	"github.com/shopdesk/shopdesk-backend/pkg/db"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/redis"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// SyncRunner is the trigger surface the sync endpoints need.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*internalsync.RunSummary, error)
	SyncOne(ctx context.Context, orderID shopify.ID) (*internalsync.RunSummary, error)
	ResyncAll(ctx context.Context) (*internalsync.RunSummary, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	syncRunner SyncRunner,
	webhookService webhookcontrollers.ShopifyWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	triggerPolicy := middleware.NewRateLimitPolicy(
		"sync",
		cfg.SyncRateLimit.Window,
		cfg.SyncRateLimit.IPLimit,
	)

	var cachePinger redis.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/shopify", webhookcontrollers.ShopifyOrderWebhook(webhookService, cfg.Webhook.Secret, logg))
	})

	r.Route("/api/shopify", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.RateLimit(triggerPolicy, redisClient, logg))
		}
		r.Get("/sync", controllers.ShopifySyncAll(syncRunner, logg))
		r.Post("/sync-order/{orderId}", controllers.ShopifySyncOrder(syncRunner, logg))
		r.Post("/resync", controllers.ShopifyResyncAll(syncRunner, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(ordersSvc, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(ordersSvc, logg))
			r.Post("/{orderId}/assign-courier", controllers.AdminAssignCourier(ordersSvc, logg))
			r.Post("/{orderId}/items/{itemId}/remove", controllers.AdminRemoveItem(ordersSvc, logg))
			r.Post("/{orderId}/items/{itemId}/restore", controllers.AdminRestoreItem(ordersSvc, logg))
			r.Post("/{orderId}/override-total", controllers.AdminOverrideTotal(ordersSvc, logg))
			r.Post("/{orderId}/manual-balance", controllers.AdminSetManualBalance(ordersSvc, logg))
		})
		r.Get("/couriers", controllers.AdminListCouriers(ordersSvc, logg))
	})

	return r
}
