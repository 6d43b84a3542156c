package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/pagination"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// Repository defines persistence operations for the orders and couriers tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByShopifyID(ctx context.Context, shopifyID shopify.ID) (*models.Order, error)
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListShopifyOrderIDs(ctx context.Context) ([]shopify.ID, error)

	FindCourier(ctx context.Context, id uuid.UUID) (*models.Courier, error)
	ListCouriers(ctx context.Context, activeOnly bool) ([]models.Courier, error)
}
