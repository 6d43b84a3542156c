package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/pagination"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// stubRepo is an in-memory Repository for coordinator and service tests.
type stubRepo struct {
	orders       map[uuid.UUID]*models.Order
	items        map[uuid.UUID]*models.OrderItem
	couriers     map[uuid.UUID]*models.Courier
	orderUpdates []map[string]any
	replaced     [][]models.OrderItem
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders:   make(map[uuid.UUID]*models.Order),
		items:    make(map[uuid.UUID]*models.OrderItem),
		couriers: make(map[uuid.UUID]*models.Courier),
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	clone := *order
	s.orders[order.ID] = &clone
	return order, nil
}

func (s *stubRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		item := items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		s.items[item.ID] = &item
	}
	return nil
}

func (s *stubRepo) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := s.orders[id]; ok {
		clone := *order
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindOrderByShopifyID(ctx context.Context, shopifyID shopify.ID) (*models.Order, error) {
	for _, order := range s.orders {
		if order.ShopifyOrderID != nil && shopify.NormalizeID(*order.ShopifyOrderID) == shopify.NormalizeID(shopifyID) {
			clone := *order
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.OrderCode == code {
			clone := *order
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range s.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *stubRepo) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	if item, ok := s.items[itemID]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.orderUpdates = append(s.orderUpdates, updates)
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyOrderUpdates(order, updates)
	return nil
}

func (s *stubRepo) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	item, ok := s.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["is_removed"]; ok {
		item.IsRemoved = v.(bool)
	}
	if v, ok := updates["fulfillment_status"]; ok {
		item.FulfillmentStatus = v.(string)
	}
	return nil
}

func (s *stubRepo) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	s.replaced = append(s.replaced, items)
	for id, item := range s.items {
		if item.OrderID == orderID {
			delete(s.items, id)
		}
	}
	for i := range items {
		item := items[i]
		item.OrderID = orderID
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		s.items[item.ID] = &item
	}
	return nil
}

func (s *stubRepo) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list := &OrderList{}
	for _, order := range s.orders {
		if filters.Status != nil && order.Status != *filters.Status {
			continue
		}
		if filters.Query != "" && !strings.Contains(order.OrderCode, filters.Query) {
			continue
		}
		list.Orders = append(list.Orders, *order)
	}
	return list, nil
}

func (s *stubRepo) ListShopifyOrderIDs(ctx context.Context) ([]shopify.ID, error) {
	var ids []shopify.ID
	for _, order := range s.orders {
		if order.ShopifyOrderID != nil {
			ids = append(ids, *order.ShopifyOrderID)
		}
	}
	return ids, nil
}

func (s *stubRepo) FindCourier(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	if courier, ok := s.couriers[id]; ok {
		clone := *courier
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListCouriers(ctx context.Context, activeOnly bool) ([]models.Courier, error) {
	var out []models.Courier
	for _, courier := range s.couriers {
		if activeOnly && !courier.Active {
			continue
		}
		out = append(out, *courier)
	}
	return out, nil
}

// applyOrderUpdates mirrors the column updates the real repository issues.
func applyOrderUpdates(order *models.Order, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "customer_name":
			order.CustomerName = value.(string)
		case "shopify_order_id":
			order.ShopifyOrderID = value.(*shopify.ID)
		case "subtotal":
			order.Subtotal = value.(decimal.Decimal)
		case "total_order_fees":
			order.TotalOrderFees = value.(decimal.Decimal)
		case "paid_amount":
			order.PaidAmount = value.(decimal.Decimal)
		case "balance":
			order.Balance = value.(decimal.Decimal)
		case "manual_balance":
			d := value.(decimal.Decimal)
			order.ManualBalance = &d
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "assigned_courier_id":
			id := value.(uuid.UUID)
			order.AssignedCourierID = &id
		case "original_courier_id":
			id := value.(uuid.UUID)
			order.OriginalCourierID = &id
		case "assigned_at":
			at := value.(time.Time)
			order.AssignedAt = &at
		case "cancelled_at":
			if at, ok := value.(*time.Time); ok {
				order.CancelledAt = at
			}
		}
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
}

// passthroughTx satisfies txRunner without a real database.
type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
