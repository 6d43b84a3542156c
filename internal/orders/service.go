package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/pagination"
)

// OrderDetail is the admin detail view: the order plus its full item set,
// removed lines included.
type OrderDetail struct {
	Order models.Order       `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// Service defines the admin-facing order operations beyond repository reads.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListCouriers(ctx context.Context, activeOnly bool) ([]models.Courier, error)
	AssignCourier(ctx context.Context, input AssignCourierInput) error
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error
	RestoreItem(ctx context.Context, orderID, itemID uuid.UUID) error
	OverrideTotal(ctx context.Context, input OverrideTotalInput) error
	SetManualBalance(ctx context.Context, input ManualBalanceInput) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
}

// NewService builds the admin order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	items, err := s.repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListCouriers(ctx context.Context, activeOnly bool) ([]models.Courier, error) {
	couriers, err := s.repo.ListCouriers(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list couriers")
	}
	return couriers, nil
}

// AssignCourier updates the active assignment. The original courier
// reference is written exactly once, on the first-ever assignment, and kept
// through every later reassignment.
func (s *service) AssignCourier(ctx context.Context, input AssignCourierInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CourierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeConflict, "canceled order cannot be assigned")
		}

		courier, err := repo.FindCourier(ctx, input.CourierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier")
		}
		if !courier.Active {
			return pkgerrors.New(pkgerrors.CodeConflict, "courier is not active")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"assigned_courier_id": courier.ID,
			"assigned_at":         now,
		}
		if order.OriginalCourierID == nil {
			updates["original_courier_id"] = courier.ID
		}
		if !order.Status.Progressed() {
			updates["status"] = enums.OrderStatusAssigned
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign courier")
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return s.toggleItemRemoval(ctx, orderID, itemID, true)
}

func (s *service) RestoreItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return s.toggleItemRemoval(ctx, orderID, itemID, false)
}

// toggleItemRemoval flips the removal flag and recomputes the order's
// financial snapshot from the surviving active lines.
func (s *service) toggleItemRemoval(ctx context.Context, orderID, itemID uuid.UUID, removed bool) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if item.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeConflict, "item does not belong to order")
		}
		if item.IsRemoved == removed {
			return nil
		}

		itemUpdates := map[string]any{"is_removed": removed}
		if removed {
			itemUpdates["fulfillment_status"] = removedFulfillmentMarker
		} else {
			itemUpdates["fulfillment_status"] = upstreamFulfillmentStatus(item)
		}
		if err := repo.UpdateItem(ctx, item.ID, itemUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item removal")
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload items")
		}

		subtotal := decimal.Zero
		for _, current := range items {
			active := !current.IsRemoved
			if current.ID == item.ID {
				active = !removed
			}
			if !active {
				continue
			}
			lineTotal := current.UnitPrice.Mul(decimal.NewFromInt(int64(current.Quantity))).Sub(current.TotalDiscount)
			subtotal = subtotal.Add(clampMoney(lineTotal))
		}

		total := clampMoney(subtotal.Add(order.Tax).Add(order.ShippingFees).Sub(order.Discounts))
		balance := clampMoney(total.Sub(order.PaidAmount))
		if order.ManualBalance != nil {
			balance = clampMoney(*order.ManualBalance)
		}

		orderUpdates := map[string]any{
			"subtotal":         subtotal,
			"total_order_fees": total,
			"balance":          balance,
		}
		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}
		return nil
	})
}

// upstreamFulfillmentStatus recovers the fulfillment status the line
// carried before a manual removal overwrote it, from the raw upstream
// snapshot. Locally created lines have no snapshot and come back empty.
func upstreamFulfillmentStatus(item *models.OrderItem) string {
	status, _ := item.RawPayload["fulfillment_status"].(string)
	return status
}

// OverrideTotal hand-edits the displayed total. The stored value survives
// future syncs through the epsilon comparison in the coordinator.
func (s *service) OverrideTotal(ctx context.Context, input OverrideTotalInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Total.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		balance := clampMoney(input.Total.Sub(order.PaidAmount))
		if order.ManualBalance != nil {
			balance = clampMoney(*order.ManualBalance)
		}

		updates := map[string]any{
			"total_order_fees": input.Total,
			"balance":          balance,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "override total")
		}
		return nil
	})
}

// SetManualBalance pins the balance to an admin-entered value that takes
// precedence over every derived figure on later syncs.
func (s *service) SetManualBalance(ctx context.Context, input ManualBalanceInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Balance.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "balance must not be negative")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindOrderByID(ctx, input.OrderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		updates := map[string]any{
			"manual_balance": input.Balance,
			"balance":        input.Balance,
		}
		if err := repo.UpdateOrder(ctx, input.OrderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set manual balance")
		}
		return nil
	})
}
