package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
)

// NormalizedOrder is the Normalizer's output: the internal order shape plus
// its parallel line-item set, before any merge with persisted data.
type NormalizedOrder struct {
	Order models.Order
	Items []models.OrderItem
}

// UpsertOutcome reports which path the coordinator took for an order.
type UpsertOutcome string

const (
	UpsertOutcomeInserted UpsertOutcome = "inserted"
	UpsertOutcomeUpdated  UpsertOutcome = "updated"
)

// OrderFilters describe the inputs supported by the admin order list.
type OrderFilters struct {
	Status            *enums.OrderStatus
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	CourierID         *uuid.UUID
	Archived          *bool
	DateFrom          *time.Time
	DateTo            *time.Time
	Query             string
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// AssignCourierInput captures a courier assignment request.
type AssignCourierInput struct {
	OrderID   uuid.UUID
	CourierID uuid.UUID
}

// OverrideTotalInput captures a manual displayed-total edit.
type OverrideTotalInput struct {
	OrderID uuid.UUID
	Total   decimal.Decimal
}

// ManualBalanceInput captures a manual balance edit.
type ManualBalanceInput struct {
	OrderID uuid.UUID
	Balance decimal.Decimal
}
