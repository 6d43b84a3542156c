package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
	"github.com/shopdesk/shopdesk-backend/pkg/types"
)

// Order is one purchase transaction, either synced from Shopify or created
// directly through the intake form.
type Order struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode      string      `gorm:"column:order_code;not null;uniqueIndex"`
	ShopifyOrderID *shopify.ID `gorm:"column:shopify_order_id;type:text;uniqueIndex"`

	CustomerName  string         `gorm:"column:customer_name;not null"`
	CustomerPhone string         `gorm:"column:customer_phone"`
	CustomerEmail string         `gorm:"column:customer_email"`
	ShippingAddr  *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddr   *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	Currency       string          `gorm:"column:currency;not null;default:'EGP'"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax            decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Discounts      decimal.Decimal `gorm:"column:discounts;type:numeric(12,2);not null;default:0"`
	ShippingFees   decimal.Decimal `gorm:"column:shipping_fees;type:numeric(12,2);not null;default:0"`
	TotalOrderFees decimal.Decimal `gorm:"column:total_order_fees;type:numeric(12,2);not null"`
	PaidAmount     decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	Balance        decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	// ManualBalance is set when an admin hand-edits the balance; once
	// present it survives every resync.
	ManualBalance *decimal.Decimal `gorm:"column:manual_balance;type:numeric(12,2)"`

	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Archived    bool              `gorm:"column:archived;not null;default:false"`
	ArchivedAt  *time.Time        `gorm:"column:archived_at"`
	CancelledAt *time.Time        `gorm:"column:cancelled_at"`
	ClosedAt    *time.Time        `gorm:"column:closed_at"`

	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentGateways []string            `gorm:"column:payment_gateways;type:jsonb;serializer:json"`

	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'unfulfilled'"`
	ShippingMethod    string                  `gorm:"column:shipping_method"`
	TrackingNumber    string                  `gorm:"column:tracking_number"`
	TrackingURL       string                  `gorm:"column:tracking_url"`

	Tags          string            `gorm:"column:tags"`
	OrderNote     *string           `gorm:"column:order_note"`
	CustomerNote  *string           `gorm:"column:customer_note"`
	InternalNote  *string           `gorm:"column:internal_note"`
	ProductImages map[string]string `gorm:"column:product_images;type:jsonb;serializer:json"`
	RawPayload    types.JSONMap     `gorm:"column:raw_payload;type:jsonb;serializer:json"`

	AssignedCourierID *uuid.UUID `gorm:"column:assigned_courier_id;type:uuid"`
	// OriginalCourierID records the first-ever assignment and is never
	// overwritten once set.
	OriginalCourierID *uuid.UUID `gorm:"column:original_courier_id;type:uuid"`
	AssignedAt        *time.Time `gorm:"column:assigned_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
