package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
	"github.com/shopdesk/shopdesk-backend/pkg/types"
)

// OrderItem is one product line within an order. Items are never hard
// deleted by the sync pipeline; lines dropped upstream are retained with
// IsRemoved set.
type OrderItem struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	// ShopifyLineItemID is nil for locally created lines.
	ShopifyLineItemID *shopify.ID `gorm:"column:shopify_line_item_id;type:text;index"`
	ProductID         shopify.ID  `gorm:"column:product_id;type:text"`
	VariantID         shopify.ID  `gorm:"column:variant_id;type:text"`

	Title        string `gorm:"column:title;not null"`
	VariantTitle string `gorm:"column:variant_title"`
	SKU          string `gorm:"column:sku"`
	Vendor       string `gorm:"column:vendor"`

	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalDiscount decimal.Decimal `gorm:"column:total_discount;type:numeric(12,2);not null;default:0"`

	ImageURL          string `gorm:"column:image_url"`
	FulfillmentStatus string `gorm:"column:fulfillment_status"`
	// IsRemoved excludes the line from totals and active display while
	// keeping the row for history.
	IsRemoved bool `gorm:"column:is_removed;not null;default:false"`

	RawPayload types.JSONMap `gorm:"column:raw_payload;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
