package shopify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the strict decode of one upstream order payload. All identifier
// and money unions are coerced once here; downstream logic never touches the
// raw JSON shapes.
type Order struct {
	ID                ID              `json:"id"`
	Name              string          `json:"name"`
	OrderNumber       int64           `json:"order_number"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Currency          string          `json:"currency"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Gateway           string          `json:"gateway"`
	PaymentGateways   []string        `json:"payment_gateway_names"`
	Tags              string          `json:"tags"`
	Note              string          `json:"note"`
	Customer          *Customer       `json:"customer"`
	ShippingAddress   *Address        `json:"shipping_address"`
	BillingAddress    *Address        `json:"billing_address"`
	ShippingLines     []ShippingLine  `json:"shipping_lines"`
	LineItems         []LineItem      `json:"line_items"`
	Fulfillments      []Fulfillment   `json:"fulfillments"`
	CreatedAt         *time.Time      `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	CancelledAt       *time.Time      `json:"cancelled_at"`
	ClosedAt          *time.Time      `json:"closed_at"`
}

// Customer carries the subset of customer fields the normalizer reads.
type Customer struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
}

// Address is a shipping or billing address as Shopify reports it.
type Address struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

// ShippingLine names the shipping method on an order.
type ShippingLine struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// LineItem is one product line within an upstream order.
type LineItem struct {
	ID                ID              `json:"id"`
	ProductID         ID              `json:"product_id"`
	VariantID         ID              `json:"variant_id"`
	Title             string          `json:"title"`
	VariantTitle      string          `json:"variant_title"`
	SKU               string          `json:"sku"`
	Vendor            string          `json:"vendor"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Properties        []Property      `json:"properties"`

	// Inline image hints. Shopify includes these inconsistently; the
	// normalizer checks them before falling back to the image resolver.
	Image                *Image  `json:"image"`
	VariantImage         *Image  `json:"variant_image"`
	VariantFeaturedImage *Image  `json:"variant_featured_image"`
	Images               []Image `json:"images"`
	ProductImages        []Image `json:"product_images"`
}

// Property is one custom attribute on a line item.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Fulfillment reports one fulfillment event with its line item references.
type Fulfillment struct {
	ID             ID         `json:"id"`
	Status         string     `json:"status"`
	TrackingNumber string     `json:"tracking_number"`
	TrackingURL    string     `json:"tracking_url"`
	LineItems      []LineItem `json:"line_items"`
}

// Product is an entry from the batched product lookup endpoint.
type Product struct {
	ID       ID        `json:"id"`
	Title    string    `json:"title"`
	Image    *Image    `json:"image"`
	Images   []Image   `json:"images"`
	Variants []Variant `json:"variants"`
}

// Variant links a variant id to its optional dedicated image.
type Variant struct {
	ID      ID `json:"id"`
	ImageID ID `json:"image_id"`
}

// Image is one catalog image. Src may be relative to the CDN host.
type Image struct {
	ID  ID     `json:"id"`
	Src string `json:"src"`
}

// removedPropertyName marks a line item an admin removed; synced back and
// forth through order edits so a resync cannot resurrect the line.
const removedPropertyName = "_shopdesk_removed"

// HasRemovedMarker reports whether the item's properties carry the internal
// removed marker.
func (li LineItem) HasRemovedMarker() bool {
	for _, prop := range li.Properties {
		if prop.Name == removedPropertyName {
			return true
		}
	}
	return false
}
