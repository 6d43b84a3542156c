package orders

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
	"github.com/shopdesk/shopdesk-backend/pkg/types"
)

const unknownCustomerName = "Unknown"

// removedFulfillmentMarker is the synthetic fulfillment status written on
// lines the reconciler retires. The upstream API never emits it.
const removedFulfillmentMarker = "removed"

// Normalize maps one upstream order payload into the internal order shape.
// It is a pure transformation: no persistence, no merge against existing
// rows. The image map comes from a prior resolver pass; absolutize converts
// relative CDN paths.
func Normalize(raw *shopify.Order, imageMap map[shopify.ID]string, absolutize func(string) string) NormalizedOrder {
	if absolutize == nil {
		absolutize = func(s string) string { return s }
	}

	order := models.Order{
		OrderCode:      orderCode(raw),
		ShopifyOrderID: orderIDRef(raw.ID),
		CustomerName:   customerName(raw),
		CustomerPhone:  customerPhone(raw),
		CustomerEmail:  customerEmail(raw),
		ShippingAddr:   addressSnapshot(raw.ShippingAddress),
		BillingAddr:    addressSnapshot(raw.BillingAddress),

		Currency:       currencyOrDefault(raw.Currency),
		Subtotal:       raw.SubtotalPrice,
		Tax:            raw.TotalTax,
		Discounts:      raw.TotalDiscounts,
		ShippingFees:   shippingFees(raw.ShippingLines),
		TotalOrderFees: raw.TotalPrice,
		PaidAmount:     paidAmount(raw),
		Balance:        clampMoney(raw.TotalOutstanding),

		Status:      derivedStatus(raw),
		Archived:    raw.ClosedAt != nil,
		ArchivedAt:  raw.ClosedAt,
		CancelledAt: raw.CancelledAt,
		ClosedAt:    raw.ClosedAt,

		PaymentGateways:   raw.PaymentGateways,
		FulfillmentStatus: fulfillmentStatus(raw.FulfillmentStatus),
		ShippingMethod:    shippingMethod(raw.ShippingLines),

		Tags:         raw.Tags,
		OrderNote:    optionalText(raw.Note),
		CustomerNote: customerNote(raw.Customer),
		RawPayload:   payloadSnapshot(raw),
	}

	order.PaymentMethod, order.PaymentStatus = ClassifyPayment(raw.PaymentGateways, raw.Gateway, raw.FinancialStatus)
	order.TrackingNumber, order.TrackingURL = trackingInfo(raw.Fulfillments)

	items := make([]models.OrderItem, 0, len(raw.LineItems))
	productImages := make(map[string]string)
	for _, li := range raw.LineItems {
		item := normalizeLineItem(li, imageMap, absolutize)
		if item.ImageURL != "" {
			if !item.ProductID.Empty() {
				productImages[item.ProductID.String()] = item.ImageURL
			}
			if !item.VariantID.Empty() {
				productImages[item.VariantID.String()] = item.ImageURL
			}
		}
		items = append(items, item)
	}
	if len(productImages) > 0 {
		order.ProductImages = productImages
	}

	return NormalizedOrder{Order: order, Items: items}
}

func normalizeLineItem(li shopify.LineItem, imageMap map[shopify.ID]string, absolutize func(string) string) models.OrderItem {
	id := shopify.NormalizeID(li.ID)
	item := models.OrderItem{
		ProductID:         shopify.NormalizeID(li.ProductID),
		VariantID:         shopify.NormalizeID(li.VariantID),
		Title:             li.Title,
		VariantTitle:      li.VariantTitle,
		SKU:               li.SKU,
		Vendor:            li.Vendor,
		Quantity:          li.Quantity,
		UnitPrice:         li.Price,
		TotalDiscount:     li.TotalDiscount,
		FulfillmentStatus: li.FulfillmentStatus,
		ImageURL:          lineItemImage(li, imageMap, absolutize),
		RawPayload:        lineItemSnapshot(li),
	}
	if !id.Empty() {
		item.ShopifyLineItemID = &id
	}
	item.IsRemoved = upstreamMarkedRemoved(li)
	return item
}

// upstreamMarkedRemoved applies the upstream-side removal signals: zero
// quantity, a removed/cancelled fulfillment reading, or the internal marker
// property an admin edit writes back to the platform.
func upstreamMarkedRemoved(li shopify.LineItem) bool {
	if li.Quantity <= 0 {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(li.FulfillmentStatus)) {
	case removedFulfillmentMarker, "cancelled", "canceled":
		return true
	}
	return li.HasRemovedMarker()
}

// lineItemImage resolves the display image with a fixed priority: the
// payload's own inline hints first, then the resolver map by variant id,
// then by product id.
func lineItemImage(li shopify.LineItem, imageMap map[shopify.ID]string, absolutize func(string) string) string {
	if li.Image != nil && li.Image.Src != "" {
		return absolutize(li.Image.Src)
	}
	if li.VariantImage != nil && li.VariantImage.Src != "" {
		return absolutize(li.VariantImage.Src)
	}
	if li.VariantFeaturedImage != nil && li.VariantFeaturedImage.Src != "" {
		return absolutize(li.VariantFeaturedImage.Src)
	}
	for _, img := range li.Images {
		if img.Src != "" {
			return absolutize(img.Src)
		}
	}
	for _, img := range li.ProductImages {
		if img.Src != "" {
			return absolutize(img.Src)
		}
	}
	if src, ok := imageMap[shopify.NormalizeID(li.VariantID)]; ok && src != "" {
		return absolutize(src)
	}
	if src, ok := imageMap[shopify.NormalizeID(li.ProductID)]; ok && src != "" {
		return absolutize(src)
	}
	return ""
}

// ClassifyPayment derives the normalized payment method and status from the
// upstream gateway names and financial status, in fixed precedence order.
func ClassifyPayment(gateways []string, gateway, financialStatus string) (enums.PaymentMethod, enums.PaymentStatus) {
	joined := strings.ToLower(strings.Join(append(append([]string{}, gateways...), gateway), " "))

	var method enums.PaymentMethod
	switch {
	case strings.Contains(joined, "gift_card") || strings.Contains(joined, "gift card"):
		method = enums.PaymentMethodGiftCard
	case strings.Contains(joined, "paymob"):
		method = enums.PaymentMethodPaymob
	case strings.Contains(joined, "valu"):
		method = enums.PaymentMethodValu
	case strings.Contains(joined, "card") || strings.Contains(joined, "shopify_payments") || strings.Contains(joined, "stripe") || strings.Contains(joined, "checkout"):
		method = enums.PaymentMethodCard
	default:
		method = enums.PaymentMethodCOD
	}

	status := enums.PaymentStatusPending
	normalized := strings.ToLower(strings.TrimSpace(financialStatus))
	switch {
	case normalized == "paid":
		status = enums.PaymentStatusPaid
	case normalized == "partially_paid":
		status = enums.PaymentStatusPartiallyPaid
	case normalized == "refunded":
		status = enums.PaymentStatusRefunded
	case normalized == "partially_refunded":
		status = enums.PaymentStatusPartialRefunded
	case normalized == "voided":
		status = enums.PaymentStatusVoided
	}
	return method, status
}

func orderCode(raw *shopify.Order) string {
	if name := strings.TrimSpace(raw.Name); name != "" {
		return name
	}
	if raw.OrderNumber > 0 {
		return fmt.Sprintf("#%d", raw.OrderNumber)
	}
	return raw.ID.String()
}

func orderIDRef(id shopify.ID) *shopify.ID {
	canonical := shopify.NormalizeID(id)
	if canonical.Empty() {
		return nil
	}
	return &canonical
}

// customerName falls through shipping name, billing name, the customer's
// first/last pair, then a literal Unknown.
func customerName(raw *shopify.Order) string {
	if raw.ShippingAddress != nil {
		if name := strings.TrimSpace(raw.ShippingAddress.Name); name != "" {
			return name
		}
	}
	if raw.BillingAddress != nil {
		if name := strings.TrimSpace(raw.BillingAddress.Name); name != "" {
			return name
		}
	}
	if raw.Customer != nil {
		full := strings.TrimSpace(strings.TrimSpace(raw.Customer.FirstName) + " " + strings.TrimSpace(raw.Customer.LastName))
		if full != "" {
			return full
		}
	}
	return unknownCustomerName
}

func customerPhone(raw *shopify.Order) string {
	if raw.ShippingAddress != nil && raw.ShippingAddress.Phone != "" {
		return raw.ShippingAddress.Phone
	}
	if raw.BillingAddress != nil && raw.BillingAddress.Phone != "" {
		return raw.BillingAddress.Phone
	}
	if raw.Customer != nil && raw.Customer.Phone != "" {
		return raw.Customer.Phone
	}
	return raw.Phone
}

func customerEmail(raw *shopify.Order) string {
	if raw.Email != "" {
		return raw.Email
	}
	if raw.Customer != nil {
		return raw.Customer.Email
	}
	return ""
}

func customerNote(customer *shopify.Customer) *string {
	if customer == nil {
		return nil
	}
	return optionalText(customer.Note)
}

func addressSnapshot(addr *shopify.Address) *types.Address {
	if addr == nil {
		return nil
	}
	snapshot := &types.Address{
		Name:     addr.Name,
		Phone:    addr.Phone,
		Address1: addr.Address1,
		Address2: addr.Address2,
		City:     addr.City,
		Province: addr.Province,
		Country:  addr.Country,
		Zip:      addr.Zip,
	}
	if snapshot.Empty() {
		return nil
	}
	return snapshot
}

// derivedStatus only distinguishes canceled from pending. The coordinator
// decides whether the existing status may be replaced on update.
func derivedStatus(raw *shopify.Order) enums.OrderStatus {
	if raw.CancelledAt != nil {
		return enums.OrderStatusCanceled
	}
	return enums.OrderStatusPending
}

func fulfillmentStatus(raw string) enums.FulfillmentStatus {
	if parsed, err := enums.ParseFulfillmentStatus(raw); err == nil {
		return parsed
	}
	return enums.FulfillmentStatusUnfulfilled
}

func shippingMethod(lines []shopify.ShippingLine) string {
	for _, line := range lines {
		if line.Title != "" {
			return line.Title
		}
	}
	return ""
}

func shippingFees(lines []shopify.ShippingLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price)
	}
	return total
}

// paidAmount derives what the customer has settled so far from the reported
// total and outstanding figures.
func paidAmount(raw *shopify.Order) decimal.Decimal {
	return clampMoney(raw.TotalPrice.Sub(raw.TotalOutstanding))
}

func trackingInfo(fulfillments []shopify.Fulfillment) (string, string) {
	for _, f := range fulfillments {
		if f.TrackingNumber != "" || f.TrackingURL != "" {
			return f.TrackingNumber, f.TrackingURL
		}
	}
	return "", ""
}

func clampMoney(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func currencyOrDefault(currency string) string {
	if trimmed := strings.TrimSpace(currency); trimmed != "" {
		return trimmed
	}
	return "EGP"
}

func optionalText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func payloadSnapshot(raw *shopify.Order) types.JSONMap {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var snapshot types.JSONMap
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return snapshot
}

func lineItemSnapshot(li shopify.LineItem) types.JSONMap {
	data, err := json.Marshal(li)
	if err != nil {
		return nil
	}
	var snapshot types.JSONMap
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
