package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func absolutizeForTest(src string) string {
	if len(src) > 0 && src[0] == '/' {
		return "https://cdn.shopify.com" + src
	}
	return src
}

func baseRawOrder() *shopify.Order {
	return &shopify.Order{
		ID:               shopify.NormalizeID(9001),
		Name:             "#1001",
		OrderNumber:      1001,
		Email:            "buyer@example.com",
		Currency:         "EGP",
		SubtotalPrice:    money("100.00"),
		TotalPrice:       money("120.00"),
		TotalTax:         money("14.00"),
		TotalDiscounts:   money("0.00"),
		TotalOutstanding: money("120.00"),
		FinancialStatus:  "pending",
		LineItems: []shopify.LineItem{
			{
				ID:        shopify.NormalizeID(1),
				ProductID: shopify.NormalizeID(500),
				VariantID: shopify.NormalizeID(600),
				Title:     "Mug",
				Quantity:  2,
				Price:     money("50.00"),
			},
		},
	}
}

func TestNormalizeCustomerNamePrecedence(t *testing.T) {
	raw := baseRawOrder()
	raw.ShippingAddress = &shopify.Address{Name: "Ship Name", City: "Cairo"}
	raw.BillingAddress = &shopify.Address{Name: "Bill Name", City: "Giza"}
	raw.Customer = &shopify.Customer{FirstName: "First", LastName: "Last"}

	if got := Normalize(raw, nil, nil).Order.CustomerName; got != "Ship Name" {
		t.Fatalf("expected shipping name, got %q", got)
	}

	raw.ShippingAddress = nil
	if got := Normalize(raw, nil, nil).Order.CustomerName; got != "Bill Name" {
		t.Fatalf("expected billing name, got %q", got)
	}

	raw.BillingAddress = nil
	if got := Normalize(raw, nil, nil).Order.CustomerName; got != "First Last" {
		t.Fatalf("expected customer name, got %q", got)
	}

	raw.Customer = nil
	if got := Normalize(raw, nil, nil).Order.CustomerName; got != "Unknown" {
		t.Fatalf("expected Unknown fallback, got %q", got)
	}
}

func TestClassifyPayment(t *testing.T) {
	cases := []struct {
		name       string
		gateways   []string
		financial  string
		wantMethod enums.PaymentMethod
		wantStatus enums.PaymentStatus
	}{
		{"gift card wins", []string{"gift_card", "paymob"}, "paid", enums.PaymentMethodGiftCard, enums.PaymentStatusPaid},
		{"paymob before valu", []string{"Paymob Accept", "valu"}, "paid", enums.PaymentMethodPaymob, enums.PaymentStatusPaid},
		{"valu", []string{"valU installments"}, "partially_paid", enums.PaymentMethodValu, enums.PaymentStatusPartiallyPaid},
		{"generic card", []string{"shopify_payments"}, "paid", enums.PaymentMethodCard, enums.PaymentStatusPaid},
		{"fallback cod pending", []string{"Cash on Delivery (COD)"}, "pending", enums.PaymentMethodCOD, enums.PaymentStatusPending},
		{"no gateways", nil, "", enums.PaymentMethodCOD, enums.PaymentStatusPending},
		{"refunded", []string{"paymob"}, "refunded", enums.PaymentMethodPaymob, enums.PaymentStatusRefunded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, status := ClassifyPayment(tc.gateways, "", tc.financial)
			if method != tc.wantMethod {
				t.Fatalf("method = %s, want %s", method, tc.wantMethod)
			}
			if status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestNormalizeStatusAndArchivedDerivation(t *testing.T) {
	raw := baseRawOrder()
	normalized := Normalize(raw, nil, nil)
	if normalized.Order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", normalized.Order.Status)
	}
	if normalized.Order.Archived {
		t.Fatal("expected not archived")
	}

	cancelled := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	closed := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)
	raw.CancelledAt = &cancelled
	raw.ClosedAt = &closed
	normalized = Normalize(raw, nil, nil)
	if normalized.Order.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", normalized.Order.Status)
	}
	if !normalized.Order.Archived || normalized.Order.ArchivedAt == nil {
		t.Fatal("expected archived with timestamp")
	}
}

func TestNormalizeLineItemImagePriority(t *testing.T) {
	imageMap := map[shopify.ID]string{
		shopify.NormalizeID(600): "/variant-map.png",
		shopify.NormalizeID(500): "/product-map.png",
	}

	li := shopify.LineItem{
		ID:                   shopify.NormalizeID(1),
		ProductID:            shopify.NormalizeID(500),
		VariantID:            shopify.NormalizeID(600),
		Quantity:             1,
		Image:                &shopify.Image{Src: "/inline.png"},
		VariantImage:         &shopify.Image{Src: "/variant-inline.png"},
		VariantFeaturedImage: &shopify.Image{Src: "/variant-featured.png"},
		Images:               []shopify.Image{{Src: "/images-0.png"}},
		ProductImages:        []shopify.Image{{Src: "/product-images-0.png"}},
	}

	steps := []struct {
		drop func()
		want string
	}{
		{func() {}, "https://cdn.shopify.com/inline.png"},
		{func() { li.Image = nil }, "https://cdn.shopify.com/variant-inline.png"},
		{func() { li.VariantImage = nil }, "https://cdn.shopify.com/variant-featured.png"},
		{func() { li.VariantFeaturedImage = nil }, "https://cdn.shopify.com/images-0.png"},
		{func() { li.Images = nil }, "https://cdn.shopify.com/product-images-0.png"},
		{func() { li.ProductImages = nil }, "https://cdn.shopify.com/variant-map.png"},
		{func() { delete(imageMap, shopify.NormalizeID(600)) }, "https://cdn.shopify.com/product-map.png"},
		{func() { delete(imageMap, shopify.NormalizeID(500)) }, ""},
	}
	for i, step := range steps {
		step.drop()
		item := normalizeLineItem(li, imageMap, absolutizeForTest)
		if item.ImageURL != step.want {
			t.Fatalf("step %d: image = %q, want %q", i, item.ImageURL, step.want)
		}
	}
}

func TestNormalizeZeroQuantityItemFlaggedRemoved(t *testing.T) {
	raw := baseRawOrder()
	raw.LineItems = append(raw.LineItems, shopify.LineItem{
		ID:        shopify.NormalizeID(2),
		ProductID: shopify.NormalizeID(501),
		Title:     "Ghost",
		Quantity:  0,
		Price:     money("10.00"),
	})

	normalized := Normalize(raw, nil, nil)
	if len(normalized.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(normalized.Items))
	}
	if normalized.Items[0].IsRemoved {
		t.Fatal("live item must not be removed")
	}
	if !normalized.Items[1].IsRemoved {
		t.Fatal("zero quantity item must be removed")
	}
	if normalized.Order.Status == enums.OrderStatusCanceled {
		t.Fatal("order must not be canceled without a cancellation timestamp")
	}
}

func TestNormalizeRemovedMarkerAndFulfillmentSignals(t *testing.T) {
	cases := []struct {
		name string
		li   shopify.LineItem
		want bool
	}{
		{"removed fulfillment", shopify.LineItem{ID: shopify.NormalizeID(1), Quantity: 1, FulfillmentStatus: "removed"}, true},
		{"cancelled fulfillment", shopify.LineItem{ID: shopify.NormalizeID(2), Quantity: 1, FulfillmentStatus: "cancelled"}, true},
		{"marker property", shopify.LineItem{ID: shopify.NormalizeID(3), Quantity: 1, Properties: []shopify.Property{{Name: "_shopdesk_removed", Value: true}}}, true},
		{"live", shopify.LineItem{ID: shopify.NormalizeID(4), Quantity: 1, FulfillmentStatus: "fulfilled"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := upstreamMarkedRemoved(tc.li); got != tc.want {
				t.Fatalf("removed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeFinancialFields(t *testing.T) {
	raw := baseRawOrder()
	raw.TotalOutstanding = money("45.50")
	raw.ShippingLines = []shopify.ShippingLine{
		{Title: "Express", Price: money("20.00")},
		{Title: "", Price: money("5.00")},
	}

	normalized := Normalize(raw, nil, nil)
	if !normalized.Order.PaidAmount.Equal(money("74.50")) {
		t.Fatalf("paid = %s, want 74.50", normalized.Order.PaidAmount)
	}
	if !normalized.Order.Balance.Equal(money("45.50")) {
		t.Fatalf("balance = %s, want 45.50", normalized.Order.Balance)
	}
	if !normalized.Order.ShippingFees.Equal(money("25.00")) {
		t.Fatalf("shipping = %s, want 25.00", normalized.Order.ShippingFees)
	}
	if normalized.Order.ShippingMethod != "Express" {
		t.Fatalf("shipping method = %q", normalized.Order.ShippingMethod)
	}

	// Outstanding larger than total clamps paid to zero.
	raw.TotalOutstanding = money("500.00")
	normalized = Normalize(raw, nil, nil)
	if !normalized.Order.PaidAmount.IsZero() {
		t.Fatalf("paid = %s, want 0", normalized.Order.PaidAmount)
	}
}

func TestNormalizeOrderCodeFallbacks(t *testing.T) {
	raw := baseRawOrder()
	if got := Normalize(raw, nil, nil).Order.OrderCode; got != "#1001" {
		t.Fatalf("code = %q", got)
	}
	raw.Name = ""
	if got := Normalize(raw, nil, nil).Order.OrderCode; got != "#1001" {
		t.Fatalf("fallback code = %q", got)
	}
	raw.OrderNumber = 0
	if got := Normalize(raw, nil, nil).Order.OrderCode; got != "9001" {
		t.Fatalf("id fallback code = %q", got)
	}
}
