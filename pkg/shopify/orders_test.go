package shopify

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestNextPageInfoParsesLinkHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Link", `<https://x.myshopify.com/admin/api/2024-10/orders.json?page_info=abc123&limit=250>; rel="next", <https://x.myshopify.com/admin/api/2024-10/orders.json?page_info=zzz>; rel="previous"`)

	if got := nextPageInfo(header); got != "abc123" {
		t.Fatalf("expected abc123, got %q", got)
	}
}

func TestNextPageInfoEmptyWithoutNextRel(t *testing.T) {
	header := http.Header{}
	header.Set("Link", `<https://x.myshopify.com/admin/api/2024-10/orders.json?page_info=zzz>; rel="previous"`)
	if got := nextPageInfo(header); got != "" {
		t.Fatalf("expected empty page info, got %q", got)
	}
}

func TestOrderDecodeCoercesMoneyAndIDs(t *testing.T) {
	raw := `{
		"id": 820982911946154500,
		"name": "#1001",
		"total_price": "398.00",
		"subtotal_price": 380,
		"financial_status": "paid",
		"line_items": [
			{"id": "866550311766439020", "product_id": 632910392, "quantity": 1, "price": "199.00"}
		]
	}`
	var order Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID.Empty() {
		t.Fatal("order id missing")
	}
	if order.TotalPrice.StringFixed(2) != "398.00" {
		t.Fatalf("expected total 398.00, got %s", order.TotalPrice)
	}
	if order.SubtotalPrice.StringFixed(2) != "380.00" {
		t.Fatalf("expected subtotal 380.00, got %s", order.SubtotalPrice)
	}
	if len(order.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(order.LineItems))
	}
	if order.LineItems[0].ProductID != NormalizeID("632910392") {
		t.Fatalf("product id not canonical: %q", order.LineItems[0].ProductID)
	}
}
