package shopify

import (
	"encoding/json"
	"testing"
)

func TestNormalizeIDCoercesNumericAndStringForms(t *testing.T) {
	numeric := NormalizeID(int64(111))
	str := NormalizeID("111")
	float := NormalizeID(float64(111))

	if numeric != str || numeric != float {
		t.Fatalf("expected one canonical form, got %q %q %q", numeric, str, float)
	}
}

func TestIDUnmarshalAcceptsNumberStringAndNull(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	raw := `{"a": 450789469, "b": "450789469", "c": null}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != payload.B {
		t.Fatalf("number and string forms diverged: %q vs %q", payload.A, payload.B)
	}
	if !payload.C.Empty() {
		t.Fatalf("null should decode empty, got %q", payload.C)
	}
}

func TestIDInt64(t *testing.T) {
	if got := NormalizeID("42").Int64(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := ID("not-a-number").Int64(); got != 0 {
		t.Fatalf("expected 0 for non-numeric id, got %d", got)
	}
}
