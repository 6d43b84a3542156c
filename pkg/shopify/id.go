package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is the canonical form of a Shopify identifier. Upstream payloads mix
// numeric and string representations for the same id; every identifier is
// normalized to this newtype at the decode boundary so lookups never miss on
// a type mismatch.
type ID string

// NormalizeID coerces any raw identifier representation into an ID.
func NormalizeID(raw any) ID {
	switch v := raw.(type) {
	case nil:
		return ""
	case ID:
		return v
	case string:
		return ID(strings.TrimSpace(v))
	case json.Number:
		return ID(v.String())
	case int:
		return ID(strconv.Itoa(v))
	case int64:
		return ID(strconv.FormatInt(v, 10))
	case float64:
		// JSON numbers decode as float64. Shopify ids are integral.
		return ID(strconv.FormatInt(int64(v), 10))
	default:
		return ID(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// Empty reports whether the id carries no value.
func (id ID) Empty() bool {
	return strings.TrimSpace(string(id)) == ""
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Int64 returns the numeric form, or 0 when the id is not numeric.
func (id ID) Int64() int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// UnmarshalJSON accepts numbers, strings, and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NormalizeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("shopify id must be a string or number: %w", err)
	}
	*id = NormalizeID(n)
	return nil
}

// MarshalJSON writes the id as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}
