package types

import "strings"

// Address is the denormalized shipping or billing address snapshot stored
// with an order. Persisted as jsonb.
type Address struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

// DisplayName returns the trimmed contact name, or empty when unset.
func (a *Address) DisplayName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.Name)
}

// Empty reports whether no field carries a value.
func (a *Address) Empty() bool {
	if a == nil {
		return true
	}
	return a.Name == "" && a.Phone == "" && a.Address1 == "" && a.Address2 == "" &&
		a.City == "" && a.Province == "" && a.Country == "" && a.Zip == ""
}
