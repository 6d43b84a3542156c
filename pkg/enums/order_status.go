package enums

import "fmt"

// OrderStatus tracks the back-office lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusPartial    OrderStatus = "partial"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusReturn     OrderStatus = "return"
	OrderStatusHandToHand OrderStatus = "hand_to_hand"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAssigned,
	OrderStatusDelivered,
	OrderStatusPartial,
	OrderStatusCanceled,
	OrderStatusReturn,
	OrderStatusHandToHand,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// Progressed reports whether the status has moved past the initial pending
// state. A progressed status is never regressed to pending by a sync pass.
func (o OrderStatus) Progressed() bool {
	return o != "" && o != OrderStatusPending
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
