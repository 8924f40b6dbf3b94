package enums

import "fmt"

// OrderStatus tracks where an order sits in its payment lifecycle.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusReady    OrderStatus = "READY"
	OrderStatusDone     OrderStatus = "DONE"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusReady,
	OrderStatusDone,
	OrderStatusFailed,
	OrderStatusCanceled,
	OrderStatusRefunded,
}

// OpenOrderStatuses are the statuses from which an order can still be paid,
// failed or canceled.
var OpenOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusReady}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order has not reached a resolved state yet.
func (s OrderStatus) IsOpen() bool {
	for _, candidate := range OpenOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
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
