package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a payment record, including refunds.
type PaymentStatus string

const (
	PaymentStatusReady           PaymentStatus = "READY"
	PaymentStatusDone            PaymentStatus = "DONE"
	PaymentStatusFailed          PaymentStatus = "FAILED"
	PaymentStatusRefundRequested PaymentStatus = "REFUND_REQUESTED"
	PaymentStatusRefunded        PaymentStatus = "REFUNDED"
	PaymentStatusRefundFailed    PaymentStatus = "REFUND_FAILED"
	PaymentStatusExpired         PaymentStatus = "EXPIRED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusReady,
	PaymentStatusDone,
	PaymentStatusFailed,
	PaymentStatusRefundRequested,
	PaymentStatusRefunded,
	PaymentStatusRefundFailed,
	PaymentStatusExpired,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// RefundStarted reports whether a refund was already requested or completed.
func (p PaymentStatus) RefundStarted() bool {
	return p == PaymentStatusRefundRequested || p == PaymentStatusRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
