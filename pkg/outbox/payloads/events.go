package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a buyer opens a PENDING order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	UserID     uuid.UUID `json:"user_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice int64     `json:"total_price"`
}

// PaymentPreparedEvent is emitted once the gateway issued a pay token.
type PaymentPreparedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderNo   string    `json:"order_no"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    int64     `json:"amount"`
}

// OrderPaidEvent confirms stock was taken and the payment approved.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNo       string              `json:"order_no"`
	PaymentID     uuid.UUID           `json:"payment_id"`
	ProductID     uuid.UUID           `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	PaidAmount    int64               `json:"paid_amount"`
	Method        enums.PaymentMethod `json:"method,omitempty"`
	TransactionID string              `json:"transaction_id"`
	ApprovedAt    time.Time           `json:"approved_at"`
}

// PaymentFailedEvent is emitted when authorization or approval fails.
type PaymentFailedEvent struct {
	OrderID   uuid.UUID  `json:"order_id"`
	OrderNo   string     `json:"order_no"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	Reason    string     `json:"reason"`
}

// OrderCanceledEvent is emitted when an unpaid order expires.
type OrderCanceledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int       `json:"quantity"`
	StockRestored bool      `json:"stock_restored"`
	Reason        string    `json:"reason"`
	CanceledAt    time.Time `json:"canceled_at"`
}

// RefundFailedEvent is emitted when the gateway rejects a cancellation.
type RefundFailedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	RefundNo  string    `json:"refund_no"`
	Reason    string    `json:"reason"`
}

// OrderRefundedEvent is emitted after the gateway confirmed a refund.
type OrderRefundedEvent struct {
	OrderID             uuid.UUID `json:"order_id"`
	OrderNo             string    `json:"order_no"`
	PaymentID           uuid.UUID `json:"payment_id"`
	RefundNo            string    `json:"refund_no"`
	RefundTransactionID string    `json:"refund_transaction_id,omitempty"`
	Amount              int64     `json:"amount"`
	StockRestored       bool      `json:"stock_restored"`
	RefundedAt          time.Time `json:"refunded_at"`
}
