package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// CreateOrderInput is what a buyer submits to open an order.
type CreateOrderInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderResult struct {
	OrderID    uuid.UUID         `json:"orderId"`
	OrderNo    string            `json:"orderNo"`
	TotalPrice int64             `json:"totalPrice"`
	Status     enums.OrderStatus `json:"status"`
}

// PreparePaymentInput asks the gateway for a pay token on a PENDING order.
type PreparePaymentInput struct {
	OrderNo string
	UserID  uuid.UUID
}

type PreparePaymentResult struct {
	OrderNo     string `json:"orderNo"`
	PayToken    string `json:"payToken"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

// ApprovalInput is the gateway callback translated into domain values.
type ApprovalInput struct {
	OrderNo       string
	PayToken      string
	TransactionID string
	Approved      bool
	FailureReason string
	Method        *enums.PaymentMethod
	PaidAmount    int64
	ApprovedAt    time.Time
	Card          *CardDetailInput
	Bank          *BankDetailInput
}

type CardDetailInput struct {
	Issuer            string
	CardNumber        string
	InstallmentMonths int
	ApproveNo         string
}

type BankDetailInput struct {
	BankName      string
	AccountNumber string
	HolderName    string
}

type ApprovalResult struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNo       string              `json:"orderNo"`
	PaymentID     *uuid.UUID          `json:"paymentId,omitempty"`
	OrderStatus   enums.OrderStatus   `json:"orderStatus"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
}
