package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// RefundInput is a buyer's full-refund request.
type RefundInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  string
}

type RefundResult struct {
	PaymentID    uuid.UUID           `json:"paymentId"`
	OrderID      uuid.UUID           `json:"orderId"`
	RefundNo     string              `json:"refundNo"`
	RefundAmount int64               `json:"refundAmount"`
	RefundReason string              `json:"refundReason"`
	RefundStatus enums.PaymentStatus `json:"refundStatus"`
	RefundedAt   time.Time           `json:"refundedAt"`
}

// PaymentDetail is the buyer-facing view of a payment. Card and account
// numbers are masked.
type PaymentDetail struct {
	PaymentID           uuid.UUID            `json:"paymentId"`
	OrderID             uuid.UUID            `json:"orderId"`
	Status              enums.PaymentStatus  `json:"status"`
	Method              *enums.PaymentMethod `json:"method,omitempty"`
	Amount              int64                `json:"amount"`
	PaidAmount          int64                `json:"paidAmount"`
	TransactionID       *string              `json:"transactionId,omitempty"`
	ApprovedAt          *time.Time           `json:"approvedAt,omitempty"`
	RefundReason        *string              `json:"refundReason,omitempty"`
	RefundedAt          *time.Time           `json:"refundedAt,omitempty"`
	Refundable          bool                 `json:"refundable"`
	NonRefundableCode   string               `json:"nonRefundableCode,omitempty"`
	NonRefundableReason string               `json:"nonRefundableReason,omitempty"`
	Card                *CardDetailDTO       `json:"card,omitempty"`
	Bank                *BankDetailDTO       `json:"bank,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
}

type CardDetailDTO struct {
	Issuer            string `json:"issuer"`
	CardNumber        string `json:"cardNumber"`
	InstallmentMonths int    `json:"installmentMonths"`
	ApproveNo         string `json:"approveNo,omitempty"`
}

type BankDetailDTO struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName,omitempty"`
}

func detailFromModel(payment *models.Payment) PaymentDetail {
	detail := PaymentDetail{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Status:        payment.Status,
		Method:        payment.Method,
		Amount:        payment.Amount,
		PaidAmount:    payment.PaidAmount,
		TransactionID: payment.TransactionID,
		ApprovedAt:    payment.ApprovedAt,
		RefundReason:  payment.RefundReason,
		RefundedAt:    payment.RefundedAt,
		CreatedAt:     payment.CreatedAt,
	}
	if payment.Card != nil {
		detail.Card = &CardDetailDTO{
			Issuer:            payment.Card.Issuer,
			CardNumber:        maskDigits(payment.Card.CardNumber),
			InstallmentMonths: payment.Card.InstallmentMonths,
			ApproveNo:         payment.Card.ApproveNo,
		}
	}
	if payment.Bank != nil {
		detail.Bank = &BankDetailDTO{
			BankName:      payment.Bank.BankName,
			AccountNumber: maskDigits(payment.Bank.AccountNumber),
			HolderName:    payment.Bank.HolderName,
		}
	}
	return detail
}

// maskDigits hides every digit except the last four, keeping separators.
func maskDigits(value string) string {
	digits := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	out := []rune(value)
	seen := 0
	for i, r := range out {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen <= digits-4 {
			out[i] = '*'
		}
	}
	return string(out)
}
