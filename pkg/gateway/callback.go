package gateway

import (
	"strings"
	"time"
)

// Callback outcomes reported by the gateway.
const (
	CallbackApproved = "APPROVED"
	CallbackFailed   = "FAILED"
)

// Callback is the approval notification posted by the gateway once the buyer
// completes (or abandons) checkout.
type Callback struct {
	OrderNo       string     `json:"orderNo" validate:"required"`
	PayToken      string     `json:"payToken" validate:"required"`
	TransactionID string     `json:"transactionId"`
	Status        string     `json:"status" validate:"required,oneof=APPROVED FAILED"`
	Method        string     `json:"method"`
	Amount        string     `json:"amount"`
	FailureReason string     `json:"failureReason,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	Card          *CardInfo  `json:"card,omitempty"`
	Bank          *BankInfo  `json:"bank,omitempty"`
}

type CardInfo struct {
	Issuer            string `json:"issuer"`
	Number            string `json:"number"`
	InstallmentMonths int    `json:"installmentMonths"`
	ApproveNo         string `json:"approveNo"`
}

type BankInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName"`
}

// Approved reports whether the buyer's payment went through.
func (c Callback) Approved() bool {
	return strings.EqualFold(strings.TrimSpace(c.Status), CallbackApproved)
}

// DedupeKey identifies a callback delivery for idempotency purposes.
func (c Callback) DedupeKey() string {
	ref := c.TransactionID
	if ref == "" {
		ref = c.Status
	}
	return c.OrderNo + ":" + ref
}
