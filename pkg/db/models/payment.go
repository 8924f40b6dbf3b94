package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// Payment is the one-to-one payment record of an order, including the refund
// bookkeeping.
type Payment struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order_id"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	PayToken            string               `gorm:"column:pay_token;not null"`
	Amount              int64                `gorm:"column:amount;not null"`
	PaidAmount          int64                `gorm:"column:paid_amount;not null;default:0"`
	Status              enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null"`
	Method              *enums.PaymentMethod `gorm:"column:method;type:text"`
	TransactionID       *string              `gorm:"column:transaction_id"`
	RefundNo            *string              `gorm:"column:refund_no"`
	RefundTransactionID *string              `gorm:"column:refund_transaction_id"`
	RefundReason        *string              `gorm:"column:refund_reason"`
	RefundRequestedBy   *uuid.UUID           `gorm:"column:refund_requested_by;type:uuid"`
	RefundRequestedAt   *time.Time           `gorm:"column:refund_requested_at"`
	RefundedAt          *time.Time           `gorm:"column:refunded_at"`
	FailureReason       *string              `gorm:"column:failure_reason"`
	ApprovedAt          *time.Time           `gorm:"column:approved_at"`
	Card                *PaymentCardDetail   `gorm:"foreignKey:PaymentID"`
	Bank                *PaymentBankDetail   `gorm:"foreignKey:PaymentID"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaymentCardDetail holds the card data reported by the gateway on approval.
type PaymentCardDetail struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID         uuid.UUID `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	Issuer            string    `gorm:"column:issuer;not null"`
	CardNumber        string    `gorm:"column:card_number;not null"`
	InstallmentMonths int       `gorm:"column:installment_months;not null;default:0"`
	ApproveNo         string    `gorm:"column:approve_no"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (d *PaymentCardDetail) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// PaymentBankDetail holds the bank transfer data reported by the gateway.
type PaymentBankDetail struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID     uuid.UUID `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	BankName      string    `gorm:"column:bank_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	HolderName    string    `gorm:"column:holder_name"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (d *PaymentBankDetail) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
