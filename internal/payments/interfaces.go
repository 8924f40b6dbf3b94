package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
)

// Service is the refund workflow plus read access to payment details.
type Service interface {
	ValidateEligibility(ctx context.Context, orderID, userID uuid.UUID) (*models.Payment, error)
	RequestRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
	GetPaymentDetail(ctx context.Context, orderID, userID uuid.UUID) (*PaymentDetail, error)
}

// OrderRefunder settles the order side of a refund inside the caller's
// transaction.
type OrderRefunder interface {
	MarkRefunded(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error)
}

// GatewayRefunder cancels an approved payment at the gateway.
type GatewayRefunder interface {
	Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refundRecorder interface {
	RefundRequest(result string)
}
