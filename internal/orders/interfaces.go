package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	LockByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	ListOpenCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// Service is the order lifecycle manager.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	PreparePayment(ctx context.Context, input PreparePaymentInput) (*PreparePaymentResult, error)
	ApprovePayment(ctx context.Context, input ApprovalInput) (*ApprovalResult, error)
	MarkRefunded(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// PaymentAuthorizer opens a checkout at the payment gateway.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, params gateway.AuthorizeParams) (*gateway.Authorization, error)
}

type transitionRecorder interface {
	OrderTransition(status string)
}
