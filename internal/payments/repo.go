package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// Repository defines persistence operations for payments and their detail
// sub-records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Payment, error)
	Transition(ctx context.Context, paymentID uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error)
	TransitionByOrder(ctx context.Context, orderID uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error)
	CreateCardDetail(ctx context.Context, detail *models.PaymentCardDetail) error
	CreateBankDetail(ctx context.Context, detail *models.PaymentBankDetail) error
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a payments repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Card", "Bank").Create(payment).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Card").
		Preload("Bank").
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Transition moves a payment to `to` only while it is still in one of `from`.
// The boolean reports whether this caller performed the change.
func (r *repository) Transition(ctx context.Context, paymentID uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	return r.transition(ctx, "id = ?", paymentID, from, to, updates)
}

// TransitionByOrder is Transition keyed by the owning order.
func (r *repository) TransitionByOrder(ctx context.Context, orderID uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	return r.transition(ctx, "order_id = ?", orderID, from, to, updates)
}

func (r *repository) transition(ctx context.Context, where string, key uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{}
	for k, v := range updates {
		values[k] = v
	}
	values["payment_status"] = to
	values["updated_at"] = r.now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where(where, key).
		Where("payment_status IN ?", from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateCardDetail(ctx context.Context, detail *models.PaymentCardDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

func (r *repository) CreateBankDetail(ctx context.Context, detail *models.PaymentBankDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}
