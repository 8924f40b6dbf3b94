package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/internal/inventory"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
	"github.com/angelmondragon/tripmarket-backend/pkg/metrics"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox/payloads"
)

const (
	defaultRefundWindow = 7 * 24 * time.Hour
	maxRefundReasonLen  = 500
)

// ServiceParams wires the refund workflow.
type ServiceParams struct {
	Repo                 Repository
	Orders               OrderRefunder
	Ledger               *inventory.Ledger
	Gateway              GatewayRefunder
	Tx                   txRunner
	Outbox               outboxPublisher
	Metrics              refundRecorder
	Logger               *logger.Logger
	RefundWindow         time.Duration
	RestoreStockOnRefund bool
	Now                  func() time.Time
}

type service struct {
	repo            Repository
	orders          OrderRefunder
	ledger          *inventory.Ledger
	gateway         GatewayRefunder
	tx              txRunner
	outbox          outboxPublisher
	metrics         refundRecorder
	logg            *logger.Logger
	refundWindow    time.Duration
	restoreOnRefund bool
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order refunder required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway refunder required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	window := params.RefundWindow
	if window <= 0 {
		window = defaultRefundWindow
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:            params.Repo,
		orders:          params.Orders,
		ledger:          params.Ledger,
		gateway:         params.Gateway,
		tx:              params.Tx,
		outbox:          params.Outbox,
		metrics:         params.Metrics,
		logg:            params.Logger,
		refundWindow:    window,
		restoreOnRefund: params.RestoreStockOnRefund,
		now:             now,
	}, nil
}

// ValidateEligibility loads the buyer's payment and checks it can still be
// refunded.
func (s *service) ValidateEligibility(ctx context.Context, orderID, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByOrderAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if err := s.eligibility(payment, s.now().UTC()); err != nil {
		return nil, err
	}
	return payment, nil
}

// eligibility is shared by ValidateEligibility and GetPaymentDetail.
func (s *service) eligibility(payment *models.Payment, now time.Time) error {
	if payment.Status.RefundStarted() {
		return pkgerrors.New(pkgerrors.CodeRefundAlreadyRequested, "refund already requested for this payment")
	}
	if payment.Status != enums.PaymentStatusDone {
		return pkgerrors.New(pkgerrors.CodeInvalidPaymentStatus, "only completed payments can be refunded").
			WithDetails(map[string]any{"status": payment.Status})
	}
	if payment.CreatedAt.Before(now.Add(-s.refundWindow)) {
		return pkgerrors.New(pkgerrors.CodeRefundTimeExpired, fmt.Sprintf("refunds are only possible within %s of payment", s.refundWindow))
	}
	return nil
}

// RequestRefund claims the payment, asks the gateway to cancel it and settles
// the outcome. The gateway call happens between two transactions so no row
// lock is held while waiting on the network.
func (s *service) RequestRefund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}
	if len(reason) > maxRefundReasonLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is too long").
			WithDetails(map[string]any{"max": maxRefundReasonLen})
	}

	payment, err := s.ValidateEligibility(ctx, input.OrderID, input.UserID)
	if err != nil {
		s.recordRefund(metrics.RefundRejected)
		return nil, err
	}

	logCtx := s.logg.WithPaymentID(s.logg.WithOrder(ctx, payment.OrderID.String(), ""), payment.ID.String())
	now := s.now().UTC()
	refundNo := gateway.NewRefundNo(now)
	claimed, err := s.repo.Transition(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusDone}, enums.PaymentStatusRefundRequested, map[string]any{
		"refund_no":           refundNo,
		"refund_reason":       reason,
		"refund_requested_by": input.UserID,
		"refund_requested_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment for refund")
	}
	if !claimed {
		s.recordRefund(metrics.RefundRejected)
		return nil, pkgerrors.New(pkgerrors.CodeRefundAlreadyRequested, "refund already requested for this payment")
	}

	refund, gwErr := s.gateway.Refund(ctx, gateway.RefundParams{
		PayToken: payment.PayToken,
		RefundNo: refundNo,
		Amount:   payment.PaidAmount,
		Reason:   reason,
	})
	if gwErr != nil {
		s.logg.Warn(logCtx, fmt.Sprintf("gateway refund failed: %v", gwErr))
		if err := s.markRefundFailed(ctx, payment, refundNo, gwErr); err != nil {
			s.logg.Error(logCtx, "failed to record refund failure", err)
		}
		s.recordRefund(metrics.RefundFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeRefundProcessing, gwErr, "gateway refund failed")
	}

	refundedAt := refund.RefundedAt.UTC()
	if refund.RefundedAt.IsZero() {
		refundedAt = s.now().UTC()
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{"refunded_at": refundedAt}
		if refund.RefundTransactionID != "" {
			updates["refund_transaction_id"] = refund.RefundTransactionID
		}
		moved, err := s.repo.WithTx(tx).Transition(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusRefundRequested}, enums.PaymentStatusRefunded, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidPaymentStatus, "payment left refund requested state")
		}

		order, err := s.orders.MarkRefunded(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}

		restored := false
		if s.restoreOnRefund && order.StockDecremented {
			if err := s.ledger.WithTx(tx).Increment(ctx, order.ProductID, order.Quantity); err != nil {
				return err
			}
			restored = true
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.UserActor(input.UserID),
			OccurredAt:    refundedAt,
			Data: payloads.OrderRefundedEvent{
				OrderID:             order.ID,
				OrderNo:             order.OrderNo,
				PaymentID:           payment.ID,
				RefundNo:            refundNo,
				RefundTransactionID: refund.RefundTransactionID,
				Amount:              payment.PaidAmount,
				StockRestored:       restored,
				RefundedAt:          refundedAt,
			},
		})
	})
	if err != nil {
		// The gateway already refunded; the payment stays REFUND_REQUESTED for
		// manual reconciliation.
		s.logg.Error(logCtx, "failed to settle refund after gateway success", err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle refund")
	}

	s.recordRefund(metrics.RefundSucceeded)
	s.logg.Info(logCtx, "payment refunded")

	return &RefundResult{
		PaymentID:    payment.ID,
		OrderID:      payment.OrderID,
		RefundNo:     refundNo,
		RefundAmount: payment.PaidAmount,
		RefundReason: reason,
		RefundStatus: enums.PaymentStatusRefunded,
		RefundedAt:   refundedAt,
	}, nil
}

func (s *service) markRefundFailed(ctx context.Context, payment *models.Payment, refundNo string, cause error) error {
	reason := cause.Error()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).Transition(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusRefundRequested}, enums.PaymentStatusRefundFailed, map[string]any{
			"failure_reason": reason,
		})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         outbox.SystemActor(),
			Data: payloads.RefundFailedEvent{
				OrderID:   payment.OrderID,
				PaymentID: payment.ID,
				RefundNo:  refundNo,
				Reason:    reason,
			},
		})
	})
}

// GetPaymentDetail returns the masked payment view with its refundability.
func (s *service) GetPaymentDetail(ctx context.Context, orderID, userID uuid.UUID) (*PaymentDetail, error) {
	payment, err := s.repo.FindByOrderAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	detail := detailFromModel(payment)
	if err := s.eligibility(payment, s.now().UTC()); err != nil {
		typed := pkgerrors.As(err)
		detail.NonRefundableCode = string(typed.Code())
		detail.NonRefundableReason = typed.Message()
	} else {
		detail.Refundable = true
	}
	return &detail, nil
}

func (s *service) recordRefund(result string) {
	if s.metrics != nil {
		s.metrics.RefundRequest(result)
	}
}
