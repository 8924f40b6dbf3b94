package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/internal/inventory"
	"github.com/angelmondragon/tripmarket-backend/internal/payments"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox/payloads"
)

// ServiceParams wires the lifecycle manager.
type ServiceParams struct {
	Repo     Repository
	Payments payments.Repository
	Users    userLookup
	Products productLookup
	Ledger   *inventory.Ledger
	Gateway  PaymentAuthorizer
	Tx       txRunner
	Outbox   outboxPublisher
	Metrics  transitionRecorder
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	payments payments.Repository
	users    userLookup
	products productLookup
	ledger   *inventory.Ledger
	gateway  PaymentAuthorizer
	tx       txRunner
	outbox   outboxPublisher
	metrics  transitionRecorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates the dependencies and builds the order lifecycle manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
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
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		payments: params.Payments,
		users:    params.Users,
		products: params.Products,
		ledger:   params.Ledger,
		gateway:  params.Gateway,
		tx:       params.Tx,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CreateOrder opens a PENDING order priced from the product. Stock is not
// touched until the payment is approved.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if _, err := s.users.FindByID(ctx, input.UserID); err != nil {
		return nil, notFoundOr(err, pkgerrors.CodeUserNotFound, "user not found", "load user")
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFoundOr(err, pkgerrors.CodeEventProductNotFound, "event product not found", "load event product")
	}

	now := s.now().UTC()
	order := &models.Order{
		OrderNo:    NewOrderNo(now),
		UserID:     input.UserID,
		ProductID:  product.ID,
		Quantity:   input.Quantity,
		TotalPrice: product.Price * int64(input.Quantity),
		Status:     enums.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.UserActor(input.UserID),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				OrderNo:    order.OrderNo,
				UserID:     order.UserID,
				ProductID:  order.ProductID,
				Quantity:   order.Quantity,
				TotalPrice: order.TotalPrice,
			},
		})
	})
	if err != nil {
		return nil, asDependency(err, "create order")
	}

	s.recordTransition(enums.OrderStatusPending)
	logCtx := s.logg.WithOrder(ctx, order.ID.String(), order.OrderNo)
	s.logg.Info(logCtx, "order created")

	return &CreateOrderResult{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
	}, nil
}

// PreparePayment authorizes the order at the gateway and moves it to READY.
// The gateway call happens outside any transaction.
func (s *service) PreparePayment(ctx context.Context, input PreparePaymentInput) (*PreparePaymentResult, error) {
	orderNo := strings.TrimSpace(input.OrderNo)
	if orderNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderNo is required")
	}

	order, err := s.repo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, notFoundOr(err, pkgerrors.CodeOrderNotFound, "order not found", "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, invalidOrderStatus(order.Status, "payment can only be prepared for pending orders")
	}

	product, err := s.products.FindByID(ctx, order.ProductID)
	if err != nil {
		return nil, notFoundOr(err, pkgerrors.CodeEventProductNotFound, "event product not found", "load event product")
	}

	logCtx := s.logg.WithOrder(ctx, order.ID.String(), order.OrderNo)
	auth, gwErr := s.gateway.Authorize(ctx, gateway.AuthorizeParams{
		OrderNo:     order.OrderNo,
		UserID:      order.UserID.String(),
		ProductName: product.Title,
		Quantity:    order.Quantity,
		Amount:      order.TotalPrice,
	})
	if gwErr != nil {
		s.logg.Warn(logCtx, fmt.Sprintf("gateway authorization failed: %v", gwErr))
		if err := s.failAuthorization(ctx, order, gwErr); err != nil {
			s.logg.Error(logCtx, "failed to record authorization failure", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, gwErr, "payment authorization failed")
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).Transition(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusReady, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order ready")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidOrderStatus, "order changed while authorizing payment")
		}
		payment := &models.Payment{
			OrderID:  order.ID,
			UserID:   order.UserID,
			PayToken: auth.PayToken,
			Amount:   order.TotalPrice,
			Status:   enums.PaymentStatusReady,
		}
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentPrepared,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.UserActor(order.UserID),
			OccurredAt:    now,
			Data: payloads.PaymentPreparedEvent{
				OrderID:   order.ID,
				OrderNo:   order.OrderNo,
				PaymentID: payment.ID,
				Amount:    payment.Amount,
			},
		})
	})
	if err != nil {
		return nil, asDependency(err, "prepare payment")
	}

	s.recordTransition(enums.OrderStatusReady)
	s.logg.Info(logCtx, "payment prepared")

	return &PreparePaymentResult{
		OrderNo:     order.OrderNo,
		PayToken:    auth.PayToken,
		CheckoutURL: auth.CheckoutURL,
	}, nil
}

func (s *service) failAuthorization(ctx context.Context, order *models.Order, cause error) error {
	now := s.now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).Transition(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusFailed, nil)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		s.recordTransition(enums.OrderStatusFailed)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.SystemActor(),
			OccurredAt:    now,
			Data: payloads.PaymentFailedEvent{
				OrderID: order.ID,
				OrderNo: order.OrderNo,
				Reason:  cause.Error(),
			},
		})
	})
}

// ApprovePayment applies a gateway result to an open order. On success the
// stock decrement, the order and payment transitions and the order_paid event
// commit together; any failure rolls all of them back.
func (s *service) ApprovePayment(ctx context.Context, input ApprovalInput) (*ApprovalResult, error) {
	orderNo := strings.TrimSpace(input.OrderNo)
	if orderNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderNo is required")
	}

	now := s.now().UTC()
	var result ApprovalResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).LockByOrderNo(ctx, orderNo)
		if err != nil {
			return notFoundOr(err, pkgerrors.CodeOrderNotFound, "order not found", "lock order")
		}
		if !order.Status.IsOpen() {
			return invalidOrderStatus(order.Status, "order is no longer awaiting payment")
		}
		if !input.Approved {
			return s.recordDeclined(ctx, tx, order, input, now, &result)
		}
		return s.recordApproved(ctx, tx, order, input, now, &result)
	})
	if err != nil {
		return nil, asDependency(err, "approve payment")
	}

	logCtx := s.logg.WithOrder(ctx, result.OrderID.String(), result.OrderNo)
	s.recordTransition(result.OrderStatus)
	if result.OrderStatus == enums.OrderStatusFailed {
		s.logg.Warn(logCtx, "payment declined by gateway")
		reason := input.FailureReason
		if reason == "" {
			reason = "payment declined"
		}
		return &result, pkgerrors.New(pkgerrors.CodePaymentFailed, reason)
	}
	s.logg.Info(logCtx, "payment approved")
	return &result, nil
}

func (s *service) recordApproved(ctx context.Context, tx *gorm.DB, order *models.Order, input ApprovalInput, now time.Time, result *ApprovalResult) error {
	if err := s.ledger.WithTx(tx).Decrement(ctx, order.ProductID, order.Quantity); err != nil {
		return err
	}

	moved, err := s.repo.WithTx(tx).Transition(ctx, order.ID, enums.OpenOrderStatuses, enums.OrderStatusDone, map[string]any{
		"stock_decremented": true,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order done")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeInvalidOrderStatus, "order changed while approving payment")
	}

	if input.PaidAmount != 0 && input.PaidAmount != order.TotalPrice {
		logCtx := s.logg.WithOrder(ctx, order.ID.String(), order.OrderNo)
		s.logg.Warn(logCtx, fmt.Sprintf("paid amount %d differs from order total %d", input.PaidAmount, order.TotalPrice))
	}

	approvedAt := input.ApprovedAt.UTC()
	if input.ApprovedAt.IsZero() {
		approvedAt = now
	}
	payment, err := s.upsertApprovedPayment(ctx, tx, order, input, approvedAt)
	if err != nil {
		return err
	}
	if err := s.attachDetails(ctx, tx, payment.ID, input); err != nil {
		return err
	}

	event := payloads.OrderPaidEvent{
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		PaymentID:     payment.ID,
		ProductID:     order.ProductID,
		Quantity:      order.Quantity,
		PaidAmount:    payment.PaidAmount,
		TransactionID: input.TransactionID,
		ApprovedAt:    approvedAt,
	}
	if input.Method != nil {
		event.Method = *input.Method
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         outbox.GatewayActor(),
		OccurredAt:    now,
		Data:          event,
	}); err != nil {
		return err
	}

	paymentID := payment.ID
	*result = ApprovalResult{
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		PaymentID:     &paymentID,
		OrderStatus:   enums.OrderStatusDone,
		PaymentStatus: enums.PaymentStatusDone,
	}
	return nil
}

func (s *service) upsertApprovedPayment(ctx context.Context, tx *gorm.DB, order *models.Order, input ApprovalInput, approvedAt time.Time) (*models.Payment, error) {
	paymentRepo := s.payments.WithTx(tx)
	paidAmount := input.PaidAmount
	if paidAmount == 0 {
		paidAmount = order.TotalPrice
	}

	existing, err := paymentRepo.FindByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		updates := map[string]any{
			"paid_amount": paidAmount,
			"approved_at": approvedAt,
		}
		if input.TransactionID != "" {
			updates["transaction_id"] = input.TransactionID
		}
		if input.Method != nil {
			updates["method"] = *input.Method
		}
		moved, err := paymentRepo.Transition(ctx, existing.ID, []enums.PaymentStatus{enums.PaymentStatusReady}, enums.PaymentStatusDone, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment done")
		}
		if !moved {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidPaymentStatus, "payment is not awaiting approval").
				WithDetails(map[string]any{"status": existing.Status})
		}
		existing.Status = enums.PaymentStatusDone
		existing.PaidAmount = paidAmount
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment := &models.Payment{
			OrderID:    order.ID,
			UserID:     order.UserID,
			PayToken:   input.PayToken,
			Amount:     order.TotalPrice,
			PaidAmount: paidAmount,
			Status:     enums.PaymentStatusDone,
			Method:     input.Method,
			ApprovedAt: &approvedAt,
		}
		if input.TransactionID != "" {
			txID := input.TransactionID
			payment.TransactionID = &txID
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return payment, nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
}

func (s *service) attachDetails(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, input ApprovalInput) error {
	paymentRepo := s.payments.WithTx(tx)
	if input.Card != nil {
		if err := paymentRepo.CreateCardDetail(ctx, &models.PaymentCardDetail{
			PaymentID:         paymentID,
			Issuer:            input.Card.Issuer,
			CardNumber:        input.Card.CardNumber,
			InstallmentMonths: input.Card.InstallmentMonths,
			ApproveNo:         input.Card.ApproveNo,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store card detail")
		}
	}
	if input.Bank != nil {
		if err := paymentRepo.CreateBankDetail(ctx, &models.PaymentBankDetail{
			PaymentID:     paymentID,
			BankName:      input.Bank.BankName,
			AccountNumber: input.Bank.AccountNumber,
			HolderName:    input.Bank.HolderName,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store bank detail")
		}
	}
	return nil
}

func (s *service) recordDeclined(ctx context.Context, tx *gorm.DB, order *models.Order, input ApprovalInput, now time.Time, result *ApprovalResult) error {
	moved, err := s.repo.WithTx(tx).Transition(ctx, order.ID, enums.OpenOrderStatuses, enums.OrderStatusFailed, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeInvalidOrderStatus, "order changed while recording payment failure")
	}

	reason := input.FailureReason
	if reason == "" {
		reason = "payment declined"
	}
	paymentRepo := s.payments.WithTx(tx)
	var paymentID *uuid.UUID
	existing, err := paymentRepo.FindByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		if _, err := paymentRepo.Transition(ctx, existing.ID, []enums.PaymentStatus{enums.PaymentStatusReady}, enums.PaymentStatusFailed, map[string]any{
			"failure_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		id := existing.ID
		paymentID = &id
	case errors.Is(err, gorm.ErrRecordNotFound):
		if input.PayToken != "" {
			payment := &models.Payment{
				OrderID:       order.ID,
				UserID:        order.UserID,
				PayToken:      input.PayToken,
				Amount:        order.TotalPrice,
				Status:        enums.PaymentStatusFailed,
				Method:        input.Method,
				FailureReason: &reason,
			}
			if err := paymentRepo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create failed payment")
			}
			id := payment.ID
			paymentID = &id
		}
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         outbox.GatewayActor(),
		OccurredAt:    now,
		Data: payloads.PaymentFailedEvent{
			OrderID:   order.ID,
			OrderNo:   order.OrderNo,
			PaymentID: paymentID,
			Reason:    reason,
		},
	}); err != nil {
		return err
	}

	*result = ApprovalResult{
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		PaymentID:     paymentID,
		OrderStatus:   enums.OrderStatusFailed,
		PaymentStatus: enums.PaymentStatusFailed,
	}
	return nil
}

// MarkRefunded moves a DONE order to REFUNDED inside the caller's transaction.
func (s *service) MarkRefunded(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, pkgerrors.CodeOrderNotFound, "order not found", "load order")
	}
	moved, err := repo.Transition(ctx, orderID, []enums.OrderStatus{enums.OrderStatusDone}, enums.OrderStatusRefunded, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
	}
	if !moved {
		return nil, invalidOrderStatus(order.Status, "only paid orders can be refunded")
	}
	order.Status = enums.OrderStatusRefunded
	order.Version++
	s.recordTransition(enums.OrderStatusRefunded)
	return order, nil
}

func (s *service) recordTransition(status enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.OrderTransition(status.String())
	}
}

func invalidOrderStatus(status enums.OrderStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidOrderStatus, message).
		WithDetails(map[string]any{"status": status})
}

func notFoundOr(err error, code pkgerrors.Code, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(code, notFoundMsg)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func asDependency(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
