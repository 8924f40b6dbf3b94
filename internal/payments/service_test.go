package payments

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/internal/inventory"
	"github.com/angelmondragon/tripmarket-backend/pkg/db"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
	"github.com/angelmondragon/tripmarket-backend/pkg/metrics"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
)

type stubRefunder struct {
	mu     sync.Mutex
	calls  []gateway.RefundParams
	result *gateway.RefundResult
	err    error
}

func (s *stubRefunder) Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// orderRefunder mirrors the orders service transition without importing it.
type orderRefunder struct{}

func (orderRefunder) MarkRefunded(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	res := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusDone).
		Updates(map[string]any{"status": enums.OrderStatusRefunded, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOrderStatus, "order not done")
	}
	var order models.Order
	if err := tx.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

type refundCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *refundCounts) RefundRequest(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[result]++
}

type refundHarness struct {
	db      *gorm.DB
	svc     Service
	gw      *stubRefunder
	metrics *refundCounts
	outbox  *outbox.Repository
	now     time.Time
}

func newRefundHarness(t *testing.T, restore bool) *refundHarness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: &bytes.Buffer{}})
	outboxRepo := outbox.NewRepository(conn)
	h := &refundHarness{
		db:      conn,
		gw:      &stubRefunder{result: &gateway.RefundResult{RefundTransactionID: "rf_tx_1"}},
		metrics: &refundCounts{},
		outbox:  outboxRepo,
		now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:                 NewRepository(conn),
		Orders:               orderRefunder{},
		Ledger:               inventory.NewLedger(conn),
		Gateway:              h.gw,
		Tx:                   db.Wrap(conn),
		Outbox:               outbox.NewService(outboxRepo, logg),
		Metrics:              h.metrics,
		Logger:               logg,
		RefundWindow:         7 * 24 * time.Hour,
		RestoreStockOnRefund: restore,
		Now:                  func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

type paidOrder struct {
	user    models.User
	product models.Product
	order   models.Order
	payment models.Payment
}

func (h *refundHarness) seedPaid(t *testing.T, paidAt time.Time) paidOrder {
	t.Helper()
	user := dbtest.SeedUser(t, h.db)
	product := dbtest.SeedProduct(t, h.db, 50000, 8)
	order := dbtest.SeedOrder(t, h.db, dbtest.OrderSeed{
		UserID:           user.ID,
		Product:          product,
		Quantity:         2,
		Status:           enums.OrderStatusDone,
		StockDecremented: true,
		CreatedAt:        paidAt,
	})
	payment := dbtest.SeedPayment(t, h.db, dbtest.PaymentSeed{Order: order, CreatedAt: paidAt})
	return paidOrder{user: user, product: product, order: order, payment: payment}
}

func (h *refundHarness) payment(t *testing.T, id uuid.UUID) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, h.db.First(&payment, "id = ?", id).Error)
	return payment
}

func (h *refundHarness) orderStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, h.db.First(&order, "id = ?", id).Error)
	return order.Status
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
}

func TestRequestRefundSettlesOrderAndRestoresStock(t *testing.T) {
	h := newRefundHarness(t, true)
	seeded := h.seedPaid(t, h.now.Add(-24*time.Hour))

	res, err := h.svc.RequestRefund(context.Background(), RefundInput{
		OrderID: seeded.order.ID,
		UserID:  seeded.user.ID,
		Reason:  "schedule changed",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, res.RefundStatus)
	assert.Equal(t, seeded.payment.PaidAmount, res.RefundAmount)
	assert.Equal(t, h.now, res.RefundedAt)

	require.Len(t, h.gw.calls, 1)
	assert.Equal(t, seeded.payment.PayToken, h.gw.calls[0].PayToken)
	assert.Equal(t, res.RefundNo, h.gw.calls[0].RefundNo)

	payment := h.payment(t, seeded.payment.ID)
	assert.Equal(t, enums.PaymentStatusRefunded, payment.Status)
	require.NotNil(t, payment.RefundTransactionID)
	assert.Equal(t, "rf_tx_1", *payment.RefundTransactionID)
	require.NotNil(t, payment.RefundRequestedBy)
	assert.Equal(t, seeded.user.ID, *payment.RefundRequestedBy)
	require.NotNil(t, payment.RefundReason)
	assert.Equal(t, "schedule changed", *payment.RefundReason)

	assert.Equal(t, enums.OrderStatusRefunded, h.orderStatus(t, seeded.order.ID))
	assert.Equal(t, 10, dbtest.ProductStock(t, h.db, seeded.product.ID))

	events, err := h.outbox.ListByAggregate(nil, seeded.order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderRefunded, events[0].EventType)
	assert.Equal(t, 1, h.metrics.counts[metrics.RefundSucceeded])
}

func TestRequestRefundWithoutStockRestore(t *testing.T) {
	h := newRefundHarness(t, false)
	seeded := h.seedPaid(t, h.now.Add(-time.Hour))

	_, err := h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "ill"})
	require.NoError(t, err)
	assert.Equal(t, 8, dbtest.ProductStock(t, h.db, seeded.product.ID))
}

func TestRefundWindowBoundary(t *testing.T) {
	window := 7 * 24 * time.Hour

	t.Run("one second inside the window", func(t *testing.T) {
		h := newRefundHarness(t, true)
		seeded := h.seedPaid(t, h.now.Add(-window+time.Second))
		payment, err := h.svc.ValidateEligibility(context.Background(), seeded.order.ID, seeded.user.ID)
		require.NoError(t, err)
		assert.Equal(t, seeded.payment.ID, payment.ID)
	})

	t.Run("one second past the window", func(t *testing.T) {
		h := newRefundHarness(t, true)
		seeded := h.seedPaid(t, h.now.Add(-window-time.Second))
		_, err := h.svc.ValidateEligibility(context.Background(), seeded.order.ID, seeded.user.ID)
		requireCode(t, err, pkgerrors.CodeRefundTimeExpired)

		_, err = h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "late"})
		requireCode(t, err, pkgerrors.CodeRefundTimeExpired)
		assert.Empty(t, h.gw.calls)
	})
}

func TestRequestRefundTwiceIsRejected(t *testing.T) {
	h := newRefundHarness(t, true)
	seeded := h.seedPaid(t, h.now.Add(-time.Hour))
	input := RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "changed plans"}

	_, err := h.svc.RequestRefund(context.Background(), input)
	require.NoError(t, err)

	_, err = h.svc.RequestRefund(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeRefundAlreadyRequested)
	assert.Len(t, h.gw.calls, 1)
	assert.Equal(t, 10, dbtest.ProductStock(t, h.db, seeded.product.ID), "stock restored once")
}

func TestConcurrentRefundsCallGatewayOnce(t *testing.T) {
	h := newRefundHarness(t, true)
	seeded := h.seedPaid(t, h.now.Add(-time.Hour))
	input := RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "duplicate click"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.RequestRefund(context.Background(), input)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, pkgerrors.CodeRefundAlreadyRequested)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, h.gw.calls, 1)
}

func TestRequestRefundGatewayFailureKeepsOrder(t *testing.T) {
	h := newRefundHarness(t, true)
	h.gw.err = pkgerrors.New(pkgerrors.CodeExternalAPI, "gateway returned 500")
	seeded := h.seedPaid(t, h.now.Add(-time.Hour))

	_, err := h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "weather"})
	requireCode(t, err, pkgerrors.CodeRefundProcessing)

	payment := h.payment(t, seeded.payment.ID)
	assert.Equal(t, enums.PaymentStatusRefundFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, enums.OrderStatusDone, h.orderStatus(t, seeded.order.ID))
	assert.Equal(t, 8, dbtest.ProductStock(t, h.db, seeded.product.ID))

	events, err := h.outbox.ListByAggregate(nil, seeded.payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventRefundFailed, events[0].EventType)

	_, err = h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "again"})
	requireCode(t, err, pkgerrors.CodeInvalidPaymentStatus)
	assert.Len(t, h.gw.calls, 1, "failed refunds are not retried")
	assert.Equal(t, 1, h.metrics.counts[metrics.RefundFailed])
}

func TestRequestRefundRequiresOwnership(t *testing.T) {
	h := newRefundHarness(t, true)
	seeded := h.seedPaid(t, h.now.Add(-time.Hour))

	_, err := h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: uuid.New(), Reason: "not mine"})
	requireCode(t, err, pkgerrors.CodePaymentNotFound)

	_, err = h.svc.RequestRefund(context.Background(), RefundInput{OrderID: seeded.order.ID, UserID: seeded.user.ID, Reason: "  "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestValidateEligibilityRejectsUnpaid(t *testing.T) {
	h := newRefundHarness(t, true)
	user := dbtest.SeedUser(t, h.db)
	product := dbtest.SeedProduct(t, h.db, 1000, 1)
	order := dbtest.SeedOrder(t, h.db, dbtest.OrderSeed{UserID: user.ID, Product: product, Status: enums.OrderStatusReady})
	dbtest.SeedPayment(t, h.db, dbtest.PaymentSeed{Order: order, Status: enums.PaymentStatusReady, CreatedAt: h.now})

	_, err := h.svc.ValidateEligibility(context.Background(), order.ID, user.ID)
	requireCode(t, err, pkgerrors.CodeInvalidPaymentStatus)
}

func TestGetPaymentDetailMasksAndReportsRefundability(t *testing.T) {
	h := newRefundHarness(t, true)
	seeded := h.seedPaid(t, h.now.Add(-8*24*time.Hour))
	require.NoError(t, h.db.Create(&models.PaymentCardDetail{
		PaymentID:  seeded.payment.ID,
		Issuer:     "SHINHAN",
		CardNumber: "1234-5678-9012-3456",
	}).Error)

	detail, err := h.svc.GetPaymentDetail(context.Background(), seeded.order.ID, seeded.user.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Card)
	assert.Equal(t, "****-****-****-3456", detail.Card.CardNumber)
	assert.False(t, detail.Refundable)
	assert.Equal(t, string(pkgerrors.CodeRefundTimeExpired), detail.NonRefundableCode)
	assert.Contains(t, detail.NonRefundableReason, "refunds are only possible within")

	_, err = h.svc.GetPaymentDetail(context.Background(), seeded.order.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodePaymentNotFound)
}

func TestMaskDigits(t *testing.T) {
	cases := map[string]string{
		"110-123-456789": "***-***-**6789",
		"1234":           "1234",
		"":               "",
	}
	for in, want := range cases {
		if got := maskDigits(in); got != want {
			t.Fatalf("maskDigits(%q) = %q, want %q", in, got, want)
		}
	}
}
