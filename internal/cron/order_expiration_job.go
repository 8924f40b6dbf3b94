package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/internal/inventory"
	"github.com/angelmondragon/tripmarket-backend/internal/orders"
	"github.com/angelmondragon/tripmarket-backend/internal/payments"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
	"github.com/angelmondragon/tripmarket-backend/pkg/metrics"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox/payloads"
)

const (
	defaultPendingTTL     = 5 * time.Minute
	defaultExpireBatch    = 500
	orderExpirationReason = "payment window elapsed"
)

// OrderExpirationJobParams configure the unpaid order sweeper.
type OrderExpirationJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   orders.Repository
	Payments payments.Repository
	Ledger   *inventory.Ledger
	Outbox   outboxEmitter
	Metrics  sweepRecorder
	// PendingTTL is how long an order may stay PENDING or READY.
	PendingTTL time.Duration
	// RestoreAlways returns stock for every canceled order, even ones that
	// never decremented it.
	RestoreAlways bool
	BatchSize     int
}

// NewOrderExpirationJob builds the cron job that cancels unpaid orders.
func NewOrderExpirationJob(params OrderExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &orderExpirationJob{
		logg:          params.Logger,
		db:            params.DB,
		orders:        params.Orders,
		payments:      params.Payments,
		ledger:        params.Ledger,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		ttl:           ttl,
		restoreAlways: params.RestoreAlways,
		batch:         batch,
		now:           time.Now,
	}, nil
}

type orderExpirationJob struct {
	logg          *logger.Logger
	db            txRunner
	orders        orders.Repository
	payments      payments.Repository
	ledger        *inventory.Ledger
	outbox        outboxEmitter
	metrics       sweepRecorder
	ttl           time.Duration
	restoreAlways bool
	batch         int
	now           func() time.Time
}

func (j *orderExpirationJob) Name() string { return "order-expiration" }

// Run cancels every open order created before now minus the TTL. Each order
// is handled in its own transaction and a failure on one never stops the rest.
func (j *orderExpirationJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	candidates, err := j.orders.ListOpenCreatedBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query expired orders: %w", err)
	}

	var errs error
	canceled, skipped, failed := 0, 0, 0
	for _, order := range candidates {
		won, err := j.expireOrder(ctx, order, now)
		switch {
		case err != nil:
			failed++
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.OrderNo, err))
		case won:
			canceled++
		default:
			skipped++
		}
	}

	j.record(metrics.SweepCanceled, canceled)
	j.record(metrics.SweepSkipped, skipped)
	j.record(metrics.SweepFailed, failed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(candidates),
		"canceled":   canceled,
		"skipped":    skipped,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "order expiration sweep complete")
	return errs
}

// expireOrder reports whether this run won the cancel. Losing the conditional
// update means the order was paid or canceled concurrently and nothing is
// compensated.
func (j *orderExpirationJob) expireOrder(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	won := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := j.orders.WithTx(tx).Transition(ctx, order.ID, enums.OpenOrderStatuses, enums.OrderStatusCanceled, map[string]any{
			"canceled_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}

		restored := false
		if order.StockDecremented || j.restoreAlways {
			if err := j.ledger.WithTx(tx).Increment(ctx, order.ProductID, order.Quantity); err != nil {
				return err
			}
			restored = true
		}

		if _, err := j.payments.WithTx(tx).TransitionByOrder(ctx, order.ID, []enums.PaymentStatus{enums.PaymentStatusReady}, enums.PaymentStatusExpired, nil); err != nil {
			return err
		}

		if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.SystemActor(),
			OccurredAt:    now,
			Data: payloads.OrderCanceledEvent{
				OrderID:       order.ID,
				OrderNo:       order.OrderNo,
				ProductID:     order.ProductID,
				Quantity:      order.Quantity,
				StockRestored: restored,
				Reason:        orderExpirationReason,
				CanceledAt:    now,
			},
		}); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

func (j *orderExpirationJob) record(outcome string, n int) {
	if j.metrics == nil || n == 0 {
		return
	}
	j.metrics.SweepOutcome(outcome, n)
}
