package outbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

func deadLetter(orderID uuid.UUID, eventType enums.OutboxEventType, reason enums.OutboxDLQErrorReason, failedAt time.Time) models.OutboxDLQ {
	msg := "publish failed"
	return models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       []byte(`{"version":1,"data":{}}`),
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		FailedAt:      failedAt,
	}
}

func TestDLQInsertIgnoresSecondDeadLetterForSameEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	entry := deadLetter(uuid.New(), enums.EventOrderPaid, enums.OutboxDLQReasonMaxAttempts, time.Now().UTC())
	long := strings.Repeat("y", maxDLQErrorLen+5)
	entry.ErrorMessage = &long

	if err := repo.InsertTx(db, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	again := entry
	again.ID = uuid.Nil
	again.ErrorReason = enums.OutboxDLQReasonNonRetryable
	if err := repo.InsertTx(db, again); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	stored, err := repo.FindByEventID(context.Background(), entry.EventID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatal("expected dead letter")
	}
	if stored.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("first dead letter overwritten: %s", stored.ErrorReason)
	}
	if stored.ErrorMessage == nil || len(*stored.ErrorMessage) != maxDLQErrorLen {
		t.Fatalf("expected truncated error message")
	}
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	if err := repo.InsertTx(db, deadLetter(uuid.New(), enums.EventOrderPaid, "gave_up", time.Now())); err == nil {
		t.Fatal("expected error")
	}
	if err := repo.InsertTx(nil, models.OutboxDLQ{}); err == nil {
		t.Fatal("expected transaction error")
	}
}

func TestDLQListFiltersByOrderAndEventType(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	orderID := uuid.New()

	for _, entry := range []models.OutboxDLQ{
		deadLetter(orderID, enums.EventOrderCreated, enums.OutboxDLQReasonMaxAttempts, base),
		deadLetter(orderID, enums.EventOrderPaid, enums.OutboxDLQReasonNonRetryable, base.Add(time.Minute)),
		deadLetter(uuid.New(), enums.EventOrderPaid, enums.OutboxDLQReasonMaxAttempts, base.Add(2*time.Minute)),
	} {
		if err := repo.InsertTx(db, entry); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, err := repo.List(context.Background(), DLQFilter{AggregateID: &orderID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 dead letters for order, got %d", len(rows))
	}
	if rows[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected newest first, got %s", rows[0].EventType)
	}

	rows, err = repo.List(context.Background(), DLQFilter{EventType: enums.EventOrderPaid, Reason: enums.OutboxDLQReasonMaxAttempts})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].AggregateID == orderID {
		t.Fatalf("unexpected filtered rows: %+v", rows)
	}

	n, err := repo.CountForAggregateTx(db, enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 dead letters for order, got %d", n)
	}
}

func TestDLQCountByReasonReportsEveryReason(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	if err := repo.InsertTx(db, deadLetter(uuid.New(), enums.EventOrderRefunded, enums.OutboxDLQReasonMaxAttempts, time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	counts, err := repo.CountByReason(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[enums.OutboxDLQReasonMaxAttempts] != 1 {
		t.Fatalf("max_attempts = %d", counts[enums.OutboxDLQReasonMaxAttempts])
	}
	if got, ok := counts[enums.OutboxDLQReasonNonRetryable]; !ok || got != 0 {
		t.Fatalf("non_retryable should be reported as zero, got %d (present=%v)", got, ok)
	}
}
