package enums

import "testing"

func TestOrderStatusIsOpen(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusReady} {
		if !s.IsOpen() {
			t.Fatalf("%s should be open", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusDone, OrderStatusFailed, OrderStatusCanceled, OrderStatusRefunded} {
		if s.IsOpen() {
			t.Fatalf("%s should be resolved", s)
		}
	}
}

func TestPaymentStatusRefundStarted(t *testing.T) {
	if !PaymentStatusRefundRequested.RefundStarted() || !PaymentStatusRefunded.RefundStarted() {
		t.Fatal("refund states should report started")
	}
	if PaymentStatusRefundFailed.RefundStarted() || PaymentStatusDone.RefundStarted() {
		t.Fatal("failed or completed payments have no refund in flight")
	}
}

func TestParsePaymentMethodIgnoresCase(t *testing.T) {
	got, err := ParsePaymentMethod(" card ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != PaymentMethodCard {
		t.Fatalf("got %s", got)
	}
	if _, err := ParsePaymentMethod("CRYPTO"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}
