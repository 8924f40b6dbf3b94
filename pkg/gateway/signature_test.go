package gateway

import (
	"strings"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"orderNo":"ORD-1","status":"APPROVED"}`)
	sig := Sign("whsec", body)

	if !VerifySignature("whsec", body, sig) {
		t.Fatal("expected signature to verify")
	}
	if VerifySignature("other", body, sig) {
		t.Fatal("signature verified with wrong secret")
	}
	if VerifySignature("whsec", append(body, ' '), sig) {
		t.Fatal("signature verified with tampered body")
	}
	if VerifySignature("whsec", body, "zz-not-hex") {
		t.Fatal("malformed signature accepted")
	}
	if VerifySignature("whsec", body, "") {
		t.Fatal("empty signature accepted")
	}
}

func TestCallbackHelpers(t *testing.T) {
	cb := Callback{OrderNo: "ORD-1", TransactionID: "tx-1", Status: "approved"}
	if !cb.Approved() {
		t.Fatal("expected approved callback")
	}
	if cb.DedupeKey() != "ORD-1:tx-1" {
		t.Fatalf("unexpected dedupe key %q", cb.DedupeKey())
	}
	failed := Callback{OrderNo: "ORD-2", Status: CallbackFailed}
	if failed.Approved() {
		t.Fatal("failed callback reported approved")
	}
	if failed.DedupeKey() != "ORD-2:FAILED" {
		t.Fatalf("unexpected dedupe key %q", failed.DedupeKey())
	}
}

func TestNewRefundNo(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))
	a := NewRefundNo(now)
	b := NewRefundNo(now)
	if a == b {
		t.Fatal("refund numbers must be unique")
	}
	if !strings.HasPrefix(a, "RF20260301") || len(a) != 2+8+20 {
		t.Fatalf("unexpected refund number %q", a)
	}
}
