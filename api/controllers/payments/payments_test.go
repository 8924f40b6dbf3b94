package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/api/middleware"
	internalpayments "github.com/angelmondragon/tripmarket-backend/internal/payments"
	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
)

type stubPaymentsService struct {
	refundInput internalpayments.RefundInput
	detailOrder uuid.UUID
	err         error
}

func (s *stubPaymentsService) ValidateEligibility(ctx context.Context, orderID, userID uuid.UUID) (*models.Payment, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) RequestRefund(ctx context.Context, input internalpayments.RefundInput) (*internalpayments.RefundResult, error) {
	s.refundInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &internalpayments.RefundResult{
		OrderID:      input.OrderID,
		RefundAmount: 25000,
		RefundReason: input.Reason,
		RefundStatus: enums.PaymentStatusRefunded,
		RefundedAt:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubPaymentsService) GetPaymentDetail(ctx context.Context, orderID, userID uuid.UUID) (*internalpayments.PaymentDetail, error) {
	s.detailOrder = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &internalpayments.PaymentDetail{
		OrderID:    orderID,
		Status:     enums.PaymentStatusDone,
		PaidAmount: 25000,
		Refundable: true,
		Card:       &internalpayments.CardDetailDTO{Issuer: "VISA", CardNumber: "****-****-****-3456"},
	}, nil
}

func buyerRequest(method, target, body string, orderID uuid.UUID, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", orderID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(middleware.WithUserID(ctx, userID.String()))
}

func TestRefund(t *testing.T) {
	svc := &stubPaymentsService{}
	orderID, userID := uuid.New(), uuid.New()
	req := buyerRequest(http.MethodPost, "/api/v1/payments/x/refund", `{"reason":"schedule changed"}`, orderID, userID)
	rec := httptest.NewRecorder()

	Refund(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.refundInput.OrderID != orderID || svc.refundInput.UserID != userID || svc.refundInput.Reason != "schedule changed" {
		t.Fatalf("unexpected input %+v", svc.refundInput)
	}
	var envelope struct {
		Data internalpayments.RefundResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.RefundStatus != enums.PaymentStatusRefunded {
		t.Fatalf("unexpected status %s", envelope.Data.RefundStatus)
	}
}

func TestRefundRequiresReason(t *testing.T) {
	svc := &stubPaymentsService{}
	req := buyerRequest(http.MethodPost, "/api/v1/payments/x/refund", `{"reason":""}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()

	Refund(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRefundMapsProcessingError(t *testing.T) {
	svc := &stubPaymentsService{err: pkgerrors.New(pkgerrors.CodeRefundProcessing, "gateway refund failed")}
	req := buyerRequest(http.MethodPost, "/api/v1/payments/x/refund", `{"reason":"sick"}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()

	Refund(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", rec.Code)
	}
}

func TestRefundRejectsBadOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/nope/refund", strings.NewReader(`{"reason":"x"}`))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", "nope")
	req = req.WithContext(middleware.WithUserID(context.WithValue(req.Context(), chi.RouteCtxKey, rc), uuid.NewString()))
	rec := httptest.NewRecorder()

	Refund(&stubPaymentsService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetail(t *testing.T) {
	svc := &stubPaymentsService{}
	orderID := uuid.New()
	req := buyerRequest(http.MethodGet, "/api/v1/payments/x", "", orderID, uuid.New())
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.detailOrder != orderID {
		t.Fatalf("expected detail for %s", orderID)
	}
	if !strings.Contains(rec.Body.String(), `"cardNumber":"****-****-****-3456"`) {
		t.Fatalf("expected masked card number, got %s", rec.Body.String())
	}
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubPaymentsService{err: pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found")}
	req := buyerRequest(http.MethodGet, "/api/v1/payments/x", "", uuid.New(), uuid.New())
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
