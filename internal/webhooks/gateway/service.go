package gatewaywebhook

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/tripmarket-backend/internal/orders"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
)

type paymentApprover interface {
	ApprovePayment(ctx context.Context, input orders.ApprovalInput) (*orders.ApprovalResult, error)
}

type ServiceParams struct {
	Orders  paymentApprover
	Amounts gateway.AmountCodec
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service turns verified gateway callbacks into order approvals.
type Service struct {
	orders  paymentApprover
	amounts gateway.AmountCodec
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order approver required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		orders:  params.Orders,
		amounts: params.Amounts,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *Service) HandleCallback(ctx context.Context, cb gateway.Callback) (*orders.ApprovalResult, error) {
	input, err := s.toApproval(cb)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrder(ctx, "", input.OrderNo)
	result, err := s.orders.ApprovePayment(ctx, input)
	if err != nil {
		return result, err
	}
	s.logg.Info(s.logg.WithField(ctx, "transaction_id", input.TransactionID), "gateway callback applied")
	return result, nil
}

func (s *Service) toApproval(cb gateway.Callback) (orders.ApprovalInput, error) {
	input := orders.ApprovalInput{
		OrderNo:       strings.TrimSpace(cb.OrderNo),
		PayToken:      strings.TrimSpace(cb.PayToken),
		TransactionID: strings.TrimSpace(cb.TransactionID),
		Approved:      cb.Approved(),
		FailureReason: strings.TrimSpace(cb.FailureReason),
	}
	if input.OrderNo == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "orderNo is required")
	}
	if !input.Approved {
		if input.FailureReason == "" {
			input.FailureReason = "declined by gateway"
		}
		return input, nil
	}

	if strings.TrimSpace(cb.Amount) != "" {
		paid, err := s.amounts.Parse(strings.TrimSpace(cb.Amount))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback amount")
		}
		input.PaidAmount = paid
	}
	if strings.TrimSpace(cb.Method) != "" {
		method, err := enums.ParsePaymentMethod(cb.Method)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.Method = &method
	}

	input.ApprovedAt = s.now().UTC()
	if cb.ApprovedAt != nil && !cb.ApprovedAt.IsZero() {
		input.ApprovedAt = cb.ApprovedAt.UTC()
	}
	if cb.Card != nil {
		input.Card = &orders.CardDetailInput{
			Issuer:            cb.Card.Issuer,
			CardNumber:        cb.Card.Number,
			InstallmentMonths: cb.Card.InstallmentMonths,
			ApproveNo:         cb.Card.ApproveNo,
		}
	}
	if cb.Bank != nil {
		input.Bank = &orders.BankDetailInput{
			BankName:      cb.Bank.BankName,
			AccountNumber: cb.Bank.AccountNumber,
			HolderName:    cb.Bank.HolderName,
		}
	}
	return input, nil
}
