package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/tripmarket-backend/api/responses"
	"github.com/angelmondragon/tripmarket-backend/api/validators"
	"github.com/angelmondragon/tripmarket-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
)

const maxCallbackBytes = 1 << 20

type PaymentCallbackService interface {
	HandleCallback(ctx context.Context, cb gateway.Callback) (*orders.ApprovalResult, error)
}

type PaymentCallbackGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Release(ctx context.Context, deliveryKey string) error
}

type signatureVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// PaymentCallback applies the gateway's approval callback to the order.
// Redeliveries of a processed callback are acknowledged without side effects.
func PaymentCallback(svc PaymentCallbackService, verifier signatureVerifier, guard PaymentCallbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(gateway.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature missing"))
			return
		}
		if !verifier.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature invalid"))
			return
		}

		var cb gateway.Callback
		if err := validators.DecodeJSONPayload(payload, &cb); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deliveryKey := cb.DedupeKey()
		alreadyProcessed, err := guard.CheckAndMark(ctx, deliveryKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(logg.WithOrder(ctx, "", cb.OrderNo), "duplicate gateway callback ignored")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		result, err := svc.HandleCallback(ctx, cb)
		if err != nil {
			// A recorded decline is a processed delivery.
			if result != nil && pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed) {
				responses.WriteSuccess(w, result)
				return
			}
			if redeliverable(err) {
				if relErr := guard.Release(ctx, deliveryKey); relErr != nil && logg != nil {
					logg.Error(logg.WithOrder(ctx, "", cb.OrderNo), "failed to release gateway callback key", relErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// redeliverable reports whether the order was left open so a gateway retry of
// the same delivery must reach the service again.
func redeliverable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	if typed.Code() == pkgerrors.CodeOutOfStock {
		return true
	}
	return pkgerrors.MetadataFor(typed.Code()).Retryable
}
