package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeEventProductNotFound Code = "EVENT_PRODUCT_NOT_FOUND"
	CodeOrderNotFound        Code = "ORDER_NOT_FOUND"
	CodePaymentNotFound      Code = "PAYMENT_NOT_FOUND"

	CodeOutOfStock           Code = "EVENT_PRODUCT_OUT_OF_STOCK"
	CodeInvalidOrderStatus   Code = "INVALID_ORDER_STATUS"
	CodeInvalidPaymentStatus Code = "INVALID_PAYMENT_STATUS"

	CodeRefundTimeExpired      Code = "REFUND_TIME_EXPIRED"
	CodeRefundAlreadyRequested Code = "REFUND_ALREADY_REQUESTED"
	CodeRefundProcessing       Code = "REFUND_PROCESSING_ERROR"
	CodePaymentFailed          Code = "PAYMENT_FAILED"
	CodeExternalAPI            Code = "EXTERNAL_API_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Retryable:     true,
		PublicMessage: "too many requests",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeUserNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "user not found",
	},
	CodeEventProductNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "event product not found",
	},
	CodeOrderNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "order not found",
	},
	CodePaymentNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "payment not found",
	},
	CodeOutOfStock: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "event product is out of stock",
		DetailsAllowed: true,
	},
	CodeInvalidOrderStatus: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "order status does not allow this operation",
		DetailsAllowed: true,
	},
	CodeInvalidPaymentStatus: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "payment status does not allow this operation",
		DetailsAllowed: true,
	},
	CodeRefundTimeExpired: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "refund window has expired",
	},
	CodeRefundAlreadyRequested: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "refund already requested",
	},
	CodeRefundProcessing: {
		HTTPStatus:    http.StatusBadGateway,
		PublicMessage: "refund could not be processed",
	},
	CodePaymentFailed: {
		HTTPStatus:    http.StatusBadGateway,
		PublicMessage: "payment failed",
	},
	CodeExternalAPI: {
		HTTPStatus:    http.StatusBadGateway,
		PublicMessage: "payment gateway unavailable",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// ClientFacing reports whether the code describes a caller-side problem whose
// message can be returned verbatim.
func ClientFacing(code Code) bool {
	return MetadataFor(code).HTTPStatus < http.StatusInternalServerError
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
