package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/tripmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
)

const (
	apiKeyHeader         = "X-Api-Key"
	idempotencyKeyHeader = "Idempotency-Key"

	authorizePath = "/v1/payments"
	refundPath    = "/v1/payments/{payToken}/refunds"

	defaultTimeout = 10 * time.Second
)

var (
	errBaseURLRequired       = errors.New("gateway base url is required")
	errAPIKeyRequired        = errors.New("gateway api key is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
	errLoggerRequired        = errors.New("gateway logger is required")
)

// Client talks to the external payment gateway over HTTP. Every call is
// bounded by the configured timeout and is never retried here; callers own
// the idempotency tokens.
type Client struct {
	http          *resty.Client
	webhookSecret string
	callbackURL   string
	amounts       AmountCodec
	logger        *logger.Logger
}

// NewClient builds the gateway client from config.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errWebhookSecretRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:          httpClient,
		webhookSecret: secret,
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
		amounts:       NewAmountCodec(cfg.CurrencyExponent),
		logger:        logg,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"base_url": baseURL, "timeout": timeout.String()}), "payment gateway client initialized")
	return c, nil
}

// Amounts returns the codec used to move money across the wire.
func (c *Client) Amounts() AmountCodec {
	return c.amounts
}

// AuthorizeParams describes a checkout to open at the gateway.
type AuthorizeParams struct {
	OrderNo     string
	UserID      string
	ProductName string
	Quantity    int
	Amount      int64
}

// Authorization is the gateway's answer to a ready request.
type Authorization struct {
	PayToken    string
	CheckoutURL string
}

type authorizeRequest struct {
	OrderNo     string `json:"orderNo"`
	UserID      string `json:"userId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type authorizeResponse struct {
	PayToken    string `json:"payToken"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Authorize registers the order with the gateway and returns the pay token the
// buyer completes checkout with.
func (c *Client) Authorize(ctx context.Context, params AuthorizeParams) (*Authorization, error) {
	body := authorizeRequest{
		OrderNo:     params.OrderNo,
		UserID:      params.UserID,
		ProductName: params.ProductName,
		Quantity:    params.Quantity,
		Amount:      c.amounts.Format(params.Amount),
		CallbackURL: c.callbackURL,
	}
	c.log(ctx, "request", "authorize", map[string]any{"order_no": params.OrderNo, "amount": body.Amount})

	var out authorizeResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(idempotencyKeyHeader, params.OrderNo).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(authorizePath)
	if err := c.mapError(ctx, "authorize", pkgerrors.CodePaymentFailed, resp, err, apiErr); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.PayToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeExternalAPI, "gateway authorize returned no pay token")
	}

	c.log(ctx, "response", "authorize", map[string]any{"order_no": params.OrderNo, "pay_token": out.PayToken})
	return &Authorization{PayToken: out.PayToken, CheckoutURL: out.CheckoutURL}, nil
}

// RefundParams describes a refund of an approved payment.
type RefundParams struct {
	PayToken string
	RefundNo string
	Amount   int64
	Reason   string
}

// RefundResult is returned when the gateway accepted the refund.
type RefundResult struct {
	RefundTransactionID string
	RefundedAt          time.Time
}

type refundRequest struct {
	RefundNo string `json:"refundNo"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundTransactionID string    `json:"refundTransactionId"`
	RefundedAt          time.Time `json:"refundedAt"`
}

// Refund returns the money of a previously approved payment. RefundNo doubles
// as the gateway idempotency key.
func (c *Client) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if strings.TrimSpace(params.PayToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pay token is required for refunds")
	}
	body := refundRequest{
		RefundNo: params.RefundNo,
		Amount:   c.amounts.Format(params.Amount),
		Reason:   params.Reason,
	}
	c.log(ctx, "request", "refund", map[string]any{
		"pay_token": params.PayToken,
		"refund_no": params.RefundNo,
		"amount":    body.Amount,
	})

	var out refundResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("payToken", params.PayToken).
		SetHeader(idempotencyKeyHeader, params.RefundNo).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(refundPath)
	if err := c.mapError(ctx, "refund", pkgerrors.CodeExternalAPI, resp, err, apiErr); err != nil {
		return nil, err
	}

	c.log(ctx, "response", "refund", map[string]any{
		"refund_no":             params.RefundNo,
		"refund_transaction_id": out.RefundTransactionID,
	})
	return &RefundResult{RefundTransactionID: out.RefundTransactionID, RefundedAt: out.RefundedAt}, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapError turns transport failures into EXTERNAL_API_ERROR and gateway
// rejections into rejectCode.
func (c *Client) mapError(ctx context.Context, op string, rejectCode pkgerrors.Code, resp *resty.Response, err error, apiErr errorResponse) error {
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeExternalAPI, err, fmt.Sprintf("gateway %s failed", op))
	}
	if resp == nil || !resp.IsError() {
		return nil
	}

	cause := fmt.Errorf("status %d", resp.StatusCode())
	if apiErr.Code != "" || apiErr.Message != "" {
		cause = fmt.Errorf("status %d: %s %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	c.log(ctx, "error", op, map[string]any{"error": cause.Error(), "status": resp.StatusCode()})
	return pkgerrors.Wrap(rejectCode, cause, fmt.Sprintf("gateway %s rejected", op)).
		WithDetails(map[string]any{"status": resp.StatusCode(), "gateway_code": apiErr.Code})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "secret", "account", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
