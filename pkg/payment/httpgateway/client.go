// Package httpgateway forwards orders to a payment provider speaking JSON over
// HTTP. Requests go through an otelhttp transport so provider calls show up
// in traces when the host installs a tracer provider.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
)

// ProcessPath is appended to the base URL for every charge.
const ProcessPath = "/api/payments/process"

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

type cardPayload struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

type processRequest struct {
	PaymentMethod  string       `json:"payment_method"`
	Email          string       `json:"email"`
	Amount         int64        `json:"amount,omitempty"`
	Currency       string       `json:"currency,omitempty"`
	Card           *cardPayload `json:"card,omitempty"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

type processResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Client implements payment.Boundary against an HTTP provider.
type Client struct {
	endpoint string
	amount   int64
	currency string
	http     *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCharge sets the amount (minor units) and currency sent with each order.
func WithCharge(amount int64, currency string) Option {
	return func(c *Client) {
		c.amount = amount
		c.currency = strings.ToLower(strings.TrimSpace(currency))
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for the provider at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpgateway: invalid base url %q", baseURL)
	}

	c := &Client{
		endpoint: base + ProcessPath,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) ProcessPayment(ctx context.Context, order model.Order, req payment.Request) (model.Receipt, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "payment-provider"),
		attribute.String("payment.method", string(order.PaymentMethod())),
	)

	body := processRequest{
		PaymentMethod:  string(order.PaymentMethod()),
		Email:          order.BuyerEmail(),
		Amount:         c.amount,
		Currency:       c.currency,
		IdempotencyKey: req.IdempotencyKey,
	}
	if card, ok := order.(model.CardOrder); ok {
		body.Card = &cardPayload{
			Number:   card.Card.Number,
			ExpMonth: card.Card.ExpMonth,
			ExpYear:  card.Card.ExpYear,
			CVC:      card.Card.CVC,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return model.Receipt{}, payment.NewError(payment.CodeUnknown, fmt.Errorf("httpgateway: encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Receipt{}, payment.NewError(payment.CodeUnknown, fmt.Errorf("httpgateway: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.SetAttributes(attribute.String("external.status", "error"))
		c.logger.Warn("payment provider call failed", zap.String("order", model.DescribeOrder(order)), zap.Error(err))
		return model.Receipt{}, transportError(ctx, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("external.status_code", resp.StatusCode))
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var decoded processResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if ctx.Err() != nil {
			return model.Receipt{}, transportError(ctx, err)
		}
		c.logger.Warn("payment provider response unreadable", zap.Int("status_code", resp.StatusCode), zap.Error(err))
		// A rejection is still classified by its status code.
		if ok {
			return model.Receipt{}, payment.NewError(payment.CodeUnknown, fmt.Errorf("httpgateway: read response: %w", err))
		}
	} else if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && ok {
			return model.Receipt{}, payment.NewError(payment.CodeUnknown, fmt.Errorf("httpgateway: decode response: %w", err))
		}
	}

	if ok {
		if strings.TrimSpace(decoded.TransactionID) == "" {
			return model.Receipt{}, payment.NewError(payment.CodeUnknown, errors.New("httpgateway: response has no transaction_id"))
		}
		span.SetAttributes(
			attribute.String("external.transaction_id", decoded.TransactionID),
			attribute.String("external.status", "success"),
		)
		return model.Receipt{
			ID:          decoded.TransactionID,
			Reference:   req.IdempotencyKey,
			Method:      order.PaymentMethod(),
			Email:       order.BuyerEmail(),
			ProcessedAt: c.now().UTC(),
		}, nil
	}

	span.SetAttributes(attribute.String("external.status", "failed"))
	perr := statusError(resp.StatusCode, decoded)
	c.logger.Warn("payment provider rejected payment",
		zap.Int("status_code", resp.StatusCode),
		zap.String("code", string(perr.Code)),
		zap.String("order", model.DescribeOrder(order)),
	)
	return model.Receipt{}, perr
}

func transportError(ctx context.Context, err error) *payment.Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return payment.AsError(ctxErr)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return payment.NewError(payment.CodeTimeout, err)
	}
	return payment.NewError(payment.CodeUnavailable, err)
}

// statusError maps a non-2xx response. A provider-supplied code that matches
// the taxonomy wins over the status code.
func statusError(status int, body processResponse) *payment.Error {
	cause := fmt.Errorf("httpgateway: provider returned status %d", status)
	code := payment.Code(strings.ToLower(strings.TrimSpace(body.Code)))
	switch code {
	case payment.CodeDeclined, payment.CodeInsufficientFunds, payment.CodeIncorrectCVC,
		payment.CodeExpiredCard, payment.CodeUnsupportedMethod:
	default:
		switch {
		case status == http.StatusPaymentRequired:
			code = payment.CodeDeclined
		case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
			code = payment.CodeTimeout
		case status >= 500:
			code = payment.CodeUnavailable
		default:
			code = payment.CodeUnknown
		}
	}
	return &payment.Error{Code: code, Message: strings.TrimSpace(body.Message), Err: cause}
}
