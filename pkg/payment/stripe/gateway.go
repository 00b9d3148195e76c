// Package stripe charges card orders through Stripe: it creates a
// PaymentMethod from the validated card and confirms a PaymentIntent for the
// configured amount in one call.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
)

// PaymentMethods is the subset of the Stripe client used to tokenize cards.
type PaymentMethods interface {
	New(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
}

// PaymentIntents is the subset of the Stripe client used to charge.
type PaymentIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Config holds the charge parameters.
type Config struct {
	// Amount in the currency's minor unit.
	Amount   int64
	Currency string
}

// Gateway implements payment.Boundary for card orders.
type Gateway struct {
	cfg     Config
	methods PaymentMethods
	intents PaymentIntents
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger; the default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClients replaces the Stripe API clients, mainly for tests.
func WithClients(methods PaymentMethods, intents PaymentIntents) Option {
	return func(g *Gateway) {
		if methods != nil {
			g.methods = methods
		}
		if intents != nil {
			g.intents = intents
		}
	}
}

// New builds a gateway for secretKey. The key is not contacted until the
// first payment.
func New(secretKey string, cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.Amount <= 0 {
		return nil, errors.New("stripe: amount must be positive")
	}
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		return nil, errors.New("stripe: currency is required")
	}

	g := &Gateway{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.methods == nil || g.intents == nil {
		if strings.TrimSpace(secretKey) == "" {
			return nil, errors.New("stripe: secret key is required")
		}
		sc := client.New(secretKey, nil)
		if g.methods == nil {
			g.methods = sc.PaymentMethods
		}
		if g.intents == nil {
			g.intents = sc.PaymentIntents
		}
	}
	return g, nil
}

func (g *Gateway) ProcessPayment(ctx context.Context, order model.Order, req payment.Request) (model.Receipt, error) {
	cardOrder, ok := order.(model.CardOrder)
	if !ok {
		return model.Receipt{}, payment.ErrUnsupportedMethod(order.PaymentMethod())
	}
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, payment.AsError(err)
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(cardOrder.Card.Number),
			ExpMonth: stripe.Int64(int64(cardOrder.Card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(cardOrder.Card.ExpYear)),
			CVC:      stripe.String(cardOrder.Card.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Email: stripe.String(cardOrder.Email),
		},
	}
	pmParams.Context = ctx

	pm, err := g.methods.New(pmParams)
	if err != nil {
		g.logger.Warn("stripe payment method failed", zap.String("card", cardOrder.Card.String()), zap.Error(err))
		return model.Receipt{}, mapError(err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(g.cfg.Amount),
		Currency:           stripe.String(g.cfg.Currency),
		PaymentMethod:      stripe.String(pm.ID),
		PaymentMethodTypes: []*string{stripe.String("card")},
		ReceiptEmail:       stripe.String(cardOrder.Email),
		Confirm:            stripe.Bool(true),
	}
	piParams.Context = ctx
	if req.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.intents.New(piParams)
	if err != nil {
		g.logger.Warn("stripe payment intent failed", zap.String("card", cardOrder.Card.String()), zap.Error(err))
		return model.Receipt{}, mapError(err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		g.logger.Info("stripe payment confirmed",
			zap.String("intent_id", intent.ID),
			zap.String("status", string(intent.Status)),
		)
		return model.Receipt{
			ID:          intent.ID,
			Reference:   req.IdempotencyKey,
			Method:      model.CreditCard,
			Email:       cardOrder.Email,
			ProcessedAt: g.now().UTC(),
		}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return model.Receipt{}, &payment.Error{
			Code:    payment.CodeDeclined,
			Message: "Your bank requires additional authentication",
			Err:     fmt.Errorf("intent %s requires action", intent.ID),
		}
	default:
		return model.Receipt{}, &payment.Error{
			Code: payment.CodeDeclined,
			Err:  fmt.Errorf("intent %s ended in status %s", intent.ID, intent.Status),
		}
	}
}

// mapError turns Stripe failures into the payment taxonomy.
func mapError(err error) *payment.Error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return payment.AsError(err)
	}

	switch serr.Code {
	case stripe.ErrorCodeCardDeclined:
		if string(serr.DeclineCode) == "insufficient_funds" {
			return payment.NewError(payment.CodeInsufficientFunds, err)
		}
		return payment.NewError(payment.CodeDeclined, err)
	case stripe.ErrorCodeInsufficientFunds:
		return payment.NewError(payment.CodeInsufficientFunds, err)
	case stripe.ErrorCodeIncorrectCVC:
		return payment.NewError(payment.CodeIncorrectCVC, err)
	case stripe.ErrorCodeExpiredCard:
		return payment.NewError(payment.CodeExpiredCard, err)
	}

	if serr.HTTPStatusCode >= 500 || serr.Type == stripe.ErrorTypeAPI {
		return payment.NewError(payment.CodeUnavailable, err)
	}
	perr := payment.NewError(payment.CodeUnknown, err)
	if msg := strings.TrimSpace(serr.Msg); msg != "" {
		perr.Message = "Payment failed: " + msg
	}
	return perr
}
