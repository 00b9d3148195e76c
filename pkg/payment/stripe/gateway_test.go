package stripe

import (
	"context"
	"errors"
	"testing"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
)

type fakeMethods struct {
	params *stripe.PaymentMethodParams
	err    error
}

func (f *fakeMethods) New(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentMethod{ID: "pm_123"}, nil
}

type fakeIntents struct {
	params *stripe.PaymentIntentParams
	status stripe.PaymentIntentStatus
	err    error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: "pi_456", Status: f.status}, nil
}

func cardOrder() model.CardOrder {
	return model.CardOrder{
		Email: "a@b.co",
		Card: model.Card{
			Number:   "4242424242424242",
			Expiry:   "09/27",
			ExpMonth: 9,
			ExpYear:  2027,
			CVC:      "123",
		},
	}
}

func newGateway(t *testing.T, methods *fakeMethods, intents *fakeIntents) *Gateway {
	t.Helper()
	gw, err := New("", Config{Amount: 4999, Currency: "USD"}, WithClients(methods, intents))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return gw
}

func TestGatewayChargesCard(t *testing.T) {
	t.Parallel()

	methods := &fakeMethods{}
	intents := &fakeIntents{status: stripe.PaymentIntentStatusSucceeded}
	gw := newGateway(t, methods, intents)

	receipt, err := gw.ProcessPayment(context.Background(), cardOrder(), payment.Request{IdempotencyKey: "idem-1"})
	if err != nil {
		t.Fatalf("ProcessPayment returned error: %v", err)
	}
	if receipt.ID != "pi_456" || receipt.Method != model.CreditCard || receipt.Reference != "idem-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	card := methods.params.Card
	if *card.Number != "4242424242424242" || *card.ExpMonth != 9 || *card.ExpYear != 2027 || *card.CVC != "123" {
		t.Fatalf("card params not forwarded")
	}
	if *intents.params.Amount != 4999 || *intents.params.Currency != "usd" {
		t.Fatalf("unexpected amount/currency %d %s", *intents.params.Amount, *intents.params.Currency)
	}
	if *intents.params.PaymentMethod != "pm_123" || !*intents.params.Confirm {
		t.Fatalf("intent not confirmed with payment method")
	}
	if intents.params.IdempotencyKey == nil || *intents.params.IdempotencyKey != "idem-1" {
		t.Fatalf("idempotency key not set")
	}
}

func TestGatewayRejectsNonCardOrders(t *testing.T) {
	t.Parallel()

	methods := &fakeMethods{}
	gw := newGateway(t, methods, &fakeIntents{})

	_, err := gw.ProcessPayment(context.Background(), model.PayPalOrder{Email: "x@y.com"}, payment.Request{})
	var perr *payment.Error
	if !errors.As(err, &perr) || perr.Code != payment.CodeUnsupportedMethod {
		t.Fatalf("expected unsupported_method, got %v", err)
	}
	if methods.params != nil {
		t.Fatalf("stripe must not be called for non-card orders")
	}
}

func TestGatewayMapsStripeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want payment.Code
	}{
		{"declined", &stripe.Error{Code: stripe.ErrorCodeCardDeclined}, payment.CodeDeclined},
		{"declined funds", &stripe.Error{Code: stripe.ErrorCodeCardDeclined, DeclineCode: "insufficient_funds"}, payment.CodeInsufficientFunds},
		{"funds", &stripe.Error{Code: stripe.ErrorCodeInsufficientFunds}, payment.CodeInsufficientFunds},
		{"cvc", &stripe.Error{Code: stripe.ErrorCodeIncorrectCVC}, payment.CodeIncorrectCVC},
		{"expired", &stripe.Error{Code: stripe.ErrorCodeExpiredCard}, payment.CodeExpiredCard},
		{"server", &stripe.Error{HTTPStatusCode: 503}, payment.CodeUnavailable},
		{"other", &stripe.Error{Code: stripe.ErrorCodeAmountTooSmall, Msg: "Amount too small"}, payment.CodeUnknown},
		{"context", context.DeadlineExceeded, payment.CodeTimeout},
	}
	for _, tc := range cases {
		gw := newGateway(t, &fakeMethods{}, &fakeIntents{err: tc.err})
		_, err := gw.ProcessPayment(context.Background(), cardOrder(), payment.Request{})
		var perr *payment.Error
		if !errors.As(err, &perr) || perr.Code != tc.want {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want, err)
		}
	}

	perr := mapError(&stripe.Error{Code: stripe.ErrorCodeAmountTooSmall, Msg: "Amount too small"})
	if got := perr.UserMessage(); got != "Payment failed: Amount too small" {
		t.Fatalf("UserMessage() = %q", got)
	}
}

func TestGatewayRequiresAction(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, &fakeMethods{}, &fakeIntents{status: stripe.PaymentIntentStatusRequiresAction})
	_, err := gw.ProcessPayment(context.Background(), cardOrder(), payment.Request{})
	var perr *payment.Error
	if !errors.As(err, &perr) || perr.Code != payment.CodeDeclined {
		t.Fatalf("expected declined, got %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := New("sk_test", Config{Amount: 0, Currency: "usd"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := New("sk_test", Config{Amount: 100}); err == nil {
		t.Fatalf("expected error for missing currency")
	}
	if _, err := New("", Config{Amount: 100, Currency: "usd"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
