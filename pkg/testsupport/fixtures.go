// Package testsupport holds fakes and fixtures shared by the checkout tests.
package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-checkout/pkg/model"
)

// CardValues is the reference valid credit-card form.
func CardValues() model.Values {
	return model.Values{
		Email:         "a@b.co",
		PaymentMethod: model.CreditCard,
		CardNumber:    "1234567890123456",
		Expiry:        "09/27",
		CVC:           "123",
	}
}

// PayPalValues is a valid PayPal form with empty card fields.
func PayPalValues() model.Values {
	return model.Values{Email: "x@y.com", PaymentMethod: model.PayPal}
}

// Context returns a context that ends with the test, bounded so a stuck
// goroutine fails the test instead of hanging it.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// AssertDiff fails the test when want and got differ.
func AssertDiff(t *testing.T, label string, want, got any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("%s mismatch (-want +got):\n%s", label, diff)
	}
}
