package model

import (
	"fmt"
	"strings"
)

// PaymentMethod enumerates the buyer's payment options.
type PaymentMethod string

const (
	CreditCard PaymentMethod = "credit-card"
	PayPal     PaymentMethod = "paypal"
	ApplePay   PaymentMethod = "apple-pay"
	GooglePay  PaymentMethod = "google-pay"
)

var methodLabels = map[PaymentMethod]string{
	CreditCard: "Credit Card",
	PayPal:     "PayPal",
	ApplePay:   "Apple Pay",
	GooglePay:  "Google Pay",
}

// PaymentMethods returns the variants in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{CreditCard, PayPal, ApplePay, GooglePay}
}

// Valid reports whether m is one of the enumerated variants.
func (m PaymentMethod) Valid() bool {
	_, ok := methodLabels[m]
	return ok
}

// Label returns the display name.
func (m PaymentMethod) Label() string {
	if label, ok := methodLabels[m]; ok {
		return label
	}
	return string(m)
}

func (m PaymentMethod) String() string {
	return string(m)
}

// RequiresCard reports whether card details must be collected for m.
func (m PaymentMethod) RequiresCard() bool {
	return m == CreditCard
}

// ParsePaymentMethod accepts wire values ("apple-pay") and labels
// ("Apple Pay"), case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	trimmed := strings.TrimSpace(raw)
	for _, method := range PaymentMethods() {
		if strings.EqualFold(trimmed, string(method)) || strings.EqualFold(trimmed, method.Label()) {
			return method, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
}
