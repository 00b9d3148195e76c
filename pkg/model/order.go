package model

import (
	"fmt"
	"strings"
	"time"
)

// Order is a validated purchase, shaped to the selected payment method. The
// interface is sealed; the variants below are the only implementations.
type Order interface {
	PaymentMethod() PaymentMethod
	BuyerEmail() string
	order()
}

// Card holds card details that passed validation.
type Card struct {
	Number   string
	Expiry   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Last4 returns the trailing four digits of the card number.
func (c Card) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// String masks the card so it can be logged.
func (c Card) String() string {
	return fmt.Sprintf("card ****%s exp %s", c.Last4(), c.Expiry)
}

// GoString keeps %#v from printing the raw number or CVC.
func (c Card) GoString() string {
	return "model.Card{" + c.String() + "}"
}

// CardOrder is the CreditCard variant.
type CardOrder struct {
	Email string
	Card  Card
}

func (CardOrder) PaymentMethod() PaymentMethod { return CreditCard }
func (o CardOrder) BuyerEmail() string         { return o.Email }
func (CardOrder) order()                       {}

// PayPalOrder is the PayPal variant.
type PayPalOrder struct {
	Email string
}

func (PayPalOrder) PaymentMethod() PaymentMethod { return PayPal }
func (o PayPalOrder) BuyerEmail() string         { return o.Email }
func (PayPalOrder) order()                       {}

// ApplePayOrder is the Apple Pay variant.
type ApplePayOrder struct {
	Email string
}

func (ApplePayOrder) PaymentMethod() PaymentMethod { return ApplePay }
func (o ApplePayOrder) BuyerEmail() string         { return o.Email }
func (ApplePayOrder) order()                       {}

// GooglePayOrder is the Google Pay variant.
type GooglePayOrder struct {
	Email string
}

func (GooglePayOrder) PaymentMethod() PaymentMethod { return GooglePay }
func (o GooglePayOrder) BuyerEmail() string         { return o.Email }
func (GooglePayOrder) order()                       {}

// NewOrder builds the variant for method. card is ignored for every method
// other than CreditCard.
func NewOrder(method PaymentMethod, email string, card Card) (Order, error) {
	switch method {
	case CreditCard:
		return CardOrder{Email: email, Card: card}, nil
	case PayPal:
		return PayPalOrder{Email: email}, nil
	case ApplePay:
		return ApplePayOrder{Email: email}, nil
	case GooglePay:
		return GooglePayOrder{Email: email}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}
}

// DescribeOrder renders a log-safe summary of an order.
func DescribeOrder(o Order) string {
	if o == nil {
		return "<nil order>"
	}
	parts := []string{o.PaymentMethod().Label(), o.BuyerEmail()}
	if card, ok := o.(CardOrder); ok {
		parts = append(parts, card.Card.String())
	}
	return strings.Join(parts, " / ")
}

// Receipt is what the payment boundary hands back on success.
type Receipt struct {
	ID          string        `json:"id"`
	Reference   string        `json:"reference,omitempty"`
	Method      PaymentMethod `json:"method"`
	Email       string        `json:"email"`
	ProcessedAt time.Time     `json:"processedAt"`
}
