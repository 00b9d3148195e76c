package model

import "errors"

var (
	// ErrUnknownField is returned when a field name is not part of the form.
	ErrUnknownField = errors.New("model: unknown field")
	// ErrInvalidPaymentMethod signals a payment method outside the enumerated
	// variants. Callers always hold a valid default, so this is a programming
	// error rather than user input to report inline.
	ErrInvalidPaymentMethod = errors.New("model: invalid payment method")
)
