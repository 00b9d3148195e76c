package model

import (
	"fmt"
	"strings"
)

// FieldName identifies a form field.
type FieldName string

const (
	FieldEmail         FieldName = "email"
	FieldPaymentMethod FieldName = "paymentMethod"
	FieldCardNumber    FieldName = "cardNumber"
	FieldExpiry        FieldName = "expiry"
	FieldCVC           FieldName = "cvc"
)

var fieldOrder = []FieldName{
	FieldEmail,
	FieldPaymentMethod,
	FieldCardNumber,
	FieldExpiry,
	FieldCVC,
}

// Fields returns every form field in display order.
func Fields() []FieldName {
	return append([]FieldName(nil), fieldOrder...)
}

// CardFields returns the fields that only apply to card payments.
func CardFields() []FieldName {
	return []FieldName{FieldCardNumber, FieldExpiry, FieldCVC}
}

// IsCardField reports whether name is one of the card-only fields.
func (name FieldName) IsCardField() bool {
	switch name {
	case FieldCardNumber, FieldExpiry, FieldCVC:
		return true
	default:
		return false
	}
}

// Valid reports whether the name is part of the form.
func (name FieldName) Valid() bool {
	for _, candidate := range fieldOrder {
		if candidate == name {
			return true
		}
	}
	return false
}

// Index returns the display position of the field, or -1 when unknown.
func (name FieldName) Index() int {
	for idx, candidate := range fieldOrder {
		if candidate == name {
			return idx
		}
	}
	return -1
}

// ParseFieldName resolves a raw name, tolerating surrounding whitespace.
func ParseFieldName(raw string) (FieldName, error) {
	name := FieldName(strings.TrimSpace(raw))
	if !name.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
	}
	return name, nil
}
