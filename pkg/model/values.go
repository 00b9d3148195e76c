package model

import "fmt"

// Values is the raw, unvalidated form record. Card fields keep whatever the
// buyer typed even when the selected method ignores them.
type Values struct {
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CardNumber    string        `json:"cardNumber,omitempty"`
	Expiry        string        `json:"expiry,omitempty"`
	CVC           string        `json:"cvc,omitempty"`
}

// DefaultValues returns the state a fresh form starts from.
func DefaultValues() Values {
	return Values{PaymentMethod: CreditCard}
}

// Get returns the string value of a field.
func (v Values) Get(name FieldName) (string, error) {
	switch name {
	case FieldEmail:
		return v.Email, nil
	case FieldPaymentMethod:
		return string(v.PaymentMethod), nil
	case FieldCardNumber:
		return v.CardNumber, nil
	case FieldExpiry:
		return v.Expiry, nil
	case FieldCVC:
		return v.CVC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// Set overwrites one field. Payment methods are parsed so the record never
// holds a value outside the enumeration.
func (v *Values) Set(name FieldName, value string) error {
	switch name {
	case FieldEmail:
		v.Email = value
	case FieldPaymentMethod:
		method, err := ParsePaymentMethod(value)
		if err != nil {
			return err
		}
		v.PaymentMethod = method
	case FieldCardNumber:
		v.CardNumber = value
	case FieldExpiry:
		v.Expiry = value
	case FieldCVC:
		v.CVC = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Map flattens the record for rule evaluation.
func (v Values) Map() map[string]any {
	return map[string]any{
		string(FieldEmail):         v.Email,
		string(FieldPaymentMethod): string(v.PaymentMethod),
		string(FieldCardNumber):    v.CardNumber,
		string(FieldExpiry):        v.Expiry,
		string(FieldCVC):           v.CVC,
	}
}
