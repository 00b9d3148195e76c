package validation

import "github.com/getkin/kin-openapi/openapi3"

// kin-openapi matches patterns unanchored, so every pattern carries ^ and $.
const (
	EmailPattern      = `^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`
	CardNumberPattern = `^[0-9]{16}$`
	ExpiryPattern     = `^(0[1-9]|1[0-2])/[0-9]{2}$`
	CVCPattern        = `^[0-9]{3,4}$`
)

func EmailSchema() *openapi3.Schema {
	s := openapi3.NewStringSchema().WithPattern(EmailPattern)
	s.Description = "Buyer email address"
	return s
}

func CardNumberSchema() *openapi3.Schema {
	s := openapi3.NewStringSchema().WithPattern(CardNumberPattern).WithMinLength(16).WithMaxLength(16)
	s.Description = "Card number, 16 digits"
	return s
}

func ExpirySchema() *openapi3.Schema {
	s := openapi3.NewStringSchema().WithPattern(ExpiryPattern)
	s.Description = "Card expiry as MM/YY"
	return s
}

func CVCSchema() *openapi3.Schema {
	s := openapi3.NewStringSchema().WithPattern(CVCPattern).WithMinLength(3).WithMaxLength(4)
	s.Description = "Card verification code"
	return s
}
