package validation

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/visibility"
)

// OpenAPISchema describes the checkout payload as a oneOf with one object
// variant per payment method, discriminated by paymentMethod. Each variant
// requires exactly the fields whose rules apply to that method.
func OpenAPISchema(s *Schema) *openapi3.Schema {
	variants := make([]*openapi3.Schema, 0, len(model.PaymentMethods()))
	for _, method := range model.PaymentMethods() {
		variant := openapi3.NewObjectSchema().
			WithProperty(string(model.FieldPaymentMethod), openapi3.NewStringSchema().WithEnum(string(method)))
		variant.Title = method.Label()
		required := []string{string(model.FieldPaymentMethod)}

		methodCtx := visibility.Context{Values: model.Values{PaymentMethod: method}.Map()}
		seen := make(map[model.FieldName]bool)
		for _, rule := range s.rules {
			if rule.Schema == nil || seen[rule.Field] {
				continue
			}
			if ok, err := s.applies(rule, methodCtx); err != nil || !ok {
				continue
			}
			seen[rule.Field] = true
			variant = variant.WithProperty(string(rule.Field), rule.Schema)
			required = append(required, string(rule.Field))
		}
		variant.Required = required
		variants = append(variants, variant)
	}

	out := openapi3.NewOneOfSchema(variants...)
	out.Title = "Checkout"
	out.Discriminator = &openapi3.Discriminator{PropertyName: string(model.FieldPaymentMethod)}
	return out
}
