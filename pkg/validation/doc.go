// Package validation holds the checkout field schema.
//
// Each rule pairs a field with a kin-openapi string schema (pattern and length
// constraints) and an optional applicability rule evaluated by
// pkg/visibility/expr. Validate runs every applicable rule, collects every
// failure into *Errors and, on success, returns the model.Order variant for
// the selected payment method. The same rules can be exported as an OpenAPI
// oneOf schema through OpenAPISchema.
package validation
