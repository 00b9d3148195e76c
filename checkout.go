// Package checkout is the module entry point. It re-exports the types most
// callers need so a checkout form can be wired without importing every
// sub-package.
package checkout

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
	"github.com/goliatone/go-checkout/pkg/submission"
	"github.com/goliatone/go-checkout/pkg/validation"
)

// Values holds the raw form input.
type Values = model.Values

// Order is the validated order handed to a payment boundary.
type Order = model.Order

// Receipt is returned by a successful payment.
type Receipt = model.Receipt

// Controller runs the single-flight submission state machine.
type Controller = submission.Controller

// Status is the controller's submission status.
type Status = submission.Status

// Attempt is one admitted submission.
type Attempt = submission.Attempt

// Boundary is the payment processing contract.
type Boundary = payment.Boundary

// ValidationErrors maps fields to their first failing message.
type ValidationErrors = validation.Errors

// NewController wires a submission controller around boundary.
func NewController(boundary Boundary, opts ...submission.Option) (*Controller, error) {
	return submission.New(boundary, opts...)
}

// NewSchema builds the checkout validation schema.
func NewSchema(opts ...validation.Option) *validation.Schema {
	return validation.New(opts...)
}

// Validate checks values against the default schema. On failure the error is
// a *ValidationErrors.
func Validate(values Values) (Order, error) {
	return validation.New().Validate(values)
}

// OpenAPISchema describes the default schema as an OpenAPI component so the
// same rules can be published to API clients.
func OpenAPISchema() *openapi3.Schema {
	return validation.OpenAPISchema(validation.New())
}
