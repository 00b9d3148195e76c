// Package payment defines the boundary the checkout hands validated orders to.
// Adapters live in the subpackages; the controller only sees Boundary.
package payment

import (
	"context"

	"github.com/goliatone/go-checkout/pkg/model"
)

// Request carries per-attempt metadata alongside the order.
type Request struct {
	// IdempotencyKey is unique per admitted submission. Gateways that support
	// idempotent requests forward it so a retried call cannot double charge.
	IdempotencyKey string
}

// Boundary attempts to charge the buyer for an order. It must honor ctx
// cancellation and return either a receipt or an error, never both.
type Boundary interface {
	ProcessPayment(ctx context.Context, order model.Order, req Request) (model.Receipt, error)
}

// BoundaryFunc adapts a function into a Boundary.
type BoundaryFunc func(ctx context.Context, order model.Order, req Request) (model.Receipt, error)

func (fn BoundaryFunc) ProcessPayment(ctx context.Context, order model.Order, req Request) (model.Receipt, error) {
	return fn(ctx, order, req)
}
