package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
)

// Call records one boundary invocation.
type Call struct {
	Order   model.Order
	Request payment.Request
}

// Result scripts the outcome of one call.
type Result struct {
	Receipt model.Receipt
	Err     error
}

// Boundary is a scripted payment.Boundary. Results are consumed in order;
// once exhausted calls succeed with a generated receipt. A gated boundary
// holds every call until Release.
type Boundary struct {
	mu      sync.Mutex
	results []Result
	calls   []Call
	gate    chan struct{}
	started chan Call
}

// NewBoundary returns a boundary that resolves immediately.
func NewBoundary(results ...Result) *Boundary {
	return &Boundary{results: results, started: make(chan Call, 16)}
}

// NewGatedBoundary returns a boundary whose calls block until Release.
func NewGatedBoundary(results ...Result) *Boundary {
	b := NewBoundary(results...)
	b.gate = make(chan struct{})
	return b
}

func (b *Boundary) ProcessPayment(ctx context.Context, order model.Order, req payment.Request) (model.Receipt, error) {
	call := Call{Order: order, Request: req}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	n := len(b.calls)
	var res *Result
	if len(b.results) > 0 {
		r := b.results[0]
		b.results = b.results[1:]
		res = &r
	}
	b.mu.Unlock()

	select {
	case b.started <- call:
	default:
	}

	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return model.Receipt{}, payment.AsError(ctx.Err())
		}
	}

	if res != nil {
		return res.Receipt, res.Err
	}
	return model.Receipt{
		ID:     fmt.Sprintf("rcpt-%d", n),
		Method: order.PaymentMethod(),
		Email:  order.BuyerEmail(),
	}, nil
}

// Started yields each call as it reaches the boundary.
func (b *Boundary) Started() <-chan Call {
	return b.started
}

// Release lets one gated call proceed. It blocks until a call takes it.
func (b *Boundary) Release() {
	b.gate <- struct{}{}
}

// Calls returns a copy of the recorded calls.
func (b *Boundary) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}
