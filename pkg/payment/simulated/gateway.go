// Package simulated is a stand-in payment gateway: it waits a fixed delay and
// succeeds unless a failure has been scripted. It backs demos and the CLI when
// no real gateway is configured.
package simulated

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/payment"
)

// DefaultDelay mirrors the processing time a hosted gateway typically takes.
const DefaultDelay = 2 * time.Second

// Gateway implements payment.Boundary without contacting anything.
type Gateway struct {
	delay time.Duration
	now   func() time.Time

	mu     sync.Mutex
	script []error
	calls  int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDelay sets the simulated processing time. Zero returns immediately.
func WithDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithOutcomes scripts the result of successive calls. A nil entry succeeds;
// once the script is exhausted every call succeeds.
func WithOutcomes(outcomes ...error) Option {
	return func(g *Gateway) {
		g.script = append(g.script, outcomes...)
	}
}

func New(opts ...Option) *Gateway {
	g := &Gateway{delay: DefaultDelay, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) ProcessPayment(ctx context.Context, order model.Order, req payment.Request) (model.Receipt, error) {
	outcome := g.next()

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.Receipt{}, payment.AsError(ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return model.Receipt{}, payment.AsError(err)
	}

	if outcome != nil {
		return model.Receipt{}, payment.AsError(outcome)
	}
	return model.Receipt{
		ID:          uuid.NewString(),
		Reference:   req.IdempotencyKey,
		Method:      order.PaymentMethod(),
		Email:       order.BuyerEmail(),
		ProcessedAt: g.now().UTC(),
	}, nil
}

// Calls returns how many payments were attempted.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Gateway) next() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.script) == 0 {
		return nil
	}
	outcome := g.script[0]
	g.script = g.script[1:]
	return outcome
}
