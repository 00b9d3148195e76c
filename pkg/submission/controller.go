// Package submission drives one checkout form from editing to a single
// in-flight payment and its outcome.
//
// A Controller owns the form values, the displayed field errors and the
// submission status. Every mutation goes through one mutex; the payment
// boundary runs on its own goroutine so callers never block on it. While a
// submission is processing, further submits are rejected with
// ErrSubmissionConflict rather than queued.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/notify"
	"github.com/goliatone/go-checkout/pkg/payment"
	"github.com/goliatone/go-checkout/pkg/validation"
)

// Outcome values recorded on checkout_submissions_total.
const (
	OutcomeInvalid   = "invalid"
	OutcomeConflict  = "conflict"
	OutcomeClosed    = "closed"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Controller is safe for concurrent use.
type Controller struct {
	boundary payment.Boundary
	schema   *validation.Schema
	sink     notify.Sink
	composer *notify.Composer
	logger   *zap.Logger
	timeout  time.Duration
	meter    metric.Meter
	tracer   trace.Tracer
	newID    func() string

	submissions metric.Int64Counter
	duration    metric.Float64Histogram

	mu      sync.Mutex
	values  model.Values
	errors  map[model.FieldName]string
	status  Status
	current *Attempt
}

// View is a consistent copy of the controller state for rendering.
type View struct {
	Values    model.Values
	Errors    map[model.FieldName]string
	Issues    []validation.Issue
	Status    Status
	Required  []model.FieldName
	CanSubmit bool
}

// New builds a controller in PhaseIdle with default form values.
func New(boundary payment.Boundary, opts ...Option) (*Controller, error) {
	if boundary == nil {
		return nil, ErrNilBoundary
	}
	c := &Controller{boundary: boundary}
	defaults(c)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.composer == nil {
		c.composer = notify.DefaultComposer()
	}

	var err error
	c.submissions, err = c.meter.Int64Counter("checkout_submissions_total",
		metric.WithDescription("Checkout submit requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("submission: counter: %w", err)
	}
	c.duration, err = c.meter.Float64Histogram("checkout_payment_duration_seconds",
		metric.WithDescription("Payment boundary call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("submission: histogram: %w", err)
	}

	c.values = model.DefaultValues()
	c.errors = make(map[model.FieldName]string)
	c.status = idle()
	return c, nil
}

// UpdateField overwrites one field without validating it. Picking a payment
// method that does not take card details drops any card field errors on
// display. Edits made while processing do not affect the in-flight order.
func (c *Controller) UpdateField(name, value string) error {
	field, err := model.ParseFieldName(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.values.Set(field, value); err != nil {
		return err
	}
	if field == model.FieldPaymentMethod {
		c.dropInactiveErrorsLocked()
	}
	return nil
}

// SetPaymentMethod is the typed form of UpdateField for the method selector.
func (c *Controller) SetPaymentMethod(method model.PaymentMethod) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidPaymentMethod, method)
	}
	return c.UpdateField(string(model.FieldPaymentMethod), string(method))
}

// Submit validates the form and, when valid, starts the payment on a new
// goroutine. Field failures come back as *validation.Errors and are kept for
// display; the status does not change. ctx is handed to the boundary, so
// canceling it cancels the in-flight payment.
func (c *Controller) Submit(ctx context.Context) (*Attempt, error) {
	c.mu.Lock()
	switch c.status.Phase {
	case PhaseProcessing:
		c.mu.Unlock()
		c.count(ctx, OutcomeConflict)
		c.logger.Debug("submit rejected: already processing")
		return nil, ErrSubmissionConflict
	case PhaseSucceeded:
		c.mu.Unlock()
		c.count(ctx, OutcomeClosed)
		return nil, ErrSubmissionClosed
	}

	order, err := c.schema.Validate(c.values)
	if err != nil {
		var verr *validation.Errors
		if errors.As(err, &verr) {
			c.errors = copyErrors(verr.Fields)
			c.mu.Unlock()
			c.count(ctx, OutcomeInvalid)
			c.logger.Debug("submit rejected: invalid form", zap.Int("fields", len(verr.Fields)))
			return nil, verr
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("submission: %w", err)
	}

	attempt := newAttempt(c.newID())
	c.errors = make(map[model.FieldName]string)
	c.transitionLocked(Status{Phase: PhaseProcessing})
	c.current = attempt
	c.mu.Unlock()

	c.logger.Info("submission started",
		zap.String("attempt_id", attempt.ID),
		zap.String("order", model.DescribeOrder(order)),
	)
	go c.process(ctx, attempt, order)
	return attempt, nil
}

func (c *Controller) process(ctx context.Context, attempt *Attempt, order model.Order) {
	defer close(attempt.done)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	callCtx, span := c.tracer.Start(callCtx, "checkout.process_payment",
		trace.WithAttributes(
			attribute.String("checkout.attempt_id", attempt.ID),
			attribute.String("payment.method", string(order.PaymentMethod())),
		),
	)

	start := time.Now()
	receipt, err := c.call(callCtx, attempt.ID, order)
	elapsed := time.Since(start)

	var (
		next    Status
		outcome string
		n       notify.Notification
	)
	data := notify.Data{Email: order.BuyerEmail(), Method: order.PaymentMethod()}
	if err != nil {
		perr := payment.AsError(err)
		if perr.Code == payment.CodeUnknown && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			perr = payment.NewError(payment.CodeTimeout, err)
		}
		next = Status{Phase: PhaseFailed, Reason: perr.UserMessage(), Code: string(perr.Code)}
		outcome = OutcomeFailed
		data.Reason = next.Reason
		n = c.composer.Failure(data)
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(perr.Code))
	} else {
		r := receipt
		next = Status{Phase: PhaseSucceeded, Receipt: &r}
		outcome = OutcomeSucceeded
		data.ReceiptID = receipt.ID
		n = c.composer.Success(data)
		span.SetAttributes(attribute.String("payment.receipt_id", receipt.ID))
	}
	span.End()

	c.mu.Lock()
	c.transitionLocked(next)
	attempt.result = next
	c.mu.Unlock()

	c.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("payment_method", string(order.PaymentMethod())),
		attribute.String("outcome", outcome),
	))
	c.count(ctx, outcome)
	if outcome == OutcomeFailed {
		c.logger.Warn("submission failed",
			zap.String("attempt_id", attempt.ID),
			zap.String("code", next.Code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		c.logger.Info("submission succeeded",
			zap.String("attempt_id", attempt.ID),
			zap.String("receipt_id", receipt.ID),
			zap.Duration("elapsed", elapsed),
		)
	}

	c.notify(context.WithoutCancel(ctx), attempt.ID, n)
}

type callResult struct {
	receipt model.Receipt
	err     error
}

// call runs the boundary on its own goroutine and stops waiting once ctx
// ends, so a boundary that ignores ctx cannot hold the controller in
// PhaseProcessing. A late result is logged and dropped. A boundary panic
// resolves the attempt as an unknown failure.
func (c *Controller) call(ctx context.Context, attemptID string, order model.Order) (model.Receipt, error) {
	results := make(chan callResult, 1)
	go func() {
		var res callResult
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("payment boundary panicked",
					zap.String("attempt_id", attemptID),
					zap.Any("panic", r),
				)
				res = callResult{err: payment.NewError(payment.CodeUnknown, fmt.Errorf("boundary panic: %v", r))}
			}
			results <- res
		}()
		res.receipt, res.err = c.boundary.ProcessPayment(ctx, order, payment.Request{IdempotencyKey: attemptID})
	}()

	select {
	case res := <-results:
		return res.receipt, res.err
	case <-ctx.Done():
		go func() {
			late := <-results
			c.logger.Warn("discarding late payment result",
				zap.String("attempt_id", attemptID),
				zap.Bool("succeeded", late.err == nil),
				zap.String("receipt_id", late.receipt.ID),
			)
		}()
		return model.Receipt{}, ctx.Err()
	}
}

func (c *Controller) notify(ctx context.Context, attemptID string, n notify.Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification sink panicked",
				zap.String("attempt_id", attemptID),
				zap.Any("panic", r),
			)
		}
	}()
	c.sink.Notify(ctx, n)
}

// Reset restores default values and PhaseIdle. It is rejected while a
// submission is processing.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Phase == PhaseProcessing {
		return ErrSubmissionConflict
	}
	c.values = model.DefaultValues()
	c.errors = make(map[model.FieldName]string)
	c.transitionLocked(idle())
	c.current = nil
	return nil
}

// Values returns a copy of the form values.
func (c *Controller) Values() model.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values
}

// Errors returns a copy of the displayed field errors.
func (c *Controller) Errors() map[model.FieldName]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyErrors(c.errors)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Required lists the fields the current payment method needs.
func (c *Controller) Required() []model.FieldName {
	c.mu.Lock()
	values := c.values
	c.mu.Unlock()
	return c.schema.Required(values)
}

// CanSubmit reports whether Submit would be admitted (validation aside).
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

// Current returns the most recently admitted attempt, or nil.
func (c *Controller) Current() *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns every read-side value taken under a single lock.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	view := View{
		Values:    c.values,
		Errors:    copyErrors(c.errors),
		Status:    c.status,
		CanSubmit: c.canSubmitLocked(),
	}
	c.mu.Unlock()

	view.Issues = (&validation.Errors{Fields: view.Errors}).Issues()
	view.Required = c.schema.Required(view.Values)
	return view
}

func (c *Controller) canSubmitLocked() bool {
	return c.status.Phase != PhaseProcessing && c.status.Phase != PhaseSucceeded
}

func (c *Controller) transitionLocked(next Status) {
	if c.status.Phase != next.Phase && !c.status.Phase.CanTransitionTo(next.Phase) {
		c.logger.Error("unexpected status transition",
			zap.String("from", string(c.status.Phase)),
			zap.String("to", string(next.Phase)),
		)
	}
	c.status = next
}

func (c *Controller) dropInactiveErrorsLocked() {
	for _, field := range model.CardFields() {
		if _, ok := c.errors[field]; !ok {
			continue
		}
		if !c.schema.Applies(field, c.values) {
			delete(c.errors, field)
		}
	}
}

func (c *Controller) count(ctx context.Context, outcome string) {
	c.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func copyErrors(src map[model.FieldName]string) map[model.FieldName]string {
	out := make(map[model.FieldName]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
