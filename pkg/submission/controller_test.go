package submission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/notify"
	"github.com/goliatone/go-checkout/pkg/payment"
	"github.com/goliatone/go-checkout/pkg/submission"
	"github.com/goliatone/go-checkout/pkg/testsupport"
	"github.com/goliatone/go-checkout/pkg/validation"
)

func newController(t *testing.T, boundary payment.Boundary, opts ...submission.Option) *submission.Controller {
	t.Helper()
	ctrl, err := submission.New(boundary, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return ctrl
}

func fill(t *testing.T, ctrl *submission.Controller, values model.Values) {
	t.Helper()
	for _, field := range model.Fields() {
		value, err := values.Get(field)
		if err != nil {
			t.Fatalf("Get(%s): %v", field, err)
		}
		if err := ctrl.UpdateField(string(field), value); err != nil {
			t.Fatalf("UpdateField(%s): %v", field, err)
		}
	}
}

func submitAndWait(t *testing.T, ctx context.Context, ctrl *submission.Controller) submission.Status {
	t.Helper()
	attempt, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	status, err := attempt.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	return status
}

func TestNewRequiresBoundary(t *testing.T) {
	t.Parallel()

	if _, err := submission.New(nil); !errors.Is(err, submission.ErrNilBoundary) {
		t.Fatalf("expected ErrNilBoundary, got %v", err)
	}
}

func TestControllerStartsWithDefaults(t *testing.T) {
	t.Parallel()

	ctrl := newController(t, testsupport.NewBoundary())
	view := ctrl.Snapshot()

	testsupport.AssertDiff(t, "values", model.DefaultValues(), view.Values)
	testsupport.AssertDiff(t, "status", submission.Status{Phase: submission.PhaseIdle}, view.Status)
	testsupport.AssertDiff(t, "required",
		[]model.FieldName{model.FieldEmail, model.FieldCardNumber, model.FieldExpiry, model.FieldCVC},
		view.Required)
	if len(view.Errors) != 0 || !view.CanSubmit {
		t.Fatalf("unexpected initial view %+v", view)
	}
}

func TestSubmitCardOrderSucceeds(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewBoundary()
	sink := &testsupport.Sink{}
	ctrl := newController(t, boundary,
		submission.WithSink(sink),
		submission.WithIDGenerator(func() string { return "attempt-1" }),
	)
	fill(t, ctrl, testsupport.CardValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseSucceeded || status.Receipt == nil || status.Receipt.ID != "rcpt-1" {
		t.Fatalf("unexpected status %+v", status)
	}
	testsupport.AssertDiff(t, "controller status", status, ctrl.Status())

	calls := boundary.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one boundary call, got %d", len(calls))
	}
	wantOrder := model.CardOrder{
		Email: "a@b.co",
		Card:  model.Card{Number: "1234567890123456", Expiry: "09/27", ExpMonth: 9, ExpYear: 2027, CVC: "123"},
	}
	testsupport.AssertDiff(t, "order", wantOrder, calls[0].Order)
	testsupport.AssertDiff(t, "request", payment.Request{IdempotencyKey: "attempt-1"}, calls[0].Request)

	testsupport.AssertDiff(t, "notifications", []notify.Notification{{
		Kind:        notify.KindSuccess,
		Title:       "Payment successful",
		Description: "Thank you for your purchase. Your order has been confirmed.",
	}}, sink.Notifications())
}

func TestSubmitPayPalIgnoresCardFields(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewBoundary()
	ctrl := newController(t, boundary)
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseSucceeded {
		t.Fatalf("unexpected status %+v", status)
	}
	testsupport.AssertDiff(t, "order", model.PayPalOrder{Email: "x@y.com"}, boundary.Calls()[0].Order)
}

func TestSubmitInvalidEmail(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewBoundary()
	sink := &testsupport.Sink{}
	ctrl := newController(t, boundary, submission.WithSink(sink))
	values := testsupport.CardValues()
	values.Email = "not-an-email"
	fill(t, ctrl, values)

	attempt, err := ctrl.Submit(ctx)
	if attempt != nil {
		t.Fatalf("expected no attempt")
	}
	var verr *validation.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Errors, got %v", err)
	}
	want := map[model.FieldName]string{model.FieldEmail: validation.MessageEmail}
	testsupport.AssertDiff(t, "returned errors", want, verr.Fields)
	testsupport.AssertDiff(t, "displayed errors", want, ctrl.Errors())

	if ctrl.Status().Phase != submission.PhaseIdle {
		t.Fatalf("status changed to %s", ctrl.Status().Phase)
	}
	if len(boundary.Calls()) != 0 || len(sink.Notifications()) != 0 {
		t.Fatalf("boundary or sink reached on invalid submit")
	}
}

func TestSubmitReportsEveryCardError(t *testing.T) {
	t.Parallel()

	ctrl := newController(t, testsupport.NewBoundary())
	fill(t, ctrl, model.Values{
		Email:         "a@b.co",
		PaymentMethod: model.CreditCard,
		CardNumber:    "1234",
		Expiry:        "2027-09",
		CVC:           "1",
	})

	if _, err := ctrl.Submit(testsupport.Context(t)); err == nil {
		t.Fatalf("expected validation error")
	}
	testsupport.AssertDiff(t, "issues", []validation.Issue{
		{Field: model.FieldCardNumber, Message: validation.MessageCardNumber},
		{Field: model.FieldExpiry, Message: validation.MessageExpiry},
		{Field: model.FieldCVC, Message: validation.MessageCVC},
	}, ctrl.Snapshot().Issues)
}

func TestSwitchingMethodClearsCardErrors(t *testing.T) {
	t.Parallel()

	ctrl := newController(t, testsupport.NewBoundary())
	fill(t, ctrl, model.Values{Email: "bad", PaymentMethod: model.CreditCard})
	if _, err := ctrl.Submit(testsupport.Context(t)); err == nil {
		t.Fatalf("expected validation error")
	}
	if got := len(ctrl.Errors()); got != 4 {
		t.Fatalf("expected 4 errors, got %d", got)
	}

	if err := ctrl.SetPaymentMethod(model.ApplePay); err != nil {
		t.Fatalf("SetPaymentMethod returned error: %v", err)
	}
	testsupport.AssertDiff(t, "errors", map[model.FieldName]string{model.FieldEmail: validation.MessageEmail}, ctrl.Errors())
	testsupport.AssertDiff(t, "required", []model.FieldName{model.FieldEmail}, ctrl.Required())

	if err := ctrl.UpdateField("paymentMethod", "credit-card"); err != nil {
		t.Fatalf("UpdateField returned error: %v", err)
	}
	if got := len(ctrl.Errors()); got != 1 {
		t.Fatalf("switching back must not resurrect card errors, got %d", got)
	}
}

func TestUpdateFieldRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctrl := newController(t, testsupport.NewBoundary())
	if err := ctrl.UpdateField("phone", "123"); !errors.Is(err, model.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := ctrl.UpdateField("paymentMethod", "bitcoin"); !errors.Is(err, model.ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
	if err := ctrl.SetPaymentMethod("cash"); !errors.Is(err, model.ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
	if got := ctrl.Values().PaymentMethod; got != model.CreditCard {
		t.Fatalf("payment method changed to %q", got)
	}
	if len(ctrl.Errors()) != 0 {
		t.Fatalf("bad input must not become field errors")
	}
}

func TestSubmitWhileProcessingIsRejected(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewGatedBoundary()
	ctrl := newController(t, boundary)
	fill(t, ctrl, testsupport.CardValues())

	attempt, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	<-boundary.Started()

	if ctrl.Status().Phase != submission.PhaseProcessing || ctrl.CanSubmit() {
		t.Fatalf("expected processing, got %+v", ctrl.Status())
	}
	if _, err := ctrl.Submit(ctx); !errors.Is(err, submission.ErrSubmissionConflict) {
		t.Fatalf("expected ErrSubmissionConflict, got %v", err)
	}
	if err := ctrl.Reset(); !errors.Is(err, submission.ErrSubmissionConflict) {
		t.Fatalf("expected Reset conflict, got %v", err)
	}

	// Edits are accepted but never reach the in-flight order.
	if err := ctrl.UpdateField("email", "changed@example.com"); err != nil {
		t.Fatalf("UpdateField returned error: %v", err)
	}

	boundary.Release()
	status, err := attempt.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if status.Phase != submission.PhaseSucceeded {
		t.Fatalf("unexpected status %+v", status)
	}
	calls := boundary.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one boundary call, got %d", len(calls))
	}
	if got := calls[0].Order.BuyerEmail(); got != "a@b.co" {
		t.Fatalf("in-flight order saw edit: %q", got)
	}
	if got := ctrl.Values().Email; got != "changed@example.com" {
		t.Fatalf("edit lost: %q", got)
	}
}

func TestConcurrentSubmitsAdmitOne(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewGatedBoundary()
	ctrl := newController(t, boundary)
	fill(t, ctrl, testsupport.PayPalValues())

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  []*submission.Attempt
		conflicts int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			attempt, err := ctrl.Submit(ctx)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted = append(admitted, attempt)
			case errors.Is(err, submission.ErrSubmissionConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(admitted) != 1 || conflicts != n-1 {
		t.Fatalf("admitted %d, conflicts %d", len(admitted), conflicts)
	}
	boundary.Release()
	if _, err := admitted[0].Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if got := len(boundary.Calls()); got != 1 {
		t.Fatalf("expected one boundary call, got %d", got)
	}
}

func TestFailureKeepsValuesAndAllowsRetry(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := testsupport.NewGatedBoundary(testsupport.Result{Err: payment.NewError(payment.CodeDeclined, nil)})
	sink := &testsupport.Sink{}
	ctrl := newController(t, boundary, submission.WithSink(sink))
	fill(t, ctrl, testsupport.CardValues())

	attempt, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	boundary.Release()
	status, err := attempt.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	testsupport.AssertDiff(t, "failed status", submission.Status{
		Phase:  submission.PhaseFailed,
		Reason: "Your card was declined",
		Code:   string(payment.CodeDeclined),
	}, status)
	testsupport.AssertDiff(t, "values after failure", testsupport.CardValues(), ctrl.Values())
	testsupport.AssertDiff(t, "failure notification", []notify.Notification{{
		Kind:        notify.KindFailure,
		Title:       "Payment failed",
		Description: "Your card was declined",
	}}, sink.Notifications())
	if !ctrl.CanSubmit() {
		t.Fatalf("expected resubmission to be allowed after failure")
	}

	// Edits keep the failed status until the next submit.
	if err := ctrl.UpdateField("cvc", "456"); err != nil {
		t.Fatalf("UpdateField returned error: %v", err)
	}
	if ctrl.Status().Phase != submission.PhaseFailed {
		t.Fatalf("edit reset status to %s", ctrl.Status().Phase)
	}

	retry, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("retry Submit returned error: %v", err)
	}
	testsupport.AssertDiff(t, "status on retry", submission.Status{Phase: submission.PhaseProcessing}, ctrl.Status())
	boundary.Release()
	status, err = retry.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if status.Phase != submission.PhaseSucceeded {
		t.Fatalf("retry status %+v", status)
	}
	calls := boundary.Calls()
	if len(calls) != 2 || calls[0].Request.IdempotencyKey == calls[1].Request.IdempotencyKey {
		t.Fatalf("expected two calls with distinct idempotency keys: %+v", calls)
	}
}

func TestSucceededIsClosedUntilReset(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	ctrl := newController(t, testsupport.NewBoundary())
	fill(t, ctrl, testsupport.PayPalValues())
	submitAndWait(t, ctx, ctrl)

	if _, err := ctrl.Submit(ctx); !errors.Is(err, submission.ErrSubmissionClosed) {
		t.Fatalf("expected ErrSubmissionClosed, got %v", err)
	}
	if ctrl.CanSubmit() {
		t.Fatalf("CanSubmit should be false after success")
	}

	if err := ctrl.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	view := ctrl.Snapshot()
	testsupport.AssertDiff(t, "values", model.DefaultValues(), view.Values)
	testsupport.AssertDiff(t, "status", submission.Status{Phase: submission.PhaseIdle}, view.Status)
	if ctrl.Current() != nil {
		t.Fatalf("Reset should forget the last attempt")
	}
}

func TestTimeoutFailsSubmission(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	ctrl := newController(t, testsupport.NewGatedBoundary(), submission.WithTimeout(20*time.Millisecond))
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseFailed || status.Code != string(payment.CodeTimeout) {
		t.Fatalf("expected timeout failure, got %+v", status)
	}
}

func TestTimeoutOverridesUnknownBoundaryError(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := payment.BoundaryFunc(func(ctx context.Context, _ model.Order, _ payment.Request) (model.Receipt, error) {
		<-ctx.Done()
		return model.Receipt{}, errors.New("gateway gave up")
	})
	ctrl := newController(t, boundary, submission.WithTimeout(10*time.Millisecond))
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Code != string(payment.CodeTimeout) {
		t.Fatalf("expected timeout code, got %+v", status)
	}
}

func TestTimeoutStopsBoundaryIgnoringContext(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	boundary := payment.BoundaryFunc(func(context.Context, model.Order, payment.Request) (model.Receipt, error) {
		<-release
		return model.Receipt{ID: "late"}, nil
	})
	sink := &testsupport.Sink{}
	ctrl := newController(t, boundary,
		submission.WithTimeout(10*time.Millisecond),
		submission.WithSink(sink),
	)
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseFailed || status.Code != string(payment.CodeTimeout) {
		t.Fatalf("expected failed timeout, got %+v", status)
	}
	if got := ctrl.Status(); got.Phase != submission.PhaseFailed {
		t.Fatalf("controller still %q after deadline", got.Phase)
	}
	if !ctrl.CanSubmit() {
		t.Fatalf("expected resubmission to be allowed after timeout")
	}
	notes := sink.Notifications()
	if len(notes) != 1 || notes[0].Kind != notify.KindFailure {
		t.Fatalf("expected one failure notification, got %+v", notes)
	}
}

func TestBoundaryPanicFailsSubmission(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	boundary := payment.BoundaryFunc(func(context.Context, model.Order, payment.Request) (model.Receipt, error) {
		panic("gateway exploded")
	})
	sink := &testsupport.Sink{}
	ctrl := newController(t, boundary, submission.WithSink(sink))
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseFailed || status.Code != string(payment.CodeUnknown) {
		t.Fatalf("expected failed unknown, got %+v", status)
	}
	if len(sink.Notifications()) != 1 {
		t.Fatalf("expected a failure notification")
	}
}

func TestSinkPanicStillResolvesAttempt(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	sink := notify.SinkFunc(func(context.Context, notify.Notification) {
		panic("display gone")
	})
	ctrl := newController(t, testsupport.NewBoundary(), submission.WithSink(sink))
	fill(t, ctrl, testsupport.PayPalValues())

	status := submitAndWait(t, ctx, ctrl)
	if status.Phase != submission.PhaseSucceeded {
		t.Fatalf("expected succeeded, got %+v", status)
	}
}

func TestStatusUpdatedBeforeNotification(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context(t)
	var ctrl *submission.Controller
	var seen submission.Phase
	sink := &testsupport.Sink{OnNotify: func(notify.Notification) {
		seen = ctrl.Status().Phase
	}}
	ctrl = newController(t, testsupport.NewBoundary(), submission.WithSink(sink))
	fill(t, ctrl, testsupport.CardValues())

	submitAndWait(t, ctx, ctrl)
	if seen != submission.PhaseSucceeded {
		t.Fatalf("sink observed phase %q", seen)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	boundary := testsupport.NewGatedBoundary()
	ctrl := newController(t, boundary)
	fill(t, ctrl, testsupport.PayPalValues())

	attempt, err := ctrl.Submit(testsupport.Context(t))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := attempt.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	select {
	case <-attempt.Done():
		t.Fatalf("attempt resolved before release")
	default:
	}
	boundary.Release()
	<-attempt.Done()
}

func TestCanceledSubmitContextFailsPayment(t *testing.T) {
	t.Parallel()

	boundary := testsupport.NewGatedBoundary()
	ctrl := newController(t, boundary)
	fill(t, ctrl, testsupport.PayPalValues())

	ctx, cancel := context.WithCancel(context.Background())
	attempt, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	<-boundary.Started()
	cancel()

	status, err := attempt.Wait(testsupport.Context(t))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	testsupport.AssertDiff(t, "status", submission.Status{
		Phase:  submission.PhaseFailed,
		Reason: "The payment was canceled",
		Code:   string(payment.CodeCanceled),
	}, status, cmpopts.EquateEmpty())
}

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[submission.Phase][]submission.Phase{
		submission.PhaseIdle:       {submission.PhaseProcessing},
		submission.PhaseProcessing: {submission.PhaseSucceeded, submission.PhaseFailed},
		submission.PhaseFailed:     {submission.PhaseProcessing, submission.PhaseIdle},
		submission.PhaseSucceeded:  {submission.PhaseIdle},
	}
	phases := []submission.Phase{submission.PhaseIdle, submission.PhaseProcessing, submission.PhaseSucceeded, submission.PhaseFailed}
	for _, from := range phases {
		for _, to := range phases {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
}
