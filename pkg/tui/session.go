// Package tui runs the checkout form in a terminal: it prompts for the fields
// the selected payment method needs, submits through a submission.Controller
// and prints the outcome notification.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/notify"
	"github.com/goliatone/go-checkout/pkg/submission"
	"github.com/goliatone/go-checkout/pkg/validation"
)

var fieldLabels = map[model.FieldName]string{
	model.FieldEmail:         "Email",
	model.FieldPaymentMethod: "Payment method",
	model.FieldCardNumber:    "Card number",
	model.FieldExpiry:        "Expiry (MM/YY)",
	model.FieldCVC:           "CVC",
}

// Session is one interactive checkout. It doubles as the controller's
// notification sink so outcomes are printed where the buyer is looking.
// Notifications arrive on the controller goroutine and are queued; only Run
// talks to the driver.
type Session struct {
	driver PromptDriver
	theme  Theme
	logger *zap.Logger

	mu      sync.Mutex
	pending []notify.Notification
}

func NewSession(opts ...Option) *Session {
	s := &Session{theme: DefaultTheme, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s
}

// Notify queues an outcome notification for Run to print.
func (s *Session) Notify(_ context.Context, n notify.Notification) {
	s.mu.Lock()
	s.pending = append(s.pending, n)
	s.mu.Unlock()
}

// flush prints queued notifications in arrival order.
func (s *Session) flush(ctx context.Context) error {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, n := range queued {
		prefix := s.theme.InfoPrefix
		switch n.Kind {
		case notify.KindSuccess:
			prefix = s.theme.SuccessPrefix
		case notify.KindFailure:
			prefix = s.theme.ErrorPrefix
		}
		msg := prefix + n.Title
		if n.Description != "" {
			msg += "\n" + n.Description
		}
		if err := s.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Run loops until the buyer declines to continue. Validation failures are
// listed and the form is prompted again with the values kept; a failed
// payment offers a retry with the same data.
func (s *Session) Run(ctx context.Context, ctrl *submission.Controller) error {
	if ctrl == nil {
		return errors.New("tui: controller is nil")
	}
	for {
		if err := s.collect(ctx, ctrl); err != nil {
			return err
		}

		attempt, err := ctrl.Submit(ctx)
		if err != nil {
			var verr *validation.Errors
			switch {
			case errors.As(err, &verr):
				if err := s.showIssues(ctx, verr.Issues()); err != nil {
					return err
				}
				continue
			case errors.Is(err, submission.ErrSubmissionConflict):
				if err := s.info(ctx, "A payment is already in progress"); err != nil {
					return err
				}
				if current := ctrl.Current(); current != nil {
					if _, err := current.Wait(ctx); err != nil {
						return err
					}
					if err := s.flush(ctx); err != nil {
						return err
					}
				}
				continue
			default:
				return err
			}
		}

		if err := s.info(ctx, "Processing payment..."); err != nil {
			return err
		}
		status, err := attempt.Wait(ctx)
		if err != nil {
			return err
		}
		if err := s.flush(ctx); err != nil {
			return err
		}
		s.logger.Debug("attempt resolved", zap.String("attempt_id", attempt.ID), zap.String("status", status.String()))

		switch status.Phase {
		case submission.PhaseSucceeded:
			again, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Start a new purchase?"})
			if err != nil || !again {
				return err
			}
			if err := ctrl.Reset(); err != nil {
				return err
			}
		case submission.PhaseFailed:
			retry, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
			if err != nil || !retry {
				return err
			}
		}
	}
}

func (s *Session) collect(ctx context.Context, ctrl *submission.Controller) error {
	values := ctrl.Values()

	email, err := s.driver.Input(ctx, InputConfig{Message: fieldLabels[model.FieldEmail], Default: values.Email})
	if err != nil {
		return err
	}
	if err := ctrl.UpdateField(string(model.FieldEmail), strings.TrimSpace(email)); err != nil {
		return err
	}

	methods := model.PaymentMethods()
	labels := make([]string, len(methods))
	current := 0
	for i, m := range methods {
		labels[i] = m.Label()
		if m == values.PaymentMethod {
			current = i
		}
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      fieldLabels[model.FieldPaymentMethod],
		Options:      labels,
		DefaultIndex: current,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(methods) {
		return fmt.Errorf("tui: invalid payment method selection %d", idx)
	}
	if err := ctrl.SetPaymentMethod(methods[idx]); err != nil {
		return err
	}

	for _, field := range ctrl.Required() {
		if !field.IsCardField() {
			continue
		}
		prev, _ := values.Get(field)
		cfg := InputConfig{Message: fieldLabels[field], Default: prev}
		var value string
		if field == model.FieldCVC {
			value, err = s.driver.Password(ctx, cfg)
		} else {
			value, err = s.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}
		if err := ctrl.UpdateField(string(field), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) showIssues(ctx context.Context, issues []validation.Issue) error {
	for _, issue := range issues {
		msg := fmt.Sprintf("%s%s: %s", s.theme.ErrorPrefix, fieldLabels[issue.Field], issue.Message)
		if err := s.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}
