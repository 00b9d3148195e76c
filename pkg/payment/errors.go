package payment

import (
	"context"
	"errors"
	"fmt"
)

// Code is the normalized failure taxonomy shared by every adapter.
type Code string

const (
	CodeDeclined          Code = "declined"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeIncorrectCVC      Code = "incorrect_cvc"
	CodeExpiredCard       Code = "expired_card"
	CodeUnsupportedMethod Code = "unsupported_method"
	CodeTimeout           Code = "timeout"
	CodeCanceled          Code = "canceled"
	CodeUnavailable       Code = "unavailable"
	CodeUnknown           Code = "unknown"
)

var userMessages = map[Code]string{
	CodeDeclined:          "Your card was declined",
	CodeInsufficientFunds: "Insufficient funds",
	CodeIncorrectCVC:      "Incorrect CVC",
	CodeExpiredCard:       "Your card has expired",
	CodeUnsupportedMethod: "This payment method is not available",
	CodeTimeout:           "The payment timed out, please try again",
	CodeCanceled:          "The payment was canceled",
	CodeUnavailable:       "The payment service is unavailable, please try again later",
	CodeUnknown:           "Payment processing failed",
}

// Error is a failed boundary call.
type Error struct {
	Code Code
	// Message is optional gateway text shown instead of the default copy.
	Message string
	Err     error
}

// NewError builds an Error with the default copy for code.
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	msg := "payment: " + string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the buyer-facing reason for the failure.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return userMessages[CodeUnknown]
}

// Retryable reports whether resubmitting the same order may succeed.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeTimeout, CodeUnavailable, CodeCanceled:
		return true
	default:
		return false
	}
}

// AsError normalizes err into an *Error. Context deadlines map to
// CodeTimeout, cancellation to CodeCanceled and anything else unrecognized to
// CodeUnknown. A nil err returns nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeTimeout, err)
	case errors.Is(err, context.Canceled):
		return NewError(CodeCanceled, err)
	default:
		return NewError(CodeUnknown, err)
	}
}

// ErrUnsupportedMethod builds the error adapters return for orders they
// cannot charge.
func ErrUnsupportedMethod(method fmt.Stringer) *Error {
	return &Error{
		Code: CodeUnsupportedMethod,
		Err:  fmt.Errorf("method %s not supported by this gateway", method),
	}
}
