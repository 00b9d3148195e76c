// Package notify carries the outcome messages the checkout shows to the buyer
// once a submission resolves.
package notify

import "context"

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Notification is a transient, user-visible outcome message.
type Notification struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Sink receives notifications. Implementations must not block for long; the
// controller calls Notify from the goroutine that resolved the submission.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (fn SinkFunc) Notify(ctx context.Context, n Notification) {
	fn(ctx, n)
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})
