package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-checkout/pkg/notify"
)

// Sink records notifications. OnNotify, when set, runs before recording.
type Sink struct {
	OnNotify func(n notify.Notification)

	mu   sync.Mutex
	seen []notify.Notification
}

func (s *Sink) Notify(_ context.Context, n notify.Notification) {
	if s.OnNotify != nil {
		s.OnNotify(n)
	}
	s.mu.Lock()
	s.seen = append(s.seen, n)
	s.mu.Unlock()
}

// Notifications returns a copy of what was recorded.
func (s *Sink) Notifications() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.seen...)
}
