package submission

import "context"

// Attempt is one admitted submission. Its outcome is final once Done is
// closed; by then the controller status and the notification sink have both
// seen it.
type Attempt struct {
	ID string

	done   chan struct{}
	result Status
}

func newAttempt(id string) *Attempt {
	return &Attempt{ID: id, done: make(chan struct{})}
}

// Done is closed when the attempt resolves.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt resolves or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (Status, error) {
	select {
	case <-a.done:
		return a.result, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}
