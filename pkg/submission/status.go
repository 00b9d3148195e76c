package submission

import (
	"fmt"

	"github.com/goliatone/go-checkout/pkg/model"
)

// Phase is the lifecycle position of the current submission.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// CanTransitionTo reports whether the controller may move from p to next.
// Succeeded and Failed only return to Idle through Reset.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseIdle:
		return next == PhaseProcessing
	case PhaseProcessing:
		return next == PhaseSucceeded || next == PhaseFailed
	case PhaseFailed:
		return next == PhaseProcessing || next == PhaseIdle
	case PhaseSucceeded:
		return next == PhaseIdle
	default:
		return false
	}
}

// Status is the externally visible submission state. Reason is set only in
// PhaseFailed and Receipt only in PhaseSucceeded.
type Status struct {
	Phase   Phase          `json:"phase"`
	Reason  string         `json:"reason,omitempty"`
	Code    string         `json:"code,omitempty"`
	Receipt *model.Receipt `json:"receipt,omitempty"`
}

func (s Status) String() string {
	switch s.Phase {
	case PhaseFailed:
		return fmt.Sprintf("%s: %s", s.Phase, s.Reason)
	case PhaseSucceeded:
		if s.Receipt != nil {
			return fmt.Sprintf("%s: receipt %s", s.Phase, s.Receipt.ID)
		}
	}
	return string(s.Phase)
}

func idle() Status { return Status{Phase: PhaseIdle} }
