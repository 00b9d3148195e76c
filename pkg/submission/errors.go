package submission

import "errors"

var (
	// ErrSubmissionConflict rejects a submit or reset while a submission is
	// in flight. The rejected request is dropped, never queued.
	ErrSubmissionConflict = errors.New("submission: a submission is already in progress")
	// ErrSubmissionClosed rejects a submit after success until Reset.
	ErrSubmissionClosed = errors.New("submission: order already completed")
	// ErrNilBoundary is returned by New when no payment boundary is given.
	ErrNilBoundary = errors.New("submission: payment boundary is required")
)
