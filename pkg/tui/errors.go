package tui

import "errors"

// ErrAborted signals the buyer aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("tui: aborted")
