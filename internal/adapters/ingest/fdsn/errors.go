package fdsn

import (
	"fmt"

	perr "quakeingest/internal/platform/errors"
	pstrings "quakeingest/internal/platform/strings"
)

// StatusError is returned by Fetch when the service answers with anything but 200.
// It unwraps to a perr Upstream error so callers can skip the window
type StatusError struct {
	Status int
	Reason string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fdsn: unexpected status %d (%s) for %s", e.Status, e.Reason, e.URL)
}

// Unwrap exposes the project error code
func (e *StatusError) Unwrap() error { return perr.Upstreamf("status %d", e.Status) }

// ParseError reports a response line that could not be decoded
type ParseError struct {
	State    State
	Fragment string // truncated for logging
	Err      error
}

const fragmentLogMax = 256

func newParseError(st State, frag []byte, err error) *ParseError {
	return &ParseError{State: st, Fragment: pstrings.Truncate(string(frag), fragmentLogMax), Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fdsn: %s fragment: %v", e.State, e.Err)
}

// Unwrap exposes the project error code (JSON) and the decoder error
func (e *ParseError) Unwrap() error { return perr.Wrap(e.Err, perr.ErrorCodeJSON, "decode fragment") }
