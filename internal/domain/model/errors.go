package model

import (
	"errors"
	"fmt"
)

// ErrMalformedLog is the sentinel kind of every MalformedLogError.
var ErrMalformedLog = errors.New("malformed event log")

// MalformedLogError reports a frame record that cannot be evaluated: an
// unresolvable frame index or a label outside the recognized set.
type MalformedLogError struct {
	Frame  string // frame key as supplied; empty when not attributable
	Field  string // offending field, e.g. "frame", "action", "pred_action"
	Reason string
}

func (e *MalformedLogError) Error() string {
	if e.Frame == "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedLog, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: frame %q: %s: %s", ErrMalformedLog, e.Frame, e.Field, e.Reason)
}

// Unwrap exposes ErrMalformedLog to errors.Is.
func (e *MalformedLogError) Unwrap() error { return ErrMalformedLog }

func malformed(frame, field, reason string) error {
	return &MalformedLogError{Frame: frame, Field: field, Reason: reason}
}
