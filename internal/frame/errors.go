package frame

import "errors"

// ErrMalformedFrame is returned by Parse when a buffer does not conform
// to the STOMP 1.1 frame grammar.
var ErrMalformedFrame = errors.New("frame: malformed frame")

// MalformedFrameError wraps ErrMalformedFrame with the specific reason,
// letting callers errors.Is(err, ErrMalformedFrame) while still logging
// or surfacing Reason in an ERROR frame body.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return "frame: malformed frame: " + e.Reason
}

func (e *MalformedFrameError) Unwrap() error {
	return ErrMalformedFrame
}

func malformed(reason string) error {
	return &MalformedFrameError{Reason: reason}
}
