package command

import (
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Disconnect is the terminal handler for DISCONNECT. The
// disconnected event itself fires from the session's teardown handler,
// which the broker wires once per session regardless of which path
// triggered teardown.
func (d *Deps) Disconnect(sess *session.Session, fr *frame.Frame) {
	sess.Teardown()
}
