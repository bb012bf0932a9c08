package command

import (
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Unsubscribe is the terminal handler for UNSUBSCRIBE. A
// missing match is silent — the registry's removed bool is
// discarded and no event fires.
func (d *Deps) Unsubscribe(sess *session.Session, fr *frame.Frame) {
	id, ok := fr.Headers.Get(frame.HeaderID)
	if !ok {
		reject(sess, "UNSUBSCRIBE requires an id header", fr, false)
		return
	}

	if d.Registry.Remove(sess.ID, id) && d.Emit != nil {
		d.Emit(EventUnsubscribe, UnsubscribeEvent{SessionID: sess.ID, ID: id})
	}
}
