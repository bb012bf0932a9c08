package command

import (
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/registry"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
	"github.com/life-stream-dev/stomp-ws-broker/internal/topic"
)

// Subscribe is the terminal handler for SUBSCRIBE.
func (d *Deps) Subscribe(sess *session.Session, fr *frame.Frame) {
	dest, ok := fr.Headers.Get(frame.HeaderDestination)
	if !ok {
		reject(sess, "SUBSCRIBE requires a destination header", fr, false)
		return
	}
	id, ok := fr.Headers.Get(frame.HeaderID)
	if !ok {
		reject(sess, "SUBSCRIBE requires an id header", fr, false)
		return
	}
	if d.Registry.Has(sess.ID, id) {
		reject(sess, "duplicate subscription id", fr, false)
		return
	}

	sub := &registry.Subscription{
		ID:        id,
		SessionID: sess.ID,
		Topic:     dest,
		Tokens:    topic.Tokenize(dest),
	}
	d.Registry.Add(sub)

	if d.Emit != nil {
		d.Emit(EventSubscribe, sub)
	}
}
