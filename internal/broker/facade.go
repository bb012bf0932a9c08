package broker

import (
	"encoding/json"

	"github.com/life-stream-dev/stomp-ws-broker/internal/command"
	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/middleware"
)

// Subscribe creates a subscription bound to the in-process pseudo-
// session. If headers["id"] is set it is honored;
// otherwise a fresh id is generated. callback, when non-nil, is
// invoked with (body, headers) for every delivered message instead of
// a transport write.
func (b *Broker) Subscribe(topic string, callback func(body []byte, headers map[string]string), headers map[string]string) (string, bool) {
	id := headers[frame.HeaderID]
	if id == "" {
		id = newID()
	} else if b.registry.Has(b.pseudo.ID, id) {
		return "", false
	}

	fr := frame.New(frame.CommandSubscribe)
	fr.Headers.Set(frame.HeaderDestination, topic)
	fr.Headers.Set(frame.HeaderID, id)
	for k, v := range headers {
		if k == frame.HeaderID {
			continue
		}
		fr.Headers.Set(k, v)
	}

	b.middleware.Run(middleware.Subscribe, b.pseudo, fr)
	if !b.registry.Has(b.pseudo.ID, id) {
		return "", false
	}
	if callback != nil {
		b.registry.SetCallback(b.pseudo.ID, id, callback)
	}
	return id, true
}

// Unsubscribe removes sub-id's subscription and retires its
// per-subscription delivery event handlers.
func (b *Broker) Unsubscribe(subID string) bool {
	existed := b.registry.Has(b.pseudo.ID, subID)

	fr := frame.New(frame.CommandUnsubscribe)
	fr.Headers.Set(frame.HeaderID, subID)
	b.middleware.Run(middleware.Unsubscribe, b.pseudo, fr)

	if existed {
		b.events.Off(command.DeliveryEvent(subID))
	}
	return existed
}

// Publish runs body through the send pipeline as if sent by the
// pseudo-session, fanning out to every other matching
// subscription; the pseudo-session's own subscriptions are
// self-suppressed the same as any publisher's.
//
// A body that is not already []byte or string is JSON-encoded and
// given content-type: application/json, unless headers already names
// one explicitly.
func (b *Broker) Publish(topic string, headers map[string]string, body any) error {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return err
	}

	fr := frame.New(frame.CommandSend)
	fr.Headers.Set(frame.HeaderDestination, topic)
	for k, v := range headers {
		fr.Headers.Set(k, v)
	}
	if _, ok := fr.Headers.Get(frame.HeaderContentType); !ok && contentType != "" {
		fr.Headers.Set(frame.HeaderContentType, contentType)
	}
	fr.Body = payload
	if contentType == frame.ContentTypeJSON {
		fr.Data = body
	} else if err := decodeJSONBody(fr); err != nil {
		return err
	}

	b.middleware.Run(middleware.Send, b.pseudo, fr)
	return nil
}

func encodeBody(body any) (payload []byte, contentType string, err error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, frame.ContentTypeJSON, nil
	}
}

// DecodeJSON decodes a delivered MESSAGE's raw body into v. Delivery
// callbacks receive the body as raw octets regardless of content-type;
// a subscriber expecting application/json uses this to recover the
// structured value into a type of its choosing.
func DecodeJSON(body []byte, v any) error {
	return json.Unmarshal(body, v)
}
