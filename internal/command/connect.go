package command

import (
	"strconv"
	"strings"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/heartbeat"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Connect is the terminal handler for CONNECT and STOMP.
func (d *Deps) Connect(sess *session.Session, fr *frame.Frame) {
	if sess.Connected() {
		reject(sess, "Already connected", fr, true)
		return
	}
	if av, ok := fr.Headers.Get(frame.HeaderAcceptVersion); ok && !strings.Contains(av, "1.1") {
		reject(sess, "Supported protocol versions are 1.1", fr, true)
		return
	}

	var cx, cy int
	if hb, ok := fr.Headers.Get(frame.HeaderHeartBeat); ok {
		cx, cy = parseHeartbeatHeader(hb)
	}
	serverSendMS, clientExpectMS := heartbeat.Negotiate(d.Heartbeat.ServerSendMS, d.Heartbeat.ServerExpectMS, cx, cy)

	sess.SetState(session.StateConnected)
	sess.SetNegotiatedHeartbeat(session.Heartbeat{ServerSendMS: serverSendMS, ClientExpectMS: clientExpectMS})
	if d.ArmHeartbeat != nil {
		d.ArmHeartbeat(sess, heartbeat.Config{
			ServerSendMS:   serverSendMS,
			ClientExpectMS: clientExpectMS,
			ErrorMarginMS:  d.Heartbeat.ErrorMarginMS,
		})
	}

	connected := frame.New(frame.CommandConnected)
	connected.Headers.Set(frame.HeaderVersion, "1.1")
	connected.Headers.Set(frame.HeaderServer, d.ServerName)
	connected.Headers.Set(frame.HeaderSession, sess.ID)
	connected.Headers.Set(frame.HeaderHeartBeat, heartbeat.HeaderValue(serverSendMS, clientExpectMS))
	_ = sess.Send(connected)

	if d.Emit != nil {
		d.Emit(EventConnected, ConnectedEvent{SessionID: sess.ID, Headers: connected.Headers})
	}
}

// parseHeartbeatHeader parses a "cx,cy" heart-beat header value,
// defaulting to 0,0 on any malformed input rather than rejecting the
// CONNECT outright — an unparseable heart-beat header degrades to "no
// heartbeat requested", not a protocol error.
func parseHeartbeatHeader(raw string) (cx, cy int) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	cx, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	cy, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return 0, 0
	}
	return cx, cy
}
