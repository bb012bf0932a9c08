// Package heartbeat implements the broker's liveness supervisor: a
// server-send beacon and a client-receive timeout check, each an
// independent, optional timer per session.
package heartbeat

import (
	"strconv"
	"time"

	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Config carries the negotiated intervals and the broker-wide slack
// margin.
type Config struct {
	ServerSendMS   int
	ClientExpectMS int
	ErrorMarginMS  int
}

var heartbeatLF = []byte("\n")

// Arm starts whichever of the two timers Config calls for and wires
// the combined disarm function into sess, replacing any previously
// registered one. A zero interval leaves that timer disarmed.
func Arm(sess *session.Session, cfg Config) {
	stop := make(chan struct{})
	done := make(chan struct{}, 2)
	var running int

	if cfg.ServerSendMS > 0 {
		running++
		go serverSendLoop(sess, time.Duration(cfg.ServerSendMS)*time.Millisecond, stop, done)
	}
	if cfg.ClientExpectMS > 0 {
		running++
		go clientExpectLoop(sess, time.Duration(cfg.ClientExpectMS)*time.Millisecond, time.Duration(cfg.ErrorMarginMS)*time.Millisecond, stop, done)
	}

	var stopOnce bool
	sess.SetHeartbeatDisarm(func() {
		if stopOnce {
			return
		}
		stopOnce = true
		close(stop)
		for i := 0; i < running; i++ {
			<-done
		}
	})
}

// serverSendLoop writes a single LF beacon every interval while the
// transport is open.
func serverSendLoop(sess *session.Session, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if sess.Transport == nil {
				continue
			}
			_ = sess.Transport.Send(heartbeatLF)
		}
	}
}

// clientExpectLoop checks, every interval, whether more than
// interval+margin has elapsed since the session last received data; if
// so it tears the session down.
//
// On timeout the done signal is sent before Teardown runs: Teardown
// invokes the disarm function, which joins every timer goroutine, and
// this one must not wait for itself.
func clientExpectLoop(sess *session.Session, interval, margin time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	threshold := interval + margin

	for {
		select {
		case <-stop:
			done <- struct{}{}
			return
		case <-ticker.C:
			lastRxMS := sess.LastRxMS()
			if lastRxMS == 0 {
				continue
			}
			if time.Since(time.UnixMilli(lastRxMS)) > threshold {
				if sess.Logger != nil {
					sess.Logger.Warn("heartbeat timeout", "session", sess.ID)
				}
				done <- struct{}{}
				sess.Teardown()
				return
			}
		}
	}
}

// Negotiate computes the server→client and client→server intervals per
// STOMP 1.1's heart-beat negotiation: max(sx, cy) / max(sy, cx), each
// zero if either side is zero.
func Negotiate(serverSendMS, serverExpectMS, clientSendMS, clientExpectMS int) (negotiatedServerSendMS, negotiatedClientExpectMS int) {
	if serverSendMS != 0 && clientExpectMS != 0 {
		negotiatedServerSendMS = max(serverSendMS, clientExpectMS)
	}
	if serverExpectMS != 0 && clientSendMS != 0 {
		negotiatedClientExpectMS = max(serverExpectMS, clientSendMS)
	}
	return
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// HeaderValue formats the negotiated pair for the CONNECTED frame's
// heart-beat header.
func HeaderValue(serverSendMS, clientExpectMS int) string {
	return strconv.Itoa(serverSendMS) + "," + strconv.Itoa(clientExpectMS)
}
