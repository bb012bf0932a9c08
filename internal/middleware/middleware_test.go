package middleware

import (
	"testing"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

func TestPipelineRunsInOrderThenTerminal(t *testing.T) {
	var order []string
	p := NewPipeline(func(sess *session.Session, fr *frame.Frame) {
		order = append(order, "terminal")
	})
	p.Add(func(sess *session.Session, fr *frame.Frame, next Next) {
		order = append(order, "a")
		next()
		order = append(order, "a-after")
	})
	p.Add(func(sess *session.Session, fr *frame.Frame, next Next) {
		order = append(order, "b")
		next()
	})

	p.Run(nil, frame.New(frame.CommandSend))

	want := []string{"a", "b", "terminal", "a-after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestInterceptorNotCallingNextAbortsChain(t *testing.T) {
	terminalRan := false
	p := NewPipeline(func(sess *session.Session, fr *frame.Frame) {
		terminalRan = true
	})
	p.Add(func(sess *session.Session, fr *frame.Frame, next Next) {
		// deliberately does not call next()
	})

	p.Run(nil, frame.New(frame.CommandSend))

	if terminalRan {
		t.Fatal("terminal handler must not run when an interceptor drops the chain")
	}
}

func TestSetReplacesEntireChain(t *testing.T) {
	var calls int
	p := NewPipeline(func(sess *session.Session, fr *frame.Frame) {})
	p.Add(func(sess *session.Session, fr *frame.Frame, next Next) { calls++; next() })
	p.Add(func(sess *session.Session, fr *frame.Frame, next Next) { calls++; next() })

	p.Set(func(sess *session.Session, fr *frame.Frame, next Next) { calls++; next() })
	p.Run(nil, frame.New(frame.CommandSend))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after Set replaced the chain with a singleton", calls)
	}
}

func TestRemoveDropsMatchingInterceptor(t *testing.T) {
	var ran []string
	first := func(sess *session.Session, fr *frame.Frame, next Next) {
		ran = append(ran, "first")
		next()
	}
	second := func(sess *session.Session, fr *frame.Frame, next Next) {
		ran = append(ran, "second")
		next()
	}

	p := NewPipeline(func(sess *session.Session, fr *frame.Frame) {})
	p.Add(first)
	p.Add(second)
	p.Remove(first)
	p.Run(nil, frame.New(frame.CommandSend))

	if len(ran) != 1 || ran[0] != "second" {
		t.Fatalf("ran = %v, want only [second]", ran)
	}
}

func TestRegistryDispatchesPerCommand(t *testing.T) {
	var connectRan, sendRan bool
	reg := NewRegistry(map[string]Terminal{
		Connect: func(sess *session.Session, fr *frame.Frame) { connectRan = true },
		Send:    func(sess *session.Session, fr *frame.Frame) { sendRan = true },
	})

	reg.Run(Connect, nil, frame.New(frame.CommandConnect))
	if !connectRan || sendRan {
		t.Fatalf("connectRan=%v sendRan=%v, want true/false", connectRan, sendRan)
	}
}
