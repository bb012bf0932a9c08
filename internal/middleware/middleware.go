// Package middleware implements the onion-style interceptor chain that
// wraps each STOMP command handler. Every command —
// connect, disconnect, send, subscribe, unsubscribe — has its own
// ordered interceptor list and a fixed terminal handler.
package middleware

import (
	"reflect"

	"github.com/life-stream-dev/stomp-ws-broker/internal/frame"
	"github.com/life-stream-dev/stomp-ws-broker/internal/session"
)

// Next continues the interceptor chain. Not calling it aborts the
// command: the terminal handler never runs, and no error is raised —
// the command is dropped silently.
type Next func()

// Interceptor observes, modifies, or rejects a command in flight.
type Interceptor func(sess *session.Session, fr *frame.Frame, next Next)

// Terminal is the fixed handler for a command, run only if every
// interceptor called Next.
type Terminal func(sess *session.Session, fr *frame.Frame)

// Pipeline is one command's ordered interceptor list plus its terminal
// handler.
type Pipeline struct {
	interceptors []Interceptor
	terminal     Terminal
}

// NewPipeline builds a Pipeline around a fixed terminal handler.
func NewPipeline(terminal Terminal) *Pipeline {
	return &Pipeline{terminal: terminal}
}

// Add appends an interceptor to the end of the chain.
func (p *Pipeline) Add(i Interceptor) {
	p.interceptors = append(p.interceptors, i)
}

// Set replaces the entire interceptor list with the single interceptor
// i.
func (p *Pipeline) Set(i Interceptor) {
	p.interceptors = []Interceptor{i}
}

// Remove deletes the first interceptor equal to i, comparing by
// underlying function pointer (Go has no structural function equality,
// so identity is the closest match to "equal handler").
func (p *Pipeline) Remove(i Interceptor) {
	target := reflect.ValueOf(i).Pointer()
	for idx, existing := range p.interceptors {
		if reflect.ValueOf(existing).Pointer() == target {
			p.interceptors = append(p.interceptors[:idx], p.interceptors[idx+1:]...)
			return
		}
	}
}

// Run invokes the composed chain: each interceptor in order, ending in
// the terminal handler, via a fold-right closure built fresh for this
// invocation (interceptor lists may change between commands).
func (p *Pipeline) Run(sess *session.Session, fr *frame.Frame) {
	var run func(idx int)
	run = func(idx int) {
		if idx >= len(p.interceptors) {
			p.terminal(sess, fr)
			return
		}
		p.interceptors[idx](sess, fr, func() { run(idx + 1) })
	}
	run(0)
}

// Command names, used as keys into a Registry.
const (
	Connect     = "connect"
	Disconnect  = "disconnect"
	Send        = "send"
	Subscribe   = "subscribe"
	Unsubscribe = "unsubscribe"
)

// Registry holds one Pipeline per command name.
type Registry struct {
	pipelines map[string]*Pipeline
}

// NewRegistry builds a Registry with a Pipeline per command name wired
// to its terminal handler.
func NewRegistry(terminals map[string]Terminal) *Registry {
	r := &Registry{pipelines: make(map[string]*Pipeline, len(terminals))}
	for name, terminal := range terminals {
		r.pipelines[name] = NewPipeline(terminal)
	}
	return r
}

// Add registers an interceptor for command, appending to its chain.
func (r *Registry) Add(command string, i Interceptor) {
	if p, ok := r.pipelines[command]; ok {
		p.Add(i)
	}
}

// Set replaces command's entire interceptor chain with the singleton i.
func (r *Registry) Set(command string, i Interceptor) {
	if p, ok := r.pipelines[command]; ok {
		p.Set(i)
	}
}

// Remove deletes the first interceptor equal to i from command's chain.
func (r *Registry) Remove(command string, i Interceptor) {
	if p, ok := r.pipelines[command]; ok {
		p.Remove(i)
	}
}

// Run executes command's pipeline. It is a no-op if command has no
// registered pipeline (the caller should have validated the command
// name already).
func (r *Registry) Run(command string, sess *session.Session, fr *frame.Frame) {
	if p, ok := r.pipelines[command]; ok {
		p.Run(sess, fr)
	}
}
