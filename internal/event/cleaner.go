// Package event provides the shutdown-hook registry the cmd/stompd
// binary uses to release broker and transport resources on
// SIGINT/SIGTERM.
//
// The embeddable core itself never imports this package — a host
// embedding the broker owns its own process lifecycle. This is ambient
// cmd-level infrastructure only, kept out of internal/broker on
// purpose.
package event

import (
	"context"
	"sync"
	"time"
)

// Callable is one resource's release hook.
type Callable interface {
	Invoke(ctx context.Context) error
}

// CallableFunc adapts a plain function to Callable.
type CallableFunc func(ctx context.Context) error

func (f CallableFunc) Invoke(ctx context.Context) error { return f(ctx) }

// perCleanerTimeout bounds a single Callable's Invoke call so one slow
// resource cannot hang the whole shutdown sequence.
const perCleanerTimeout = 10 * time.Second

// Cleaner collects shutdown hooks and runs them once, in registration
// order. The Cleaner holds no global state and never exits the process
// itself: main decides when to call Run (typically after its own
// signal.NotifyContext fires) and what to do with the returned errors.
type Cleaner struct {
	mu       sync.Mutex
	cleaners []Callable
	ran      bool
}

// NewCleaner returns an empty Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Add registers callable to run on the next Run call. Add after Run
// has already run is a no-op.
func (c *Cleaner) Add(callable Callable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return
	}
	c.cleaners = append(c.cleaners, callable)
}

// Run invokes every registered Callable in registration order, each
// under its own perCleanerTimeout, and returns every error
// encountered. Run is safe to call only once; later calls are a no-op.
func (c *Cleaner) Run(ctx context.Context) []error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil
	}
	c.ran = true
	cleaners := make([]Callable, len(c.cleaners))
	copy(cleaners, c.cleaners)
	c.mu.Unlock()

	var errs []error
	for _, cleaner := range cleaners {
		timeoutCtx, cancel := context.WithTimeout(ctx, perCleanerTimeout)
		err := cleaner.Invoke(timeoutCtx)
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
