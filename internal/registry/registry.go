// Package registry maintains the set of active subscriptions and
// resolves which ones match a given publish destination.
package registry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/life-stream-dev/stomp-ws-broker/internal/topic"
)

// Subscription is a single session's standing request to receive
// messages for destinations matching Topic.
type Subscription struct {
	ID        string
	SessionID string
	Topic     string
	Tokens    []string

	// Callback, when non-nil, is invoked instead of a transport write:
	// the delivery path for subscriptions owned by the in-process
	// pseudo-session.
	Callback func(body []byte, headers map[string]string)
}

// matchCacheSize bounds the destination→matches cache. Chosen generous
// relative to the flat O(N) fan-out it is meant to save repeat work
// for: a broker with thousands of distinct hot destinations still fits
// comfortably in memory at this size.
const matchCacheSize = 4096

// Registry is a mutex-guarded, flat collection of subscriptions plus an
// LRU cache of destination→matching-subscriptions, invalidated whenever
// the subscription set changes.
type Registry struct {
	mu    sync.RWMutex
	subs  []*Subscription
	cache *lru.Cache[string, []*Subscription]
}

// New returns an empty Registry.
func New() *Registry {
	cache, err := lru.New[string, []*Subscription](matchCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// matchCacheSize never is.
		panic(err)
	}
	return &Registry{cache: cache}
}

// Add appends subscription to the registry.
func (r *Registry) Add(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	r.cache.Purge()
}

// Remove deletes the first subscription matching (sessionID, subID) and
// reports whether one was removed.
func (r *Registry) Remove(sessionID, subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subs {
		if sub.SessionID == sessionID && sub.ID == subID {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			r.cache.Purge()
			return true
		}
	}
	return false
}

// RemoveAll drops every subscription owned by sessionID, used on
// session teardown.
func (r *Registry) RemoveAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.subs[:0:0]
	for _, sub := range r.subs {
		if sub.SessionID != sessionID {
			kept = append(kept, sub)
		}
	}
	r.subs = kept
	r.cache.Purge()
}

// Has reports whether (sessionID, subID) is already registered, used to
// reject duplicate SUBSCRIBE ids per STOMP 1.1.
func (r *Registry) Has(sessionID, subID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.SessionID == sessionID && sub.ID == subID {
			return true
		}
	}
	return false
}

// SetCallback attaches fn as the delivery callback for (sessionID,
// subID), used by the broker façade to wire a host callback onto a
// pseudo-session subscription after it has been created through the
// ordinary SUBSCRIBE path.
func (r *Registry) SetCallback(sessionID, subID string, fn func(body []byte, headers map[string]string)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.SessionID == sessionID && sub.ID == subID {
			sub.Callback = fn
			return true
		}
	}
	return false
}

// Snapshot returns a stable copy of the current subscription set,
// suitable for fan-out without holding the registry lock across
// transport writes.
func (r *Registry) Snapshot() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// Match returns every subscription whose pattern matches destination,
// regardless of owning session (self-suppression is the caller's
// responsibility — see command.Send).
//
// The miss path computes the match list and writes the cache under a
// single critical section: a Purge from a concurrent Add/Remove can
// then never be overwritten by a result computed against the
// pre-mutation subscription set.
func (r *Registry) Match(destination string) []*Subscription {
	r.mu.RLock()
	cached, ok := r.cache.Get(destination)
	r.mu.RUnlock()
	if ok {
		return cached
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache.Get(destination); ok {
		return cached
	}

	pubTokens := topic.Tokenize(destination)
	var matched []*Subscription
	for _, sub := range r.subs {
		if topic.Matches(sub.Tokens, pubTokens) {
			matched = append(matched, sub)
		}
	}
	r.cache.Add(destination, matched)
	return matched
}

// Len reports the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
