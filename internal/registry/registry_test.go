package registry

import (
	"testing"

	"github.com/life-stream-dev/stomp-ws-broker/internal/topic"
)

func newSub(sessionID, id, dest string) *Subscription {
	return &Subscription{ID: id, SessionID: sessionID, Topic: dest, Tokens: topic.Tokenize(dest)}
}

func TestAddMatchRemove(t *testing.T) {
	r := New()
	r.Add(newSub("A", "1", "/foo"))

	matched := r.Match("/foo")
	if len(matched) != 1 || matched[0].ID != "1" {
		t.Fatalf("Match(/foo) = %v, want one subscription with id 1", matched)
	}

	if !r.Remove("A", "1") {
		t.Fatal("Remove should report true for an existing subscription")
	}
	if r.Remove("A", "1") {
		t.Fatal("Remove should report false the second time")
	}
	if got := r.Match("/foo"); len(got) != 0 {
		t.Fatalf("Match(/foo) after remove = %v, want none", got)
	}
}

func TestRemoveAll(t *testing.T) {
	r := New()
	r.Add(newSub("A", "1", "/foo"))
	r.Add(newSub("A", "2", "/bar"))
	r.Add(newSub("B", "1", "/foo"))

	r.RemoveAll("A")
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	matched := r.Match("/foo")
	if len(matched) != 1 || matched[0].SessionID != "B" {
		t.Fatalf("Match(/foo) = %v, want only session B", matched)
	}
}

func TestHasDetectsDuplicateID(t *testing.T) {
	r := New()
	r.Add(newSub("A", "1", "/foo"))
	if !r.Has("A", "1") {
		t.Fatal("Has should report true for an existing (session, id) pair")
	}
	if r.Has("B", "1") {
		t.Fatal("Has should be scoped per session")
	}
}

func TestMatchCacheInvalidatedOnChange(t *testing.T) {
	r := New()
	r.Add(newSub("A", "1", "/a.**"))
	if len(r.Match("/a.b.c")) != 1 {
		t.Fatal("expected a wildcard match before mutation")
	}

	r.Add(newSub("B", "1", "/a.b.c"))
	matched := r.Match("/a.b.c")
	if len(matched) != 2 {
		t.Fatalf("Match(/a.b.c) after Add = %d matches, want 2 (cache must be invalidated)", len(matched))
	}
}

func TestSetCallbackAttachesToExistingSubscription(t *testing.T) {
	r := New()
	r.Add(newSub("self_1234", "h1", "/t"))

	var gotBody []byte
	if !r.SetCallback("self_1234", "h1", func(body []byte, headers map[string]string) { gotBody = body }) {
		t.Fatal("SetCallback should report true for an existing subscription")
	}

	matched := r.Match("/t")
	if len(matched) != 1 || matched[0].Callback == nil {
		t.Fatalf("Match(/t) = %v, want one subscription with a callback attached", matched)
	}
	matched[0].Callback([]byte("x"), nil)
	if string(gotBody) != "x" {
		t.Fatalf("callback body = %q, want x", gotBody)
	}

	if r.SetCallback("self_1234", "missing", func([]byte, map[string]string) {}) {
		t.Fatal("SetCallback should report false for an unknown (session, id) pair")
	}
}

func TestSnapshotIsStableUnderConcurrentMutation(t *testing.T) {
	r := New()
	r.Add(newSub("A", "1", "/foo"))
	snap := r.Snapshot()
	r.Add(newSub("B", "1", "/foo"))
	if len(snap) != 1 {
		t.Fatalf("Snapshot mutated after a later Add: len=%d", len(snap))
	}
}
