/*
Package optimistic applies toggle-style mutations to local state before the API
confirms them, and rolls them back when the API refuses.

A Tracker keeps one value per key (a post's like state, an author's follow
state). Each mutation on a key gets the next sequence number. Only the newest
mutation of a key may write its outcome to the visible value; older responses
still update the last server-confirmed value when they are newer than what was
confirmed so far, but never the visible value. When the newest mutation fails,
the key reverts to the last confirmed value, which with a single mutation in
flight is exactly the value before the toggle.
*/
package optimistic

import (
	"context"
	"sync"

	"blogclient/internal/pkg/errs"
)

// CommitFunc sends next to the API and returns the authoritative value.
type CommitFunc[V any] func(ctx context.Context, next V) (V, *errs.CustomError)

// Outcome is the settled result of a mutation.
type Outcome[V any] struct {
	// Value is the visible value of the key once the mutation settled.
	Value V

	// Stale is true when a newer mutation of the same key superseded this one.
	Stale bool

	Err *errs.CustomError

	// Redirect is set when the actor must log in first.
	Redirect string
}

// OK reports whether the mutation was confirmed by the API.
func (o Outcome[V]) OK() bool {
	return o.Err == nil
}

type entry[V any] struct {
	value    V
	base     V
	baseSeq  uint64
	seq      uint64
	inflight int
}

// Tracker holds the optimistic values of one kind of entity. It is safe for concurrent use.
type Tracker[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

// NewTracker returns an empty tracker.
func NewTracker[K comparable, V any]() *Tracker[K, V] {
	return &Tracker[K, V]{entries: make(map[K]*entry[V])}
}

// Get returns the visible value of key.
func (t *Tracker[K, V]) Get(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Seed records a value read from the API. It is ignored while a mutation of
// key is in flight.
func (t *Tracker[K, V]) Seed(key K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		t.entries[key] = &entry[V]{value: v, base: v}
		return
	}

	if e.inflight == 0 {
		e.value, e.base = v, v
	}
}

// Forget drops key once nothing is in flight for it.
func (t *Tracker[K, V]) Forget(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok && e.inflight == 0 {
		delete(t.entries, key)
	}
}

// Prune drops every settled key for which keep reports false.
func (t *Tracker[K, V]) Prune(keep func(K) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, e := range t.entries {
		if e.inflight == 0 && !keep(key) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *Tracker[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Mutate applies apply to the visible value of key (initial when the key is
// unknown) before commit runs, then settles the key with commit's outcome.
func (t *Tracker[K, V]) Mutate(ctx context.Context, key K, initial V, apply func(V) V, commit CommitFunc[V]) Outcome[V] {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry[V]{value: initial, base: initial}
		t.entries[key] = e
	}
	if e.inflight == 0 {
		e.base = e.value
	}
	next := apply(e.value)
	e.value = next
	e.seq++
	e.inflight++
	seq := e.seq
	t.mu.Unlock()

	confirmed, err := commit(ctx, next)

	t.mu.Lock()
	defer t.mu.Unlock()

	e.inflight--

	if err == nil && seq > e.baseSeq {
		e.base = confirmed
		e.baseSeq = seq
	}

	latest := seq == e.seq

	switch {
	case latest:
		e.value = e.base
	case e.inflight == 0:
		// The newest mutation already settled; converge on what the API confirmed.
		e.value = e.base
	}

	return Outcome[V]{Value: e.value, Stale: !latest, Err: err}
}
