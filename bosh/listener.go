// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"log/slog"
	"sync"
)

// ConnectionEvent is fired exactly once on connection-established (Err ==
// nil) and exactly once on connection-closed (Err set on abnormal
// disposal), per spec.md §4.4 and §4.12.
type ConnectionEvent struct {
	// Established is true for the connection-established event, false for
	// connection-closed.
	Established bool
	// Err is the disposal cause, for connection-closed events that ended
	// abnormally. Nil for connection-established and for clean disposal.
	Err error
	// Pending is the list of unacknowledged request bodies at the moment
	// of an abnormal disposal, so the application may replay them on a new
	// session, per spec.md §7.
	Pending []Body
}

// RequestSentEvent is fired after a request has been handed to the Sender.
type RequestSentEvent struct {
	Body Body
}

// ResponseReceivedEvent is fired for every response the receive loop
// consumes, before any state-machine processing of it.
type ResponseReceivedEvent struct {
	Body Body
}

// ConnectionListener observes session lifecycle events.
type ConnectionListener func(ConnectionEvent)

// RequestSentListener observes outbound requests.
type RequestSentListener func(RequestSentEvent)

// ResponseReceivedListener observes inbound responses.
type ResponseReceivedListener func(ResponseReceivedEvent)

// listenerSet is a copy-on-write registry, matching spec.md §5's
// requirement that listener sets not be mutated under the coordinator's
// lock while being iterated for dispatch. Go func values are not
// comparable, so removal is by opaque id rather than by value, returned
// from add as an unsubscribe closure.
type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID uint64
	items  []listenerEntry[T]
}

type listenerEntry[T any] struct {
	id uint64
	fn T
}

// add registers l and returns an unsubscribe function.
func (s *listenerSet[T]) add(l T) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	next := make([]listenerEntry[T], len(s.items)+1)
	copy(next, s.items)
	next[len(s.items)] = listenerEntry[T]{id: id, fn: l}
	s.items = next
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		next := make([]listenerEntry[T], 0, len(s.items))
		for _, e := range s.items {
			if e.id != id {
				next = append(next, e)
			}
		}
		s.items = next
	}
}

// snapshot returns the current listener slice for lock-free iteration.
func (s *listenerSet[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	for i, e := range s.items {
		out[i] = e.fn
	}
	return out
}

// recoverAndLog calls f, catching and logging any panic so that a
// misbehaving listener can never affect coordinator state, per spec.md §7
// ("Listener exceptions are caught, logged, and swallowed").
func recoverAndLog(cfg *Config, which string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			cfg.logf(slog.LevelError, "bosh: listener panicked", "listener", which, "panic", r)
		}
	}()
	f()
}
