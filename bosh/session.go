// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package bosh implements the client-side core of a BOSH (XEP-0124,
// XEP-0206) session engine: the session state machine and
// request/response coordinator that multiplexes an application's outbound
// bodies onto a bounded pool of concurrent HTTP requests to a connection
// manager, and demultiplexes its responses back to the application.
//
// XML body parsing/serialization and the HTTP transport itself are
// external collaborators (Sender, BodyCodec); see internal/wire and
// internal/httpsender for default implementations.
package bosh

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// Session is a BOSH client session: the state machine and
// request/response coordinator described in spec.md §3-§5.
//
// A Session is safe for concurrent use by multiple goroutines: Send may be
// called concurrently with Pause, Disconnect, AttemptReconnect, and Close.
// Exactly one internal goroutine (the receive loop) consumes CM responses.
type Session struct {
	cfg *Config

	mu       sync.Mutex
	notFull  sync.Cond // waiters blocked in Send
	notEmpty sync.Cond // wakes the receive loop when outstanding grows

	disposed bool
	working  bool

	cmParams *CMSessionParams
	paused   bool
	lost     bool

	rid  *ridSequence
	acks *ackTracker

	outstanding []*exchange

	emptyReqHandle  *taskHandle
	ioTimeoutHandle *taskHandle
	wakeFromPause   bool

	recvDone chan struct{} // closed by the receive loop itself on return

	closeOnce sync.Once
	closeErr  error

	connListeners     listenerSet[ConnectionListener]
	reqSentListeners  listenerSet[RequestSentListener]
	respRecvListeners listenerSet[ResponseReceivedListener]
}

// Create starts a new BOSH session, as spec.md §6's `create(config)`.
// The session begins in the "session-creation request in flight" state
// (spec.md §3); the caller must follow with the first Send (typically a
// stream-restart body) to actually begin session negotiation.
func Create(cfg *Config) (*Session, error) {
	if cfg == nil || cfg.Sender == nil || cfg.Codec == nil {
		return nil, &UsageError{Msg: "Config, Config.Sender, and Config.Codec are required"}
	}
	if cfg.To == "" {
		return nil, &UsageError{Msg: "Config.To is required"}
	}
	assertionsEnabled = cfg.assertionsEnabled()

	seq, err := newRIDSequence(maxSendsPerSessionEstimate)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		working:  true,
		rid:      seq,
		acks:     newAckTracker(),
		recvDone: make(chan struct{}),
	}
	s.notFull.L = &s.mu
	s.notEmpty.L = &s.mu

	cfg.run(s.receiveLoop)
	return s, nil
}

// maxSendsPerSessionEstimate bounds the RID window reserved against
// maxSafeInteger at session start, per spec.md §4.1. A BOSH session that
// outlives roughly a hundred million requests is not a realistic target
// for this client.
const maxSendsPerSessionEstimate = 100_000_000

// Send blocks until body is immediately sendable (spec.md §4.3), decorates
// it with the required BOSH attributes, hands it to the Sender, and
// returns the exact body that was transmitted. It returns ErrDisposed if
// the session is disposed, whether at call time or while blocked.
func (s *Session) Send(ctx context.Context, body Body) (Body, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return Body{}, ErrDisposed
	}
	for !s.isSendableLocked(body) {
		s.notFull.Wait()
		if s.disposed {
			s.mu.Unlock()
			return Body{}, ErrDisposed
		}
	}

	sent := s.decorateAndRecordLocked(body)
	handle := s.cfg.Sender.Send(ctx, s.cmParams, sent)
	s.enqueueOutstandingLocked(&exchange{req: sent, handle: handle})
	s.resetIOTimeoutLocked()
	if s.paused {
		s.unpauseLocked()
	}
	s.mu.Unlock()

	s.fireRequestSent(sent)
	return sent, nil
}

// isSendableLocked implements the immediately-sendable test of spec.md
// §4.3. Callers must hold s.mu.
func (s *Session) isSendableLocked(body Body) bool {
	if s.cmParams == nil {
		return len(s.outstanding) == 0
	}
	if s.lost {
		return false
	}
	limit := maxInFlight(s.cmParams)
	n := len(s.outstanding)
	if limit == 0 { // unbounded
		return true
	}
	if n < limit {
		return true
	}
	return n == limit && isTerminateOrPause(body)
}

// decorateAndRecordLocked applies the session-creation or normal-send
// attribute decoration (spec.md §4.4, §4.5) and records the body in the
// outbound ack tracker. Callers must hold s.mu.
func (s *Session) decorateAndRecordLocked(body Body) Body {
	rid := s.rid.Next()
	var sent Body
	if s.cmParams == nil {
		sent = body.With().
			Set("to", s.cfg.To).
			Set("xml:lang", s.cfg.lang()).
			Set("ver", s.cfg.SupportedVer).
			Set("wait", strconv.Itoa(s.cfg.waitSeconds())).
			Set("hold", strconv.Itoa(DefaultHold)).
			Set("rid", strconv.FormatInt(rid, 10)).
			Set("ack", "1").
			Set("route", s.cfg.Route).
			Set("from", s.cfg.From).
			Build()
	} else {
		b := body.With().
			Set("sid", s.cmParams.SID).
			Set("rid", strconv.FormatInt(rid, 10))
		if ack, ok := s.acks.ackForNextRequest(rid); ok {
			b = b.Set("ack", ack)
		}
		sent = b.Build()
	}
	s.acks.recordSent(sent)
	return sent
}

// enqueueOutstandingLocked appends ex to the outstanding queue in send
// order and wakes the receive loop, which always rereads the queue's head
// from s.outstanding itself rather than trusting a value handed to it
// earlier. Callers must hold s.mu.
func (s *Session) enqueueOutstandingLocked(ex *exchange) {
	s.outstanding = append(s.outstanding, ex)
	s.notEmpty.Broadcast()
}

// dequeueOutstandingLocked removes ex from the outstanding queue (which
// must be its current head, per spec.md §5's strict-order guarantee) and
// wakes any Send callers blocked on the not-full condition.
func (s *Session) dequeueOutstandingLocked(ex *exchange) {
	assert(len(s.outstanding) > 0 && s.outstanding[0] == ex, "dequeue of non-head exchange")
	s.outstanding = s.outstanding[1:]
	s.notFull.Broadcast()
}

// abortAllOutstandingLocked aborts every outstanding exchange's response
// handle and clears the queue, returning the bodies that were outstanding
// in send order, for resend by callers that need it (recoverable binding,
// lost transport, reconnect). Because the receive loop always derives the
// exchange it processes from s.outstanding under s.mu, this is also what
// keeps it from ever processing an exchange abandoned here: once an
// exchange is gone from s.outstanding, the receive loop can no longer see
// it as the head, and processExchange discards the response if it does
// still arrive for one.
func (s *Session) abortAllOutstandingLocked() []Body {
	bodies := make([]Body, len(s.outstanding))
	for i, ex := range s.outstanding {
		bodies[i] = ex.req
		ex.handle.Abort()
	}
	s.outstanding = nil
	s.notFull.Broadcast()
	return bodies
}

// outstandingLocked reports whether ex is still present in the outstanding
// queue. Callers must hold s.mu.
func (s *Session) outstandingLocked(ex *exchange) bool {
	for _, o := range s.outstanding {
		if o == ex {
			return true
		}
	}
	return false
}

func (s *Session) logf(level slog.Level, msg string, args ...any) {
	s.cfg.logf(level, msg, args...)
}
