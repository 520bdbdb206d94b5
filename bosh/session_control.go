// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"strconv"
)

// dummyStanza is the payload AttemptReconnect attaches to the filler
// requests it sends so they are not mistaken for empty keep-alive
// requests, per spec.md §4.10.
const dummyStanza = `<message xmlns='jabber:client'/>`

// Close forcibly and immediately disposes the session with no error cause,
// per spec.md §4.12 and §6's `close()`.
func (s *Session) Close() {
	s.dispose(nil, false)
}

// Disconnect sends msg decorated with type="terminate" through the normal
// send path; the receive loop disposes the session cleanly once the CM's
// response to it arrives, per spec.md §4.12's `disconnect(msg)`.
func (s *Session) Disconnect(ctx context.Context, msg Body) error {
	terminate := msg.With().Set("type", "terminate").Build()
	_, err := s.Send(ctx, terminate)
	return err
}

// IsRecoverableConnectionLoss reports whether the session is currently in
// the "lost" state of spec.md §3: no outstanding exchanges, sends blocked,
// recoverable only via AttemptReconnect.
func (s *Session) IsRecoverableConnectionLoss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
}

// Pause requests that the CM suspend the session for up to its advertised
// maxpause, per spec.md §4.8. It returns false without error if the CM
// never advertised pause support.
func (s *Session) Pause(ctx context.Context, msg Body) (bool, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false, ErrDisposed
	}
	if !s.cmParams.SupportsPause() {
		s.mu.Unlock()
		return false, nil
	}
	maxPause := *s.cmParams.MaxPause
	s.mu.Unlock()

	decorated := msg.With().Set("pause", strconv.Itoa(int(maxPause.Seconds()))).Build()
	if _, err := s.Send(ctx, decorated); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return true, nil
	}
	s.paused = true
	margin := s.cfg.pauseMargin()
	delay := maxPause - margin
	if delay < 0 {
		delay = 0
	}
	s.schedulePauseWakeLocked(delay)
	s.mu.Unlock()
	return true, nil
}

// AttemptReconnect implements spec.md §4.10: it aborts all outstanding
// exchanges, clears the lost flag, resends every unacknowledged request
// with its original RID, and sends enough dummy filler requests that the
// CM is guaranteed to produce at least one response.
func (s *Session) AttemptReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !s.working || s.cmParams == nil {
		return false
	}

	s.abortAllOutstandingLocked()
	s.lost = false

	pending := append([]Body(nil), s.acks.pendingRequestAcks...)
	for _, b := range pending {
		s.resendLocked(b)
	}

	target := s.cmParams.Hold + 1
	for len(s.outstanding) < target {
		s.sendDummyLocked()
	}

	limit := maxInFlight(s.cmParams)
	assert(limit == 0 || len(s.acks.pendingRequestAcks) <= limit,
		"pendingRequestAcks exceeds max_in_flight after reconnect")

	s.resetIOTimeoutLocked()
	return true
}

// sendDummyLocked sends a filler request carrying a <message/> stanza so
// it counts as real traffic, guaranteeing the CM produces a response.
func (s *Session) sendDummyLocked() {
	sent := s.decorateAndRecordLocked(Body{Payload: []byte(dummyStanza)})
	handle := s.cfg.Sender.Send(context.Background(), s.cmParams, sent)
	s.enqueueOutstandingLocked(&exchange{req: sent, handle: handle})
}

// Drain blocks until the outstanding queue is empty or the session is
// disposed, whichever happens first, or until ctx is done. This is the
// test/observation hook spec.md §9 leaves as an open question: it has no
// special interaction with "lost" beyond disposal.
func (s *Session) Drain(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.notFull.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.outstanding) > 0 && !s.disposed {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.notFull.Wait()
	}
	return nil
}

// dispose implements spec.md §4.12. selfCall must be true only when called
// from the receive loop's own goroutine, so it does not join itself (the
// design note in spec.md §9); the external caller (Close) passes false and
// blocks until the receive loop has returned.
func (s *Session) dispose(cause error, selfCall bool) {
	ran := false
	var pending []Body
	s.closeOnce.Do(func() {
		ran = true
		s.mu.Lock()
		pending = append([]Body(nil), s.acks.pendingRequestAcks...)
		s.cancelEmptyRequestLocked()
		s.cancelIOTimeoutLocked()
		s.abortAllOutstandingLocked()
		s.disposed = true
		s.working = false
		s.paused = false
		s.lost = false
		s.closeErr = cause
		s.notFull.Broadcast()
		s.notEmpty.Broadcast()
		s.mu.Unlock()
	})
	if !ran {
		return
	}

	s.fireConnectionClosed(cause, pending)
	s.cfg.Sender.Destroy()
	if !selfCall {
		<-s.recvDone
	}
}

// Err returns the cause of disposal, or nil if the session is still
// working or was disposed cleanly.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// AddConnectionListener registers l for connection-established and
// connection-closed events. The returned function unregisters it.
func (s *Session) AddConnectionListener(l ConnectionListener) func() {
	return s.connListeners.add(l)
}

// AddRequestSentListener registers l for outbound-request notifications.
// The returned function unregisters it.
func (s *Session) AddRequestSentListener(l RequestSentListener) func() {
	return s.reqSentListeners.add(l)
}

// AddResponseReceivedListener registers l for inbound-response
// notifications. The returned function unregisters it.
func (s *Session) AddResponseReceivedListener(l ResponseReceivedListener) func() {
	return s.respRecvListeners.add(l)
}

func (s *Session) fireConnectionEstablished() {
	ev := ConnectionEvent{Established: true}
	for _, l := range s.connListeners.snapshot() {
		l := l
		recoverAndLog(s.cfg, "connection", func() { l(ev) })
	}
}

func (s *Session) fireConnectionClosed(cause error, pending []Body) {
	ev := ConnectionEvent{Established: false, Err: cause, Pending: pending}
	for _, l := range s.connListeners.snapshot() {
		l := l
		recoverAndLog(s.cfg, "connection", func() { l(ev) })
	}
}

func (s *Session) fireRequestSent(b Body) {
	ev := RequestSentEvent{Body: b}
	for _, l := range s.reqSentListeners.snapshot() {
		l := l
		recoverAndLog(s.cfg, "request-sent", func() { l(ev) })
	}
}

func (s *Session) fireResponseReceived(b Body) {
	ev := ResponseReceivedEvent{Body: b}
	for _, l := range s.respRecvListeners.snapshot() {
		l := l
		recoverAndLog(s.cfg, "response-received", func() { l(ev) })
	}
}
