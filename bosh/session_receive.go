// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"log/slog"
)

// receiveLoop is the single logical consumer of spec.md §4.6: it waits for
// the outstanding queue to be non-empty, takes its current head under the
// lock, awaits its response, and processes it, until the session is
// disposed. It always rereads the head from s.outstanding rather than
// trusting a value handed to it when the exchange was enqueued, so an
// exchange that abortAllOutstandingLocked has since dropped is never
// mistaken for live work.
func (s *Session) receiveLoop() {
	defer close(s.recvDone)
	for {
		s.mu.Lock()
		for len(s.outstanding) == 0 && !s.disposed {
			s.notEmpty.Wait()
		}
		if s.disposed {
			s.mu.Unlock()
			return
		}
		ex := s.outstanding[0]
		s.mu.Unlock()

		s.processExchange(ex)
	}
}

// processExchange implements the twelve-step algorithm of spec.md §4.6.
func (s *Session) processExchange(ex *exchange) {
	body, status, err := ex.handle.Await(context.Background())

	s.mu.Lock()
	if s.disposed || !s.outstandingLocked(ex) {
		// ex was aborted out from under us: disposal, AttemptReconnect, or
		// an I/O timeout raced with its response. Either way it is no
		// longer part of the session's state, so there is nothing left to
		// process.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err != nil {
		s.handleTransportError(err)
		return
	}

	s.fireResponseReceived(body)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}

	firstResponse := s.cmParams == nil
	if firstResponse {
		s.cmParams = parseCMSessionParams(body)
		s.mu.Unlock()
		s.fireConnectionEstablished()
		s.mu.Lock()
		if s.disposed {
			s.mu.Unlock()
			return
		}
	}

	if cond, isTerminate := terminalCondition(s.cmParams, body, status); isTerminate {
		s.mu.Unlock()
		s.dispose(&TerminalBindingError{Condition: cond}, true)
		return
	}

	if bodyType, _ := body.Attr("type"); bodyType == "terminate" {
		s.mu.Unlock()
		s.dispose(nil, true)
		return
	}

	if bodyType, _ := body.Attr("type"); bodyType == "error" {
		s.logf(slog.LevelWarn, "bosh: recoverable binding condition, resending outstanding requests")
		resend := s.abortAllOutstandingLocked()
		for _, b := range resend {
			s.resendLocked(b)
		}
		s.resetIOTimeoutLocked()
		if !s.paused {
			s.scheduleEmptyRequestLocked(false)
		}
		s.mu.Unlock()
		return
	}

	reqRID := requestRID(ex.req)
	if _, hasReport := body.Attr("report"); !hasReport {
		s.acks.applyOutboundAck(body, reqRID)
	}
	s.acks.recordResponse(reqRID)

	if err := s.processReportLocked(body); err != nil {
		s.mu.Unlock()
		s.dispose(err, true)
		return
	}

	s.dequeueOutstandingLocked(ex)
	s.resetIOTimeoutLocked()
	if !s.paused {
		s.scheduleEmptyRequestLocked(false)
	}
	s.mu.Unlock()
}

// processReportLocked implements spec.md §4.2's report handling: if resp
// carries report=R, the pending request with RID=R is re-queued as a new
// exchange. If no such request exists, the session must fail.
func (s *Session) processReportLocked(resp Body) error {
	reportStr, ok := resp.Attr("report")
	if !ok {
		return nil
	}
	rid, parseErr := parseRID(reportStr)
	if parseErr != nil {
		return &ProtocolViolationError{Msg: "report attribute is not a valid RID: " + reportStr}
	}
	reported, found := s.acks.findPending(rid)
	if !found {
		return &ProtocolViolationError{Msg: "report references unknown RID"}
	}
	s.resendLocked(reported)
	return nil
}

// resendLocked re-transmits body with its original RID as a new exchange,
// without touching pendingRequestAcks (it is either already there, for a
// recoverable-binding or reconnect resend, or intentionally left there,
// for a report-driven resend per spec.md §4.2's scenario 3).
func (s *Session) resendLocked(body Body) {
	handle := s.cfg.Sender.Send(context.Background(), s.cmParams, body)
	s.enqueueOutstandingLocked(&exchange{req: body, handle: handle})
}

// handleTransportError implements spec.md §4.6 step 1 and §7's
// TransportError taxonomy entry: the session enters "lost", all
// outstanding exchanges are aborted, and no automatic resend occurs.
// Recovery is left to the application via AttemptReconnect.
func (s *Session) handleTransportError(err error) {
	s.mu.Lock()
	if s.disposed || s.lost {
		s.mu.Unlock()
		return
	}
	s.lost = true
	s.abortAllOutstandingLocked()
	s.cancelEmptyRequestLocked()
	s.cancelIOTimeoutLocked()
	s.mu.Unlock()
	s.logf(slog.LevelWarn, "bosh: transport error, session lost", "err", err)
}

// terminalCondition implements spec.md §4.9: a type="terminate" response
// with a condition attribute is always terminal; for a pre-1.6 CM (no ver
// attribute), a non-2xx HTTP status is terminal even without a condition.
func terminalCondition(params *CMSessionParams, body Body, status int) (TerminalCondition, bool) {
	if bodyType, _ := body.Attr("type"); bodyType == "terminate" {
		if cond, ok := body.Attr("condition"); ok {
			return parseTerminalCondition(cond), true
		}
	}
	if params.PreSixteen() {
		if cond, isErr := terminalFromStatus(status); isErr {
			return cond, true
		}
	}
	return 0, false
}
