// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"log/slog"
	"time"
)

// scheduleEmptyRequestLocked schedules the empty-request keepalive timer
// of spec.md §4.7, unless one is already scheduled (including one whose
// fire loop is still executing) — scheduling while one is pending is a
// no-op.
func (s *Session) scheduleEmptyRequestLocked(wake bool) {
	if s.cfg.DisableEmptyRequests || s.cmParams == nil || s.emptyReqHandle != nil {
		return
	}
	s.scheduleEmptyRequestAtLocked(s.emptyRequestDelayLocked(), wake)
}

// schedulePauseWakeLocked cancels any pending empty-request timer and
// schedules the single pause-wake empty request at delay, per spec.md
// §4.8.
func (s *Session) schedulePauseWakeLocked(delay time.Duration) {
	s.cancelEmptyRequestLocked()
	s.scheduleEmptyRequestAtLocked(delay, true)
}

func (s *Session) scheduleEmptyRequestAtLocked(delay time.Duration, wake bool) {
	s.emptyReqHandle = scheduleAfter(s.cfg, delay, func() { s.fireEmptyRequestTask(wake) })
}

// emptyRequestDelayLocked computes the keepalive delay of spec.md §4.7:
// immediate when long-polling (hold > 0), else the CM's minimum polling
// interval, else the configured default.
func (s *Session) emptyRequestDelayLocked() time.Duration {
	if s.cmParams.Hold > 0 {
		return 0
	}
	if s.cmParams.Polling > 0 {
		return s.cmParams.Polling
	}
	return s.cfg.emptyRequestDelay()
}

func (s *Session) cancelEmptyRequestLocked() {
	if s.emptyReqHandle != nil {
		s.emptyReqHandle.Cancel()
		s.emptyReqHandle = nil
	}
}

// fireEmptyRequestTask is the empty-request timer callback. It sends
// empty requests until the gate in emptyRequestGateLocked fails, then
// clears the scheduled-task handle, per spec.md §4.7.
func (s *Session) fireEmptyRequestTask(wake bool) {
	for {
		s.mu.Lock()
		if s.emptyReqHandle == nil {
			s.mu.Unlock() // cancelled from under us; nothing to clear
			return
		}
		if !s.emptyRequestGateLocked(wake) {
			s.emptyReqHandle = nil
			s.mu.Unlock()
			return
		}
		if wake {
			s.paused = false
		}
		sent := s.decorateAndRecordLocked(NewBody())
		handle := s.cfg.Sender.Send(context.Background(), s.cmParams, sent)
		s.enqueueOutstandingLocked(&exchange{req: sent, handle: handle})
		s.resetIOTimeoutLocked()
		s.mu.Unlock()

		s.fireRequestSent(sent)
		wake = false // only the first iteration may be the pause-wake
	}
}

// emptyRequestGateLocked implements the per-iteration gate of spec.md
// §4.7: session working, not paused (unless this is the pause-wake), CM
// params known, not lost, and outstanding below target.
func (s *Session) emptyRequestGateLocked(wake bool) bool {
	if s.disposed || !s.working || s.cmParams == nil || s.lost {
		return false
	}
	if s.paused && !wake {
		return false
	}
	polling := s.cmParams.Wait == 0 || s.cmParams.Hold == 0
	target := 1
	if !polling {
		target = s.cmParams.Hold
	}
	return len(s.outstanding) < target
}

// resetIOTimeoutLocked cancels and, if outstanding is non-empty,
// reschedules the I/O timeout timer of spec.md §4.11.
func (s *Session) resetIOTimeoutLocked() {
	s.cancelIOTimeoutLocked()
	if len(s.outstanding) == 0 {
		return
	}
	s.ioTimeoutHandle = scheduleAfter(s.cfg, s.ioTimeoutDurationLocked(), s.onIOTimeout)
}

func (s *Session) cancelIOTimeoutLocked() {
	if s.ioTimeoutHandle != nil {
		s.ioTimeoutHandle.Cancel()
		s.ioTimeoutHandle = nil
	}
}

// ioTimeoutDurationLocked computes the timeout duration of spec.md §4.11:
// cm_params.wait if known, else the configured wait, times 1.5 for slack,
// falling back to 60s if that would be zero.
func (s *Session) ioTimeoutDurationLocked() time.Duration {
	wait := time.Duration(s.cfg.waitSeconds()) * time.Second
	if s.cmParams != nil && s.cmParams.Wait > 0 {
		wait = s.cmParams.Wait
	}
	d := time.Duration(float64(wait) * 1.5)
	if d <= 0 {
		d = defaultIOTimeoutFloor
	}
	return d
}

// onIOTimeout is the I/O timeout timer callback: it marks the session
// lost (not disposed) and aborts all outstanding exchanges, per spec.md
// §4.11.
func (s *Session) onIOTimeout() {
	s.mu.Lock()
	if s.disposed || s.lost {
		s.mu.Unlock()
		return
	}
	s.lost = true
	s.abortAllOutstandingLocked()
	s.cancelEmptyRequestLocked()
	s.ioTimeoutHandle = nil
	s.mu.Unlock()
	s.logf(slog.LevelWarn, "bosh: I/O timeout, session lost")
}

// unpauseLocked clears paused and reschedules the empty-request timer
// under the normal (non-wake) gate, per spec.md §4.8: "when the
// application performs any send, the session becomes unpaused on the next
// successfully sent request."
func (s *Session) unpauseLocked() {
	s.paused = false
	s.cancelEmptyRequestLocked()
	s.scheduleEmptyRequestLocked(false)
}
