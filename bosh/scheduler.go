// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"sync/atomic"
	"time"
)

// taskHandle is a single-owner, explicitly stored timer handle, per spec.md
// §9's "store timer handles so cancellation is explicit" design note.
// Cancellation is idempotent and non-interrupting (spec.md §5): Cancel may
// be called any number of times, from any goroutine, and never blocks on
// the callback if it is already running.
type taskHandle struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

// scheduleAfter runs f after d elapses, unless cancelled first. f runs on
// the executor configured by cfg (a bare goroutine by default), never on
// the timer's own internal goroutine, so that f may safely reacquire the
// coordinator's lock.
func scheduleAfter(cfg *Config, d time.Duration, f func()) *taskHandle {
	h := &taskHandle{}
	h.timer = time.AfterFunc(d, func() {
		if h.cancelled.Load() {
			return
		}
		cfg.run(f)
	})
	return h
}

// Cancel stops the timer if it has not yet fired. It returns true if the
// cancellation prevented f from running. Safe to call multiple times and
// concurrently with the timer firing.
func (h *taskHandle) Cancel() bool {
	if h == nil {
		return true
	}
	h.cancelled.Store(true)
	return h.timer.Stop()
}
