// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build go1.25

package bosh

import (
	"testing"
	"testing/synctest"
	"time"
)

func TestScheduleAfterFires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := &Config{}
		fired := make(chan struct{})
		scheduleAfter(cfg, 10*time.Millisecond, func() { close(fired) })

		time.Sleep(10 * time.Millisecond)
		synctest.Wait()
		select {
		case <-fired:
		default:
			t.Fatal("task did not fire after its delay elapsed")
		}
	})
}

func TestScheduleAfterCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := &Config{}
		fired := make(chan struct{})
		h := scheduleAfter(cfg, 10*time.Millisecond, func() { close(fired) })

		if !h.Cancel() {
			t.Fatal("Cancel() = false, want true (timer had not fired yet)")
		}

		synctest.Wait()
		select {
		case <-fired:
			t.Fatal("cancelled task fired")
		default:
		}
	})
}

func TestScheduleAfterCancelIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := &Config{}
		h := scheduleAfter(cfg, 10*time.Millisecond, func() {})
		h.Cancel()
		if h.Cancel() {
			t.Fatal("second Cancel() = true, want false (already stopped)")
		}
	})
}

func TestTaskHandleCancelNil(t *testing.T) {
	var h *taskHandle
	if !h.Cancel() {
		t.Fatal("Cancel() on nil handle = false, want true")
	}
}
