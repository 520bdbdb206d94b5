// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseCMSessionParams(t *testing.T) {
	resp := NewBuilder().
		Set("sid", "abc123").
		Set("wait", "60").
		Set("hold", "1").
		Set("requests", "2").
		Set("polling", "5").
		Set("maxpause", "120").
		Set("ver", "1.6").
		Set("ack", "1").
		Build()

	got := parseCMSessionParams(resp)

	n := 2
	maxPause := 120 * time.Second
	want := &CMSessionParams{
		SID:        "abc123",
		Wait:       60 * time.Second,
		Hold:       1,
		Requests:   &n,
		Polling:    5 * time.Second,
		MaxPause:   &maxPause,
		Ver:        "1.6",
		AckSupport: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseCMSessionParams(...) mismatch (-want +got):\n%s", diff)
	}
	if !got.SupportsPause() {
		t.Error("SupportsPause() = false, want true")
	}
	if got.PreSixteen() {
		t.Error("PreSixteen() = true, want false (ver was set)")
	}
}

func TestParseCMSessionParamsMinimal(t *testing.T) {
	resp := NewBuilder().Set("sid", "abc").Build()
	p := parseCMSessionParams(resp)

	if p.SupportsPause() {
		t.Error("SupportsPause() = true, want false (no maxpause)")
	}
	if !p.PreSixteen() {
		t.Error("PreSixteen() = false, want true (no ver attribute)")
	}
	if p.Requests != nil {
		t.Errorf("Requests = %v, want nil", p.Requests)
	}
}

func TestMaxInFlight(t *testing.T) {
	if got := maxInFlight(nil); got != 1 {
		t.Errorf("maxInFlight(nil) = %d, want 1", got)
	}

	n := 3
	if got := maxInFlight(&CMSessionParams{Requests: &n}); got != 3 {
		t.Errorf("maxInFlight with Requests=3 = %d, want 3", got)
	}

	if got := maxInFlight(&CMSessionParams{}); got != 0 {
		t.Errorf("maxInFlight with no Requests limit = %d, want 0 (unbounded)", got)
	}
}
