// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

// exchange pairs one outbound request body with a pending response handle,
// per spec.md §3. It is inserted into Session.outstanding on send and
// removed when its response is consumed or aborted.
type exchange struct {
	req    Body
	handle ResponseHandle
}

func isTerminateOrPause(b Body) bool {
	if t, ok := b.Attr("type"); ok && t == "terminate" {
		return true
	}
	_, paused := b.Attr("pause")
	return paused
}
