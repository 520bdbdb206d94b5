// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

// assertionsEnabled gates assert, matching the assertions_enabled
// process-scope tunable spec.md §6 names. It defaults to true so invariant
// violations are loud during development; production callers that cannot
// tolerate a panic should set Config.AssertionsEnabled to false.
var assertionsEnabled = true

// assert panics with msg if cond is false and assertions are enabled. It is
// reserved for internal invariants (spec.md §8's quantified invariants),
// never for validating caller input — use UsageError for that.
func assert(cond bool, msg string) {
	if assertionsEnabled && !cond {
		panic("bosh: assertion failed: " + msg)
	}
}
