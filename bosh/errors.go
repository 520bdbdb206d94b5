// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by Send, Pause, and Disconnect when called on a
// session that has already been disposed. AttemptReconnect reports the
// same case by returning false.
var ErrDisposed = errors.New("bosh: session disposed")

// ErrInterruptedWait names a wait released by disposal. No function in this
// package returns it or uses it as a disposal cause: a Send released by
// disposal returns ErrDisposed, and Close disposes with a nil cause.
var ErrInterruptedWait = errors.New("bosh: wait interrupted by disposal")

// ErrPauseUnsupported names the case of a CM that never advertised maxpause
// in its session-creation response. Pause does not return it; Pause reports
// that case as (false, nil).
var ErrPauseUnsupported = errors.New("bosh: session does not support pause")

// TransportError wraps a failure reported by the HTTP sender collaborator:
// connect/read/write failure or an I/O timeout. It always triggers the
// "lost" recoverable-disconnection state, never a dispose.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("bosh: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TerminalBindingError reports a CM-signalled unrecoverable binding
// condition (type="terminate" with a condition attribute, or a non-2xx
// HTTP status for a pre-1.6 CM). It always disposes the session.
type TerminalBindingError struct {
	Condition TerminalCondition
}

func (e *TerminalBindingError) Error() string {
	return fmt.Sprintf("bosh: terminal binding condition: %s", e.Condition)
}

// RecoverableBindingError reports a type="error" response with no
// condition: the CM discarded a request and the client must resend all
// outstanding requests. It never disposes the session.
type RecoverableBindingError struct{}

func (e *RecoverableBindingError) Error() string { return "bosh: recoverable binding condition" }

// ProtocolViolationError reports a CM response that violates the BOSH
// acknowledgment protocol, such as a report referencing an unknown RID. It
// always disposes the session.
type ProtocolViolationError struct {
	Msg string
}

func (e *ProtocolViolationError) Error() string { return "bosh: protocol violation: " + e.Msg }

// UsageError reports caller misuse, such as calling Create without a
// required Config field. Send on a disposed session returns ErrDisposed
// instead.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "bosh: usage error: " + e.Msg }
