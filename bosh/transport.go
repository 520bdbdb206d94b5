// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import "context"

// Sender is the external HTTP transport collaborator, out of scope per
// spec.md §1: connecting, framing, and header/status handling belong to an
// implementation such as internal/httpsender, not to this package. Sender
// implementations must be safe for concurrent use; the coordinator may call
// Send from multiple goroutines (application sends) while a prior request
// is still outstanding.
type Sender interface {
	// Send transmits body asynchronously and returns a handle to its
	// eventual response. params is nil for the session-creation request,
	// before CMSessionParams has been materialized.
	Send(ctx context.Context, params *CMSessionParams, body Body) ResponseHandle

	// Destroy releases any resources held by the sender (connections,
	// goroutines). It is called exactly once, during session disposal.
	Destroy()
}

// ResponseHandle resolves to exactly one outcome: a response body and HTTP
// status, or an error. Lifetime: created by Sender.Send, consumed by
// Await, optionally cut short by Abort.
type ResponseHandle interface {
	// Await blocks until the response is available, ctx is done, or Abort
	// was called, whichever happens first.
	Await(ctx context.Context) (body Body, status int, err error)

	// Abort is a best-effort cancellation. A subsequent Await must return a
	// non-nil error; it must not block forever.
	Abort()
}

// BodyCodec is the external XML (de)serialization collaborator, out of
// scope per spec.md §1. The coordinator never parses or emits XML itself:
// it only reads and writes the recognized BOSH attributes through Body,
// and treats the payload as an opaque byte slice that the codec produced
// or will consume.
type BodyCodec interface {
	// Encode serializes a Body to a complete <body/> element, including
	// its Payload, ready to be sent as an HTTP request body.
	Encode(b Body) ([]byte, error)

	// Decode parses a complete <body/> element into a Body.
	Decode(data []byte) (Body, error)
}
