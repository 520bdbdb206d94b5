// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// noopCodec satisfies BodyCodec for tests that never exercise XML
// (de)serialization themselves; Session never calls it directly, only
// Create's required-field check does.
type noopCodec struct{}

func (noopCodec) Encode(b Body) ([]byte, error) { return nil, nil }
func (noopCodec) Decode(data []byte) (Body, error) { return Body{}, nil }

// scriptedHandle resolves once its handler goroutine finishes computing a
// response, matching the asynchronous contract of ResponseHandle.
type scriptedHandle struct {
	done    chan struct{}
	body    Body
	status  int
	err     error
	aborted atomic.Bool
}

func (h *scriptedHandle) Await(ctx context.Context) (Body, int, error) {
	select {
	case <-h.done:
		return h.body, h.status, h.err
	case <-ctx.Done():
		return Body{}, 0, ctx.Err()
	}
}

func (h *scriptedHandle) Abort() { h.aborted.Store(true) }

// scriptedSender is a fake Sender driven by a test-supplied handler
// function, run on its own goroutine per request to preserve Send's
// asynchronous contract.
type scriptedSender struct {
	mu        sync.Mutex
	handler   func(params *CMSessionParams, body Body) (Body, int, error)
	destroyed bool
	sent      []Body
}

func (s *scriptedSender) setHandler(f func(params *CMSessionParams, body Body) (Body, int, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = f
}

func (s *scriptedSender) Send(ctx context.Context, params *CMSessionParams, body Body) ResponseHandle {
	s.mu.Lock()
	s.sent = append(s.sent, body)
	fn := s.handler
	s.mu.Unlock()

	h := &scriptedHandle{done: make(chan struct{})}
	go func() {
		body, status, err := fn(params, body)
		h.body, h.status, h.err = body, status, err
		close(h.done)
	}()
	return h
}

func (s *scriptedSender) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

func newTestConfig(sender *scriptedSender) *Config {
	return &Config{
		Sender:               sender,
		Codec:                noopCodec{},
		To:                   "example.com",
		SupportedVer:         "1.6",
		DisableEmptyRequests: true,
	}
}

func sessionCreationResponse() Body {
	return NewBuilder().
		Set("sid", "sid-1").
		Set("wait", "60").
		Set("hold", "1").
		Set("ver", "1.6").
		Set("ack", "1").
		Build()
}

func TestCreateRequiresSenderAndCodec(t *testing.T) {
	if _, err := Create(nil); err == nil {
		t.Fatal("Create(nil) should fail")
	}
	if _, err := Create(&Config{To: "example.com"}); err == nil {
		t.Fatal("Create without Sender/Codec should fail")
	}
	if _, err := Create(&Config{Sender: &scriptedSender{}, Codec: noopCodec{}}); err == nil {
		t.Fatal("Create without To should fail")
	}
}

func TestSessionHandshakeAndSend(t *testing.T) {
	sender := &scriptedSender{}
	sender.setHandler(func(params *CMSessionParams, body Body) (Body, int, error) {
		if params == nil {
			return sessionCreationResponse(), 200, nil
		}
		return NewBody(), 200, nil
	})

	sess, err := Create(newTestConfig(sender))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	var established atomic.Bool
	sess.AddConnectionListener(func(ev ConnectionEvent) {
		if ev.Established {
			established.Store(true)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("session-creation send: %v", err)
	}

	// Give the receive loop a beat to process the handshake response and
	// fire the connection-established listener.
	deadline := time.Now().Add(time.Second)
	for !established.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !established.Load() {
		t.Fatal("connection-established listener never fired")
	}

	msg := NewBuilder().Build().With().SetPayload([]byte("<message/>")).Build()
	if _, err := sess.Send(ctx, msg); err != nil {
		t.Fatalf("second send: %v", err)
	}
}

func TestSessionRecoverableBindingResendsOutstanding(t *testing.T) {
	sender := &scriptedSender{}
	var attempt atomic.Int32
	sender.setHandler(func(params *CMSessionParams, body Body) (Body, int, error) {
		if params == nil {
			return sessionCreationResponse(), 200, nil
		}
		if attempt.Add(1) == 1 {
			return NewBuilder().Set("type", "error").Build(), 200, nil
		}
		return NewBody(), 200, nil
	})

	sess, err := Create(newTestConfig(sender))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("session-creation send: %v", err)
	}
	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("send whose response is a recoverable binding condition: %v", err)
	}

	// The type="error" response makes the receive loop resend the
	// discarded request with its original RID as a third request.
	var sent []Body
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sender.mu.Lock()
		sent = append([]Body(nil), sender.sent...)
		sender.mu.Unlock()
		if len(sent) >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if len(sent) < 3 {
		t.Fatalf("sender saw %d requests, want 3 (the discarded request resent)", len(sent))
	}
	if got, want := sent[2].MustAttr("rid"), sent[1].MustAttr("rid"); got != want {
		t.Fatalf("resent rid = %s, want original rid %s", got, want)
	}

	if sess.Err() != nil {
		t.Fatalf("session should not be disposed after a recoverable binding condition: %v", sess.Err())
	}
}

func TestSessionTerminalBindingDisposes(t *testing.T) {
	sender := &scriptedSender{}
	sender.setHandler(func(params *CMSessionParams, body Body) (Body, int, error) {
		if params == nil {
			return sessionCreationResponse(), 200, nil
		}
		return NewBuilder().Set("type", "terminate").Set("condition", "system-shutdown").Build(), 200, nil
	})

	sess, err := Create(newTestConfig(sender))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	var established atomic.Bool
	var closedErr error
	var gotClosed atomic.Bool
	sess.AddConnectionListener(func(ev ConnectionEvent) {
		if ev.Established {
			established.Store(true)
			return
		}
		closedErr = ev.Err
		gotClosed.Store(true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("session-creation send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !established.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !established.Load() {
		t.Fatal("connection-established listener never fired")
	}

	// This send's response carries the terminal condition.
	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("second send: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for !gotClosed.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !gotClosed.Load() {
		t.Fatal("connection-closed listener never fired after terminal binding condition")
	}

	var termErr *TerminalBindingError
	if closedErr == nil {
		t.Fatal("closed event carried no error")
	}
	if !asTerminalBindingError(closedErr, &termErr) {
		t.Fatalf("closed error = %v, want *TerminalBindingError", closedErr)
	}
	if termErr.Condition != ConditionSystemShutdown {
		t.Fatalf("condition = %v, want ConditionSystemShutdown", termErr.Condition)
	}

	if _, err := sess.Send(ctx, NewBody()); err != ErrDisposed {
		t.Fatalf("Send after terminal disposal = %v, want ErrDisposed", err)
	}
}

func asTerminalBindingError(err error, target **TerminalBindingError) bool {
	if te, ok := err.(*TerminalBindingError); ok {
		*target = te
		return true
	}
	return false
}

func TestSessionAttemptReconnectAfterTransportError(t *testing.T) {
	sender := &scriptedSender{}
	var fail atomic.Bool
	sender.setHandler(func(params *CMSessionParams, body Body) (Body, int, error) {
		if params == nil {
			return sessionCreationResponse(), 200, nil
		}
		if fail.Load() {
			return Body{}, 0, &TransportError{Err: context.DeadlineExceeded}
		}
		return NewBody(), 200, nil
	})

	sess, err := Create(newTestConfig(sender))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("session-creation send: %v", err)
	}

	fail.Store(true)
	if _, err := sess.Send(ctx, NewBody()); err != nil {
		t.Fatalf("send that triggers a transport error should still return its own nil result: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !sess.IsRecoverableConnectionLoss() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !sess.IsRecoverableConnectionLoss() {
		t.Fatal("session should report recoverable connection loss after a transport error")
	}

	fail.Store(false)
	if !sess.AttemptReconnect() {
		t.Fatal("AttemptReconnect() = false, want true")
	}
	if sess.IsRecoverableConnectionLoss() {
		t.Fatal("session should no longer be lost after a successful reconnect")
	}
}
