// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httpsender is the default Sender collaborator bosh.Session
// leaves abstract: it transmits each BOSH request as its own HTTP POST to
// the connection manager and resolves the matching ResponseHandle when
// that POST's response arrives, modeled on the retry/backoff shape of the
// teacher's streamable HTTP client transport but adapted for BOSH's
// long-polling round trips instead of a persistent SSE stream.
package httpsender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/xmppbosh/bosh/bosh"
)

// Options configures a Sender.
type Options struct {
	// Endpoint is the connection manager's HTTP-bind URL. It may be an RFC
	// 6570 URI template (e.g. "https://{domain}/http-bind/"); RouteVar
	// names the template variable substituted with the session's `to`
	// attribute, if Endpoint contains one. A plain URL with no template
	// expressions is used as-is.
	Endpoint string
	// RouteVar is the URI template variable name populated from the
	// session's `to` attribute. Defaults to "domain".
	RouteVar string

	// HTTPClient performs the actual requests. If nil, an http.Client with
	// no overall timeout is constructed; per-request deadlines then come
	// only from the context passed to Send.
	HTTPClient *http.Client

	// Codec serializes and parses <body/> elements.
	Codec bosh.BodyCodec

	// MaxRetries is the maximum number of retries for a single POST that
	// fails with a retryable error. Zero means no retries.
	MaxRetries int
	// InitialBackoff is the delay before the first retry; subsequent
	// retries back off exponentially with jitter. Defaults to 1s.
	InitialBackoff time.Duration
	// MinPollInterval throttles how often this sender will transmit a
	// request when the CM runs in polling (hold=0) mode, independent of
	// the coordinator's own keepalive scheduling — a defense-in-depth
	// rate limit on outbound traffic to a single CM. Zero disables it.
	MinPollInterval time.Duration
}

// Sender is the default bosh.Sender implementation.
type Sender struct {
	opts   Options
	client *http.Client
	to     string
	limiter *rate.Limiter
	rnd    *rand.Rand
}

var _ bosh.Sender = (*Sender)(nil)

// New returns a Sender for the given target domain (the session's `to`),
// used only to populate Endpoint's URI template, if any.
func New(to string, opts Options) (*Sender, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 0} // BOSH long-polls; per-request deadlines come from ctx.
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.RouteVar == "" {
		opts.RouteVar = "domain"
	}

	var limiter *rate.Limiter
	if opts.MinPollInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinPollInterval), 1)
	}

	return &Sender{
		opts:    opts,
		client:  client,
		to:      to,
		limiter: limiter,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Send implements bosh.Sender.
func (s *Sender) Send(ctx context.Context, params *bosh.CMSessionParams, body bosh.Body) bosh.ResponseHandle {
	reqCtx, cancel := context.WithCancel(ctx)
	h := &responseHandle{cancel: cancel, result: make(chan result, 1)}
	go h.run(reqCtx, s, params, body)
	return h
}

// Destroy implements bosh.Sender. The default client owns no long-lived
// resources beyond its idle connection pool, which the Go runtime reclaims.
func (s *Sender) Destroy() {}

func (s *Sender) endpoint() (string, error) {
	if !containsTemplateExpr(s.opts.Endpoint) {
		return s.opts.Endpoint, nil
	}
	return expandEndpoint(s.opts.Endpoint, s.opts.RouteVar, s.to)
}

type result struct {
	body   bosh.Body
	status int
	err    error
}

// responseHandle implements bosh.ResponseHandle.
type responseHandle struct {
	cancel context.CancelFunc
	result chan result
}

func (h *responseHandle) Await(ctx context.Context) (bosh.Body, int, error) {
	select {
	case <-ctx.Done():
		return bosh.Body{}, 0, ctx.Err()
	case r := <-h.result:
		return r.body, r.status, r.err
	}
}

func (h *responseHandle) Abort() {
	h.cancel()
}

func (h *responseHandle) run(ctx context.Context, s *Sender, params *bosh.CMSessionParams, body bosh.Body) {
	if s.limiter != nil && params != nil && params.Hold == 0 {
		if err := s.limiter.Wait(ctx); err != nil {
			h.result <- result{err: &bosh.TransportError{Err: err}}
			return
		}
	}

	endpoint, err := s.endpoint()
	if err != nil {
		h.result <- result{err: &bosh.TransportError{Err: err}}
		return
	}

	var lastErr error
	backoff := s.opts.InitialBackoff
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		respBody, status, err := s.post(ctx, endpoint, body)
		if err == nil {
			h.result <- result{body: respBody, status: status}
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			h.result <- result{err: &bosh.TransportError{Err: ctx.Err()}}
			return
		}
		if !isRetryable(err) || attempt == s.opts.MaxRetries {
			break
		}
		jitter := time.Duration(s.rnd.Int63n(int64(backoff/2 + 1)))
		select {
		case <-ctx.Done():
			h.result <- result{err: &bosh.TransportError{Err: ctx.Err()}}
			return
		case <-time.After(backoff + jitter):
		}
		backoff *= 2
	}
	h.result <- result{err: &bosh.TransportError{Err: lastErr}}
}

func (s *Sender) post(ctx context.Context, endpoint string, body bosh.Body) (bosh.Body, int, error) {
	data, err := s.opts.Codec.Encode(body)
	if err != nil {
		return bosh.Body{}, 0, fmt.Errorf("httpsender: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return bosh.Body{}, 0, fmt.Errorf("httpsender: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return bosh.Body{}, 0, err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return bosh.Body{}, resp.StatusCode, fmt.Errorf("httpsender: read response: %w", err)
	}
	if len(respData) == 0 {
		return bosh.Body{}, resp.StatusCode, nil
	}
	respBody, err := s.opts.Codec.Decode(respData)
	if err != nil {
		return bosh.Body{}, resp.StatusCode, fmt.Errorf("httpsender: decode response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// isRetryable mirrors the teacher's streamableClientConn.isRetryable: only
// network errors that report Timeout() are retried. HTTP error statuses
// are not errors here; they are returned to the caller as responses.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if ok := asNetError(err, &netErr); ok {
		return netErr.Timeout()
	}
	return false
}

func asNetError(err error, target *net.Error) bool {
	if ne, ok := err.(net.Error); ok {
		*target = ne
		return true
	}
	return false
}
