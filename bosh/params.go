// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"strconv"
	"time"
)

// CMSessionParams holds the connection manager's session-creation response
// attributes. Once materialized by the receive loop it is immutable for the
// lifetime of the session.
type CMSessionParams struct {
	// SID is the opaque session id the CM assigned.
	SID string
	// Wait is the CM's long-poll hold maximum.
	Wait time.Duration
	// Hold is the maximum number of requests the CM may hold open at once.
	Hold int
	// Requests is the maximum number of concurrent in-flight client
	// requests. A nil value means the CM did not advertise a limit.
	Requests *int
	// Polling is the minimum interval between empty polls when Hold == 0.
	// Zero means the CM did not advertise one.
	Polling time.Duration
	// MaxPause is the maximum pause duration the CM accepts. Nil means the
	// CM does not support session pause.
	MaxPause *time.Duration
	// Ver is the negotiated protocol version string. Empty means "pre-1.6",
	// which puts the session into deprecated HTTP-status-code error mode.
	Ver string
	// AckSupport records whether the CM included an ack attribute,
	// indicating it supports the request/response acknowledgment scheme.
	AckSupport bool
}

// SupportsPause reports whether the CM accepted a maxpause and therefore
// supports session pause/resume.
func (p *CMSessionParams) SupportsPause() bool {
	return p != nil && p.MaxPause != nil
}

// PreSixteen reports whether the CM is operating in the deprecated pre-1.6
// HTTP-status-code error mode (no ver attribute in the session response).
func (p *CMSessionParams) PreSixteen() bool {
	return p == nil || p.Ver == ""
}

// parseCMSessionParams materializes CMSessionParams from a session-creation
// response body's recognized attributes.
func parseCMSessionParams(resp Body) *CMSessionParams {
	p := &CMSessionParams{}
	if v, ok := resp.Attr("sid"); ok {
		p.SID = v
	}
	if v, ok := resp.Attr("wait"); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			p.Wait = time.Duration(secs) * time.Second
		}
	}
	if v, ok := resp.Attr("hold"); ok {
		if h, err := strconv.Atoi(v); err == nil {
			p.Hold = h
		}
	}
	if v, ok := resp.Attr("requests"); ok {
		if r, err := strconv.Atoi(v); err == nil {
			p.Requests = &r
		}
	}
	if v, ok := resp.Attr("polling"); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			p.Polling = time.Duration(secs) * time.Second
		}
	}
	if v, ok := resp.Attr("maxpause"); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			d := time.Duration(secs) * time.Second
			p.MaxPause = &d
		}
	}
	if v, ok := resp.Attr("ver"); ok {
		p.Ver = v
	}
	if _, ok := resp.Attr("ack"); ok {
		p.AckSupport = true
	}
	return p
}

// maxInFlight returns the maximum number of requests that may be
// outstanding at once, per spec.md §4.3: the CM's advertised limit if
// known, else 1 before cm_params is known, else unbounded.
func maxInFlight(params *CMSessionParams) int {
	switch {
	case params == nil:
		return 1
	case params.Requests != nil:
		return *params.Requests
	default:
		return 0 // 0 means "unbounded" in this package's internal convention.
	}
}
