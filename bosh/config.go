// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"log/slog"
	"time"
)

// Default process-scope tunables, per spec.md §6.
const (
	DefaultEmptyRequestDelay = 100 * time.Millisecond
	DefaultPauseMargin       = 500 * time.Millisecond
	DefaultWaitSeconds       = 60
	DefaultHold              = 3
	defaultIOTimeoutFloor    = 60 * time.Second
)

// Config holds the options recognized by Create, per spec.md §6. Proxy and
// TLS configuration are an HTTP-sender concern (spec.md §1 keeps the
// transport itself out of scope) and so live on the Sender implementation
// instead of here; see internal/httpsender.Options.
type Config struct {
	// Sender is the HTTP transport collaborator. Required.
	Sender Sender
	// Codec serializes and parses <body/> elements. Required.
	Codec BodyCodec

	// To is the target XMPP domain. Required.
	To string
	// From is the optional originating JID.
	From string
	// Lang is the xml:lang to advertise. Defaults to "en".
	Lang string
	// Route is an optional CM routing attribute.
	Route string

	// WaitSeconds is the requested long-poll hold maximum, in seconds.
	// Defaults to 60.
	WaitSeconds int
	// SupportedVer is the ver attribute value advertised on session
	// creation.
	SupportedVer string

	// EmptyRequestDelay overrides the polling-session empty-request
	// interval used when the CM did not advertise `polling`. Defaults to
	// DefaultEmptyRequestDelay.
	EmptyRequestDelay time.Duration
	// PauseMargin overrides the safety margin subtracted from maxpause
	// when scheduling the pause-wake empty request. Defaults to
	// DefaultPauseMargin.
	PauseMargin time.Duration
	// DisableEmptyRequests is a test hook: when true, no keepalive empty
	// request is scheduled. The single pause-wake empty request that Pause
	// schedules is not affected.
	DisableEmptyRequests bool
	// AssertionsEnabled gates internal invariant checks. Defaults to true.
	AssertionsEnabled *bool

	// Executor, if non-nil, is used to run scheduled timer callbacks and
	// the receive loop instead of a bare `go`. Most callers leave this nil.
	Executor func(func())

	// Logger receives diagnostic logging. A nil Logger disables logging
	// entirely; it is never defaulted to slog.Default().
	Logger *slog.Logger
}

func (c *Config) lang() string {
	if c.Lang == "" {
		return "en"
	}
	return c.Lang
}

func (c *Config) waitSeconds() int {
	if c.WaitSeconds <= 0 {
		return DefaultWaitSeconds
	}
	return c.WaitSeconds
}

func (c *Config) emptyRequestDelay() time.Duration {
	if c.EmptyRequestDelay <= 0 {
		return DefaultEmptyRequestDelay
	}
	return c.EmptyRequestDelay
}

func (c *Config) pauseMargin() time.Duration {
	if c.PauseMargin <= 0 {
		return DefaultPauseMargin
	}
	return c.PauseMargin
}

func (c *Config) assertionsEnabled() bool {
	if c.AssertionsEnabled == nil {
		return true
	}
	return *c.AssertionsEnabled
}

func (c *Config) run(f func()) {
	if c.Executor != nil {
		c.Executor(f)
		return
	}
	go f()
}

func (c *Config) logf(level slog.Level, msg string, args ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Log(context.Background(), level, msg, args...)
}
