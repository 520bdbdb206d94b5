// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import "maps"

// Body is an immutable BOSH <body/> element: a case-sensitive mapping from
// attribute name to string value, plus an opaque inner XML payload.
//
// Body never interprets Payload. Parsing and serializing the payload XML is
// an external collaborator's job (see BodyCodec); the coordinator only ever
// reads and writes the recognized BOSH attributes listed in XEP-0124.
type Body struct {
	attrs   map[string]string
	Payload []byte
}

// NewBody returns a Body with no attributes and no payload.
func NewBody() Body {
	return Body{}
}

// Attr returns the value of the named attribute and whether it was present.
func (b Body) Attr(name string) (string, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// MustAttr returns the value of the named attribute, or "" if absent.
func (b Body) MustAttr(name string) string {
	return b.attrs[name]
}

// Attrs returns a copy of the body's attribute map. Callers must not rely on
// iteration order.
func (b Body) Attrs() map[string]string {
	return maps.Clone(b.attrs)
}

// Builder derives new Body values from an existing one without mutating it.
type Builder struct {
	attrs   map[string]string
	payload []byte
}

// With returns a Builder seeded with b's attributes and payload.
func (b Body) With() *Builder {
	bd := &Builder{attrs: make(map[string]string, len(b.attrs)+4), payload: b.Payload}
	maps.Copy(bd.attrs, b.attrs)
	return bd
}

// NewBuilder returns an empty Builder, for constructing a Body from scratch.
func NewBuilder() *Builder {
	return &Builder{attrs: make(map[string]string)}
}

// Set sets an attribute, overwriting any existing value. An empty value
// removes the attribute, matching BOSH's convention that absent and empty
// are both "not specified" for every attribute this package recognizes.
func (bd *Builder) Set(name, value string) *Builder {
	if value == "" {
		delete(bd.attrs, name)
	} else {
		bd.attrs[name] = value
	}
	return bd
}

// SetPayload sets the opaque inner XML payload.
func (bd *Builder) SetPayload(payload []byte) *Builder {
	bd.payload = payload
	return bd
}

// Build returns the immutable Body.
func (bd *Builder) Build() Body {
	return Body{attrs: maps.Clone(bd.attrs), Payload: bd.payload}
}
