// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wire is the default BodyCodec collaborator bosh.Session leaves
// abstract: it serializes and parses BOSH <body/> elements over
// encoding/xml, in the http://jabber.org/protocol/httpbind namespace.
package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/xmppbosh/bosh/bosh"
)

// Namespace is the BOSH body element namespace, XEP-0124 §3.
const Namespace = "http://jabber.org/protocol/httpbind"

// Codec implements bosh.BodyCodec over encoding/xml.
type Codec struct{}

var _ bosh.BodyCodec = Codec{}

// wireBody mirrors the wire shape of a <body/> element: attributes as a
// generic slice (so arbitrary/unknown ones round-trip) plus raw inner XML.
type wireBody struct {
	XMLName xml.Name   `xml:"body"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// Encode serializes b to a complete <body/> element. Attribute order is
// not guaranteed to be stable across calls.
func (Codec) Encode(b bosh.Body) ([]byte, error) {
	w := wireBody{Inner: b.Payload}
	w.Attrs = append(w.Attrs, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: Namespace})
	for name, value := range b.Attrs() {
		w.Attrs = append(w.Attrs, xml.Attr{Name: attrName(name), Value: value})
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("wire: encode body: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a complete <body/> element into a bosh.Body. Unrecognized
// attributes are preserved; the inner XML is kept as an opaque payload.
func (Codec) Decode(data []byte) (bosh.Body, error) {
	var w wireBody
	if err := xml.Unmarshal(data, &w); err != nil {
		return bosh.Body{}, fmt.Errorf("wire: decode body: %w", err)
	}
	bd := bosh.NewBuilder()
	for _, a := range w.Attrs {
		name := a.Name.Local
		if a.Name.Space == "http://www.w3.org/XML/1998/namespace" {
			name = "xml:" + name
		}
		if name == "xmlns" {
			continue
		}
		bd.Set(name, a.Value)
	}
	bd.SetPayload(bytes.TrimSpace(w.Inner))
	return bd.Build(), nil
}

// attrName maps a recognized BOSH attribute name to its XML name,
// special-casing the one attribute (xml:lang) that lives in the xml
// namespace.
func attrName(name string) xml.Name {
	if name == "xml:lang" {
		return xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}
	}
	return xml.Name{Local: name}
}
