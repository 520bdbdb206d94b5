// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"strings"
	"testing"

	"github.com/xmppbosh/bosh/bosh"
	"github.com/xmppbosh/bosh/internal/wire"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := wire.Codec{}
	b := bosh.NewBuilder().
		Set("sid", "abc123").
		Set("rid", "42").
		Set("xml:lang", "en").
		Build().With().
		SetPayload([]byte(`<message xmlns='jabber:client'><body>hi</body></message>`)).
		Build()

	data, err := codec.Encode(b)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "jabber.org/protocol/httpbind") {
		t.Errorf("encoded body missing BOSH namespace: %s", data)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := decoded.Attr("sid"); v != "abc123" {
		t.Errorf("decoded sid = %q, want abc123", v)
	}
	if v, _ := decoded.Attr("rid"); v != "42" {
		t.Errorf("decoded rid = %q, want 42", v)
	}
	if v, _ := decoded.Attr("xml:lang"); v != "en" {
		t.Errorf("decoded xml:lang = %q, want en", v)
	}
	if !strings.Contains(string(decoded.Payload), "<body>hi</body>") {
		t.Errorf("decoded payload = %s, want to contain <body>hi</body>", decoded.Payload)
	}
}

func TestCodecDecodeEmptyBody(t *testing.T) {
	codec := wire.Codec{}
	data := []byte(`<body xmlns='http://jabber.org/protocol/httpbind' sid='s1'/>`)
	b, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := b.Attr("sid"); v != "s1" {
		t.Errorf("sid = %q, want s1", v)
	}
	if len(b.Payload) != 0 {
		t.Errorf("Payload = %q, want empty", b.Payload)
	}
}
