// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpsender

import (
	"fmt"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// containsTemplateExpr reports whether raw has an RFC 6570 expression in
// it, so a plain connection-manager URL can skip template expansion
// entirely.
func containsTemplateExpr(raw string) bool {
	return strings.ContainsAny(raw, "{}")
}

// expandEndpoint expands endpoint's RouteVar with to, the session's target
// domain. It is the one call site in this module for
// github.com/yosida95/uritemplate/v3, used by connection managers that
// publish their HTTP-bind URL as a template keyed on the target domain
// (e.g. a multi-tenant CM front door).
func expandEndpoint(raw, routeVar, to string) (string, error) {
	tmpl, err := uritemplate.New(raw)
	if err != nil {
		return "", fmt.Errorf("httpsender: parse endpoint template %q: %w", raw, err)
	}
	values := uritemplate.Values{}
	values.Set(routeVar, uritemplate.String(to))
	return tmpl.Expand(values), nil
}
