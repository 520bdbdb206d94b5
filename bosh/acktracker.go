// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bosh

import (
	"sort"
	"strconv"
)

// ackTracker reasons about the two acknowledgment concerns of XEP-0124 §8
// separately, as spec.md §4.2 requires: the outbound list of requests this
// client has sent whose RIDs the CM has not yet acknowledged, and the
// inbound high-water mark of response RIDs this client has received.
//
// Callers must hold the coordinator's lock; ackTracker has no lock of its
// own, matching the single-mutual-exclusion-region design in spec.md §5.
type ackTracker struct {
	// pendingRequestAcks is the ordered list of request bodies sent but not
	// yet acknowledged by the CM, in send order; report lookups scan it by
	// RID.
	pendingRequestAcks []Body

	// responseAck is the highest RID for which every response with RID <=
	// it has been received. -1 means "none yet".
	responseAck int64
	// pendingSet holds response RIDs received out of order, not yet folded
	// into responseAck.
	pendingSet map[int64]struct{}
}

func newAckTracker() *ackTracker {
	return &ackTracker{
		responseAck: -1,
		pendingSet:  make(map[int64]struct{}),
	}
}

// recordSent appends a freshly sent request body to the pending-ack list.
func (t *ackTracker) recordSent(req Body) {
	t.pendingRequestAcks = append(t.pendingRequestAcks, req)
}

// parseRID parses a RID attribute string.
func parseRID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// requestRID extracts the numeric rid attribute from a body, or -1 if
// absent or unparsable (which should never happen for a body this package
// constructed itself).
func requestRID(b Body) int64 {
	v, ok := b.Attr("rid")
	if !ok {
		return -1
	}
	rid, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return rid
}

// applyOutboundAck removes every pending request whose RID is <= the
// effective ack carried by a response, per spec.md §4.2: response.ack
// defaults to the responding request's own RID when the attribute is
// absent (implicit ack).
func (t *ackTracker) applyOutboundAck(resp Body, reqRID int64) {
	ack := reqRID
	if v, ok := resp.Attr("ack"); ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			ack = min(parsed, reqRID)
		}
	}
	kept := t.pendingRequestAcks[:0]
	for _, req := range t.pendingRequestAcks {
		if requestRID(req) > ack {
			kept = append(kept, req)
		}
	}
	t.pendingRequestAcks = kept
}

// findPending returns the pending request with the given RID, if any.
func (t *ackTracker) findPending(rid int64) (Body, bool) {
	for _, req := range t.pendingRequestAcks {
		if requestRID(req) == rid {
			return req, true
		}
	}
	return Body{}, false
}

// recordResponse folds a newly received response RID into the inbound ack
// state, per spec.md §3: insert into pendingSet, then repeatedly advance
// responseAck while responseAck+1 is present. The first response recorded
// sets responseAck to its own RID.
func (t *ackTracker) recordResponse(rid int64) {
	if t.responseAck == -1 {
		t.responseAck = rid - 1
	}
	t.pendingSet[rid] = struct{}{}
	for {
		candidate := t.responseAck + 1
		if _, ok := t.pendingSet[candidate]; !ok {
			break
		}
		delete(t.pendingSet, candidate)
		t.responseAck = candidate
	}
}

// ackForNextRequest returns the ack attribute value to decorate the next
// outbound request with, and whether one should be included at all. Per
// spec.md §4.2, the attribute is omitted when responseAck == rid-1
// (implicit ack) or when no response has been seen yet.
func (t *ackTracker) ackForNextRequest(rid int64) (string, bool) {
	if t.responseAck == -1 || t.responseAck == rid-1 {
		return "", false
	}
	return strconv.FormatInt(t.responseAck, 10), true
}

// sortedPendingRIDs returns the currently out-of-order response RIDs in
// ascending order, for tests and invariant checks.
func (t *ackTracker) sortedPendingRIDs() []int64 {
	rids := make([]int64, 0, len(t.pendingSet))
	for rid := range t.pendingSet {
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
	return rids
}
