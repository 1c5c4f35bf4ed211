// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package hostmanager

import (
	"container/heap"

	"github.com/heliosml/helios/runtime"
)

// inferRequest is one queued inference request.
type inferRequest struct {
	networkName string
	ctx         *runtime.ExecutionContext
	callback    runtime.ResultCB
	priority    uint64
	requestID   uint64
}

// inferHeap is a min-heap over inferRequests: lowest priority value first,
// ties broken by submission order (requestID).
type inferHeap []*inferRequest

var _ heap.Interface = (*inferHeap)(nil)

func (h inferHeap) Len() int { return len(h) }

func (h inferHeap) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].requestID < h[j].requestID
	}
	return h[i].priority < h[j].priority
}

func (h inferHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *inferHeap) Push(x any) { *h = append(*h, x.(*inferRequest)) }

func (h *inferHeap) Pop() any {
	old := *h
	n := len(old)
	req := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return req
}
