// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"github.com/heliosml/helios/graph"
)

// BFSLevel is the levelisation of a function: level 0 holds the sink (Save)
// nodes, level i+1 the predecessors of level i. A node appears exactly once,
// at its maximum depth from any sink, so consuming levels deep-to-shallow
// visits every node before all of its users.
type BFSLevel [][]*graph.Node

// getBFSLevel levelises the function. Nodes that feed nothing (no users and
// not a Save) are treated as sinks so that every node of the function is
// levelised.
func getBFSLevel(f *graph.Function) BFSLevel {
	depth := make(map[*graph.Node]int, f.NumNodes())
	maxDepth := 0

	// Users always come before their inputs in reverse topological order, so
	// one reverse sweep computes the longest distance to a sink.
	order, err := f.TopologicalOrder()
	if err != nil {
		// Cyclic functions are rejected by Verify before partitioning.
		return nil
	}
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		d := 0
		for _, user := range n.Users() {
			if ud := depth[user] + 1; ud > d {
				d = ud
			}
		}
		depth[n] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	bfs := make(BFSLevel, maxDepth+1)
	for _, n := range f.Nodes() {
		d := depth[n]
		bfs[d] = append(bfs[d], n)
	}
	return bfs
}
