// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"sort"

	"k8s.io/klog/v2"

	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
)

// maxAdjustRounds bounds the rounds of the node-move pass; the merge pass
// repeats until no pair of partitions can be combined.
const maxAdjustRounds = 8

// partitionsAdjust runs the post-cut optimisation passes on a memory-bounded
// mapping: first reduce the bytes crossing partition boundaries by moving
// nodes between adjacent partitions, then merge adjacent partitions whose
// combined working set fits the budget. Afterwards every partition still
// fits availableMemory and no adjacent pair can be merged within it.
func partitionsAdjust(mapping *NodeToFunctionMap, availableMemory uint64) {
	nodesSet := mapping.NodesByFunction()
	optimizeCommunicationCost(mapping, nodesSet, availableMemory)
	partitionsCombine(mapping, nodesSet, availableMemory)
}

// optimizeCommunicationCost moves nodes forward into the next partition when
// that removes more cut bytes than it adds, keeping both partitions within
// the memory budget. Only forward moves are considered so the chain order of
// the partitions (and with it acyclicity) is preserved.
func optimizeCommunicationCost(mapping *NodeToFunctionMap,
	nodesSet map[*graph.Function]NodesSet, availableMemory uint64) {

	parts := mapping.Partitions()
	for round := 0; round < maxAdjustRounds; round++ {
		moved := false
		for i := 0; i+1 < len(parts); i++ {
			cur, next := parts[i], parts[i+1]
			curSet, nextSet := nodesSet[cur], nodesSet[next]
			for _, n := range curSet.Clone().Keys() {
				if !movableForward(n, curSet, nextSet) {
					continue
				}
				// Moving n removes its output from the cut but may cut its
				// own node inputs out of cur instead.
				saved := uint64(n.Shape().Memory())
				var added uint64
				for _, in := range n.InputNodes() {
					if curSet.Has(in) {
						added += uint64(in.Shape().Memory())
					}
				}
				if added >= saved {
					continue
				}
				curSet.Delete(n)
				nextSet.Insert(n)
				curInfo, nextInfo := getGraphMemInfo(curSet), getGraphMemInfo(nextSet)
				if curInfo.TotalMemSize() > availableMemory || nextInfo.TotalMemSize() > availableMemory {
					// Undo: the move breaks a memory budget.
					nextSet.Delete(n)
					curSet.Insert(n)
					continue
				}
				mapping.Add(n, next)
				mapping.SetGraphMemInfo(cur, curInfo)
				mapping.SetGraphMemInfo(next, nextInfo)
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

// movableForward reports whether n can migrate from cur to next without
// breaking dataflow direction: every user of n must already live in next,
// and n must not feed another node of cur.
func movableForward(n *graph.Node, cur, next NodesSet) bool {
	if n.Kind() == graph.KindSave {
		return false
	}
	users := n.Users()
	if len(users) == 0 {
		return false
	}
	for _, user := range users {
		if !next.Has(user) {
			return false
		}
	}
	return true
}

// partitionsCombine merges adjacent same-backend partitions whose combined
// working set fits availableMemory, smallest combined size first, until no
// pair fits. Merged-away partitions are erased from the module.
func partitionsCombine(mapping *NodeToFunctionMap,
	nodesSet map[*graph.Function]NodesSet, availableMemory uint64) {

	for {
		parts := mapping.Partitions()
		bestIdx := -1
		var bestTotal uint64
		for i := 0; i+1 < len(parts); i++ {
			if mapping.BackendName(parts[i]) != mapping.BackendName(parts[i+1]) {
				continue
			}
			merged := nodesSet[parts[i]].Clone()
			for n := range nodesSet[parts[i+1]] {
				merged.Insert(n)
			}
			total := getGraphMemInfo(merged).TotalMemSize()
			if total > availableMemory {
				continue
			}
			if bestIdx < 0 || total < bestTotal {
				bestIdx, bestTotal = i, total
			}
		}
		if bestIdx < 0 {
			return
		}

		keep, drop := parts[bestIdx], parts[bestIdx+1]
		for n := range nodesSet[drop] {
			nodesSet[keep].Insert(n)
			mapping.Add(n, keep)
		}
		delete(nodesSet, drop)
		module := drop.Parent()
		mapping.RemovePartition(drop)
		module.EraseFunction(drop)
		mapping.SetGraphMemInfo(keep, getGraphMemInfo(nodesSet[keep]))
		if klog.V(2).Enabled() {
			klog.Infof("combined partition %q into %q (total %d bytes)", drop.Name(), keep.Name(), bestTotal)
		}
	}
}

// assignLogicalDeviceID assigns logical devices to every partition that has
// none yet and returns the number of logical devices in use. Partitions with
// the same logical ID end up on the same physical device, so when a backend
// has more partitions than devices they are bin-packed: smallest working
// sets first, each into the least-loaded logical device of its backend.
func assignLogicalDeviceID(mapping *NodeToFunctionMap, backendMap map[string]*BackendInfo) int {
	next := runtime.DeviceID(0)
	var backendOrder []string
	unassigned := make(map[string][]*graph.Function)
	for _, part := range mapping.Partitions() {
		if ids := mapping.LogicalDeviceIDs(part); len(ids) > 0 {
			for _, id := range ids {
				if id >= next {
					next = id + 1
				}
			}
			continue
		}
		backendName := mapping.BackendName(part)
		if _, found := unassigned[backendName]; !found {
			backendOrder = append(backendOrder, backendName)
		}
		unassigned[backendName] = append(unassigned[backendName], part)
	}

	for _, backendName := range backendOrder {
		parts := unassigned[backendName]
		num := 1
		if info, found := backendMap[backendName]; found && info.Num > 0 {
			num = info.Num
		}
		if len(parts) <= num {
			for _, part := range parts {
				mapping.AppendLogicalDeviceID(part, next)
				next++
			}
			continue
		}
		// More partitions than devices: pack by memory, smallest first into
		// the least-loaded bin.
		sort.SliceStable(parts, func(i, j int) bool {
			return mapping.GraphMemInfo(parts[i]).TotalMemSize() <
				mapping.GraphMemInfo(parts[j]).TotalMemSize()
		})
		binLoad := make([]uint64, num)
		base := next
		for _, part := range parts {
			bin := 0
			for b := 1; b < num; b++ {
				if binLoad[b] < binLoad[bin] {
					bin = b
				}
			}
			binLoad[bin] += mapping.GraphMemInfo(part).TotalMemSize()
			mapping.AppendLogicalDeviceID(part, base+runtime.DeviceID(bin))
		}
		next = base + runtime.DeviceID(num)
	}
	return int(next)
}
