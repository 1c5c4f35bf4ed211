// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/types"
)

// GraphMemInfo is the working-set accounting of a candidate partition: the
// bytes of input values crossing into it, output values crossing out of it,
// and constant weights it must hold resident.
type GraphMemInfo struct {
	InMemSize    uint64
	OutMemSize   uint64
	ConstMemSize uint64
}

// TotalMemSize a device needs to host the partition.
func (g GraphMemInfo) TotalMemSize() uint64 {
	return g.InMemSize + g.OutMemSize + g.ConstMemSize
}

// String implements fmt.Stringer with human-readable sizes.
func (g GraphMemInfo) String() string {
	return fmt.Sprintf("in=%s out=%s const=%s total=%s",
		humanize.IBytes(g.InMemSize), humanize.IBytes(g.OutMemSize),
		humanize.IBytes(g.ConstMemSize), humanize.IBytes(g.TotalMemSize()))
}

// getGraphMemInfo computes the working set of the node set, were it cut out
// into its own sub-function:
//
//   - non-static placeholders read by the set count once each as input bytes;
//   - static placeholders count once each as constant bytes;
//   - values produced outside the set and consumed inside count as input
//     bytes;
//   - values produced inside the set and consumed outside, and placeholders
//     written by Save nodes, count as output bytes.
//
// A Save node's output placeholder is never double-counted as an input.
func getGraphMemInfo(set NodesSet) GraphMemInfo {
	var info GraphMemInfo
	seenInPH := types.MakeSet[*graph.Placeholder]()
	seenConst := types.MakeSet[*graph.Placeholder]()
	seenInNode := types.MakeSet[*graph.Node]()
	seenOutNode := types.MakeSet[*graph.Node]()
	seenOutPH := types.MakeSet[*graph.Placeholder]()

	for n := range set {
		for _, in := range n.Inputs() {
			switch in := in.(type) {
			case *graph.Placeholder:
				if in.Static() {
					if !seenConst.Has(in) {
						seenConst.Insert(in)
						info.ConstMemSize += in.SizeInBytes()
					}
				} else if !seenInPH.Has(in) {
					seenInPH.Insert(in)
					info.InMemSize += in.SizeInBytes()
				}
			case *graph.Node:
				if !set.Has(in) && !seenInNode.Has(in) {
					seenInNode.Insert(in)
					info.InMemSize += uint64(in.Shape().Memory())
				}
			}
		}
		if n.Kind() == graph.KindSave {
			if out := n.SavedTo(); out != nil && !seenOutPH.Has(out) {
				seenOutPH.Insert(out)
				info.OutMemSize += out.SizeInBytes()
			}
			continue
		}
		for _, user := range n.Users() {
			if !set.Has(user) && !seenOutNode.Has(n) {
				seenOutNode.Insert(n)
				info.OutMemSize += uint64(n.Shape().Memory())
			}
		}
	}
	return info
}

// updateGraphMemInfoByAddingNode returns the working set of the partition
// after adding node n. The set itself is not modified.
func updateGraphMemInfoByAddingNode(set NodesSet, n *graph.Node) GraphMemInfo {
	set.Insert(n)
	info := getGraphMemInfo(set)
	set.Delete(n)
	return info
}

// nodeMemUsage is the resident memory a node needs on its own: its inputs,
// constants and output.
func nodeMemUsage(n *graph.Node) uint64 {
	info := getGraphMemInfo(types.SetWith(n))
	// A node with no users has no edge leaving the set, so its output is
	// not counted above.
	if n.Kind() != graph.KindSave && len(n.Users()) == 0 {
		info.OutMemSize += uint64(n.Shape().Memory())
	}
	return info.TotalMemSize()
}

// nodeFlops is a coarse operation-count estimate used only for roofline
// ratios; absolute accuracy doesn't matter, relative weight between kinds
// does.
func nodeFlops(n *graph.Node) float64 {
	outSize := float64(n.Shape().Size())
	switch n.Kind() {
	case graph.KindMatMul:
		// [a,b] x [b,c]: 2*a*b*c.
		return 2 * outSize * float64(n.Inputs()[0].Shape().Dim(1))
	case graph.KindFullyConnected:
		return 2*outSize*float64(n.Inputs()[0].Shape().Dim(1)) + outSize
	case graph.KindConv:
		filter := n.Inputs()[1]
		return 2 * outSize * float64(filter.Shape().Size())
	case graph.KindMaxPool, graph.KindAvgPool, graph.KindSoftmax:
		return 4 * outSize
	case graph.KindSave:
		return 0
	default:
		return outSize
	}
}

// nodeComputeTime is the roofline runtime estimate of a node on a device of
// the given backend: the max of its compute-bound and memory-bound lower
// bounds. Input traffic is charged at SRAM bandwidth when the inputs fit in
// SRAM, at DRAM bandwidth otherwise.
func nodeComputeTime(n *graph.Node, info *BackendInfo) float64 {
	var inBytes uint64
	for _, in := range n.Inputs() {
		inBytes += uint64(in.Shape().Memory())
	}
	outBytes := uint64(n.Shape().Memory())
	if n.Kind() == graph.KindSave {
		outBytes = 0
	}

	var computeTime float64
	if info.PeakCompute > 0 {
		computeTime = nodeFlops(n) / info.PeakCompute
	}

	var memTime float64
	inBw := info.PeakDRAMBw
	if info.SRAMCapacity > 0 && inBytes <= info.SRAMCapacity && info.PeakSRAMBw > 0 {
		inBw = info.PeakSRAMBw
	}
	if inBw > 0 {
		memTime += float64(inBytes) / inBw
	}
	if info.PeakDRAMBw > 0 {
		memTime += float64(outBytes) / info.PeakDRAMBw
	}

	if memTime > computeTime {
		return memTime
	}
	return computeTime
}
