// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
)

// doPartitioning materialises a partition mapping: it clones every assigned
// node into its target sub-function, bridges each cross-partition edge with a
// placeholder (one per cut value -- the producing partition gets a Save into
// it, every consuming partition reads it), and, when saveDAG is set, builds
// the DAG of sub-functions under a synthetic root.
//
// funcs are the source functions the mapping covers; name labels the DAG
// root. The heterogeneous flow calls this twice -- once for the backend
// split, once for the memory cut -- so DAG edges are derived from
// placeholder producer/consumer relations, which also captures cuts bridged
// by an earlier materialisation.
func doPartitioning(name string, funcs []*graph.Function, module *graph.Module,
	mapping *NodeToFunctionMap, saveDAG bool) runtime.DAGList {

	// clones maps a source node to its clone inside its target partition.
	clones := make(map[*graph.Node]*graph.Node)
	// bridges maps a cut source value to the placeholder carrying it across
	// partitions.
	bridges := make(map[*graph.Node]*graph.Placeholder)

	// bridgeFor returns the placeholder carrying src's value out of its
	// partition, creating the placeholder and the producing Save on demand.
	bridgeFor := func(src *graph.Node) *graph.Placeholder {
		if ph, found := bridges[src]; found {
			return ph
		}
		ph := module.CreatePlaceholder(
			module.UniquePlaceholderName(src.Name()+"__out"), src.Shape().Clone())
		bridges[src] = ph
		mapping.Get(src).Save(clones[src], ph)
		return ph
	}

	for _, f := range funcs {
		order, _ := f.TopologicalOrder()
		for _, n := range order {
			target := mapping.Get(n)
			if target == nil {
				continue
			}
			inputs := make([]graph.Operand, 0, len(n.Inputs()))
			for _, in := range n.Inputs() {
				switch in := in.(type) {
				case *graph.Placeholder:
					inputs = append(inputs, in)
				case *graph.Node:
					if mapping.Get(in) == target {
						inputs = append(inputs, clones[in])
					} else {
						inputs = append(inputs, bridgeFor(in))
					}
				}
			}
			var clone *graph.Node
			if n.Kind() == graph.KindSave {
				clone = target.NewSave(n.Name(), inputs[0], n.SavedTo())
			} else {
				clone = target.NewNode(n.Kind(), n.Name(), n.Shape().Clone(), inputs...)
			}
			clones[n] = clone
		}
	}

	if !saveDAG {
		return nil
	}

	// One DAGNode per partition. Edges: the partition saving a placeholder
	// is the parent of every partition reading it. This covers both the
	// bridges created above and bridges left by an earlier materialisation
	// round.
	producerOf := make(map[*graph.Placeholder]*graph.Function)
	for _, part := range mapping.Partitions() {
		for _, n := range part.Nodes() {
			if out := n.SavedTo(); out != nil {
				producerOf[out] = part
			}
		}
	}

	dagNodes := make(map[*graph.Function]*runtime.DAGNode, len(mapping.Partitions()))
	nodes := make([]*runtime.DAGNode, 0, len(mapping.Partitions()))
	for _, part := range mapping.Partitions() {
		dn := &runtime.DAGNode{
			Name:           part.Name(),
			BackendName:    mapping.BackendName(part),
			LogicalDevices: append([]runtime.DeviceID(nil), mapping.LogicalDeviceIDs(part)...),
			Module:         module,
		}
		dagNodes[part] = dn
		nodes = append(nodes, dn)
	}

	type edge struct{ from, to *graph.Function }
	edgeSet := types.MakeSet[edge]()
	for _, part := range mapping.Partitions() {
		for _, n := range part.Nodes() {
			for _, in := range n.Inputs() {
				ph, ok := in.(*graph.Placeholder)
				if !ok {
					continue
				}
				prod, found := producerOf[ph]
				if !found || prod == part {
					continue
				}
				e := edge{from: prod, to: part}
				if edgeSet.Has(e) {
					continue
				}
				edgeSet.Insert(e)
				from, to := dagNodes[prod], dagNodes[part]
				from.Children = append(from.Children, to)
				to.Parents = append(to.Parents, from)
			}
		}
	}

	root := &runtime.DAGNode{Name: name, Module: module}
	for _, part := range mapping.Partitions() {
		if dn := dagNodes[part]; len(dn.Parents) == 0 {
			root.Children = append(root.Children, dn)
			dn.Parents = append(dn.Parents, root)
		}
	}

	return runtime.DAGList{{Root: root, Nodes: nodes}}
}
