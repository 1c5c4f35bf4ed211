// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/pkg/errors"

	"github.com/heliosml/helios/types"
)

// Verify checks the structural invariants of the function: node names are
// unique (guaranteed by construction), every node input resolves to a node of
// the same function or to a placeholder of the parent module, every Save node
// has an output placeholder, and the graph has no cycles.
func (f *Function) Verify() error {
	if f.parent == nil {
		return errors.Errorf("function %q was erased from its module", f.name)
	}
	for _, n := range f.nodeList {
		for _, in := range n.inputs {
			switch in := in.(type) {
			case *Node:
				if f.nodes[in.name] != in {
					return errors.Errorf("function %q: node %q reads node %q which is not in the function",
						f.name, n.name, in.name)
				}
			case *Placeholder:
				if f.parent.placeholders[in.name] != in {
					return errors.Errorf("function %q: node %q reads placeholder %q which is not in the module",
						f.name, n.name, in.name)
				}
			default:
				return errors.Errorf("function %q: node %q has an input of unknown operand type", f.name, n.name)
			}
		}
		if n.kind == KindSave && n.savedTo == nil {
			return errors.Errorf("function %q: Save node %q has no output placeholder", f.name, n.name)
		}
	}
	if _, err := f.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// TopologicalOrder returns the function's nodes ordered so that every node
// appears after all its node inputs, or an error if the graph has a cycle.
func (f *Function) TopologicalOrder() ([]*Node, error) {
	order := make([]*Node, 0, len(f.nodeList))
	done := types.MakeSet[*Node](len(f.nodeList))
	visiting := types.MakeSet[*Node]()

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if done.Has(n) {
			return nil
		}
		if visiting.Has(n) {
			return errors.Errorf("function %q: cycle detected through node %q", f.name, n.name)
		}
		visiting.Insert(n)
		for _, in := range n.InputNodes() {
			if err := visit(in); err != nil {
				return err
			}
		}
		visiting.Delete(n)
		done.Insert(n)
		order = append(order, n)
		return nil
	}

	for _, n := range f.nodeList {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}
