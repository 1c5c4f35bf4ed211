// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
)

// memoryUsageValidation checks that every partition's working set fits the
// memory of one device of its target backend.
func memoryUsageValidation(mapping *NodeToFunctionMap, backendMap map[string]*BackendInfo) error {
	for _, part := range mapping.Partitions() {
		backendName := mapping.BackendName(part)
		info, found := backendMap[backendName]
		if !found {
			return errors.Errorf("partition %q targets unknown backend %q", part.Name(), backendName)
		}
		used := mapping.GraphMemInfo(part).TotalMemSize()
		if used > info.MemSize {
			return errors.Errorf(
				"partition %q does not fit backend %q memory: requires %s, device has %s",
				part.Name(), backendName, humanize.IBytes(used), humanize.IBytes(info.MemSize))
		}
	}
	return nil
}

// logicalDevicesValidation checks that, per backend, the number of distinct
// logical devices used does not exceed the number of physical devices of
// that backend.
func logicalDevicesValidation(mapping *NodeToFunctionMap, backendMap map[string]*BackendInfo) error {
	perBackend := make(map[string]types.Set[runtime.DeviceID])
	for _, part := range mapping.Partitions() {
		backendName := mapping.BackendName(part)
		used, found := perBackend[backendName]
		if !found {
			used = types.MakeSet[runtime.DeviceID]()
			perBackend[backendName] = used
		}
		for _, id := range mapping.LogicalDeviceIDs(part) {
			used.Insert(id)
		}
	}
	for backendName, used := range perBackend {
		info, found := backendMap[backendName]
		if !found {
			return errors.Errorf("unknown backend %q", backendName)
		}
		if len(used) > info.Num {
			return errors.Errorf(
				"backend %q: %d logical devices needed but only %d physical devices available",
				backendName, len(used), info.Num)
		}
	}
	return nil
}

// dagValidation checks the generated DAG: a single parentless root, every
// sub-function reachable from it, mutually consistent parent/child edges,
// and no cycles.
func dagValidation(dag runtime.DAG) error {
	if dag.Root == nil {
		return errors.New("DAG has no root")
	}
	if len(dag.Root.Parents) != 0 {
		return errors.Errorf("DAG root %q has parents", dag.Root.Name)
	}

	known := types.SetWith(dag.Root)
	for _, n := range dag.Nodes {
		known.Insert(n)
	}
	for _, n := range append([]*runtime.DAGNode{dag.Root}, dag.Nodes...) {
		for _, child := range n.Children {
			if !known.Has(child) {
				return errors.Errorf("DAG node %q has child %q outside the DAG", n.Name, child.Name)
			}
			if !containsDAGNode(child.Parents, n) {
				return errors.Errorf("DAG edge %q -> %q is not mirrored in the child's parents",
					n.Name, child.Name)
			}
		}
		for _, parent := range n.Parents {
			if !containsDAGNode(parent.Children, n) {
				return errors.Errorf("DAG edge %q -> %q is not mirrored in the parent's children",
					parent.Name, n.Name)
			}
		}
	}

	// Kahn's toposort doubles as reachability and cycle detection.
	indegree := make(map[*runtime.DAGNode]int, len(dag.Nodes)+1)
	for _, n := range dag.Nodes {
		indegree[n] = len(n.Parents)
	}
	queue := []*runtime.DAGNode{dag.Root}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, child := range n.Children {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	if visited != len(dag.Nodes)+1 {
		return errors.Errorf("DAG %q has a cycle or unreachable sub-functions (%d of %d visited)",
			dag.Root.Name, visited, len(dag.Nodes)+1)
	}
	return nil
}

func containsDAGNode(list []*runtime.DAGNode, n *runtime.DAGNode) bool {
	for _, other := range list {
		if other == n {
			return true
		}
	}
	return false
}
