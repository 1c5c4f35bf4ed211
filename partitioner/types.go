// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
)

// NodesSet is a set of graph nodes.
type NodesSet = types.Set[*graph.Node]

// BackendInfo aggregates the device descriptors of one backend kind: the
// partitioner assumes devices of the same backend are interchangeable.
type BackendInfo struct {
	// Num is the number of physical devices with this backend.
	Num int

	// MemSize is the available memory of one device, in bytes.
	MemSize uint64

	// SRAMCapacity in bytes.
	SRAMCapacity uint64

	// Rooflines, see runtime.DeviceInfo.
	PeakCompute float64
	PeakDRAMBw  float64
	PeakSRAMBw  float64

	// NonSupportedNodeKinds are kinds this backend never accepts.
	NonSupportedNodeKinds types.Set[graph.Kind]

	// SupportedNodeKinds restricts the backend to the listed kinds when
	// non-empty.
	SupportedNodeKinds types.Set[graph.Kind]

	// Backend oracle for the final is-supported check.
	Backend backends.Backend
}

// AcceptsKind applies the first two steps of the backend acceptance rule: the
// kind is not in the non-supported set, and either the supported set is empty
// or the kind is listed.
func (bi *BackendInfo) AcceptsKind(kind graph.Kind) bool {
	if bi.NonSupportedNodeKinds.Has(kind) {
		return false
	}
	return len(bi.SupportedNodeKinds) == 0 || bi.SupportedNodeKinds.Has(kind)
}

// Accepts applies the full three-step acceptance rule for a node: the kind
// checks above, then the backend oracle (a node the backend would lower, or
// one it supports directly, is placeable).
func (bi *BackendInfo) Accepts(n *graph.Node) bool {
	if !bi.AcceptsKind(n.Kind()) {
		return false
	}
	return bi.Backend.ShouldLower(n) || bi.Backend.IsOpSupported(n)
}

// NodeToFunctionMap is the partition mapping being built: which sub-function
// each node is assigned to, plus per-sub-function metadata (backend, memory
// info, logical devices). Partitions keep their creation order, which the
// memory-bounded strategy relies on: partition k only feeds partitions > k.
type NodeToFunctionMap struct {
	nodeToFunc map[*graph.Node]*graph.Function

	partitions []*graph.Function

	backendName    map[*graph.Function]string
	memInfo        map[*graph.Function]GraphMemInfo
	logicalDevices map[*graph.Function][]runtime.DeviceID
}

// NewNodeToFunctionMap returns an empty mapping.
func NewNodeToFunctionMap() *NodeToFunctionMap {
	return &NodeToFunctionMap{
		nodeToFunc:     make(map[*graph.Node]*graph.Function),
		backendName:    make(map[*graph.Function]string),
		memInfo:        make(map[*graph.Function]GraphMemInfo),
		logicalDevices: make(map[*graph.Function][]runtime.DeviceID),
	}
}

// CreatePartition registers f as a partition targeting the backend.
func (m *NodeToFunctionMap) CreatePartition(f *graph.Function, backendName string) {
	m.partitions = append(m.partitions, f)
	m.backendName[f] = backendName
}

// RemovePartition drops the partition and any node assignments to it.
func (m *NodeToFunctionMap) RemovePartition(f *graph.Function) {
	for i, p := range m.partitions {
		if p == f {
			m.partitions = append(m.partitions[:i], m.partitions[i+1:]...)
			break
		}
	}
	delete(m.backendName, f)
	delete(m.memInfo, f)
	delete(m.logicalDevices, f)
	for n, p := range m.nodeToFunc {
		if p == f {
			delete(m.nodeToFunc, n)
		}
	}
}

// Add assigns the node to the partition.
func (m *NodeToFunctionMap) Add(n *graph.Node, f *graph.Function) {
	m.nodeToFunc[n] = f
}

// Get returns the partition the node is assigned to, or nil.
func (m *NodeToFunctionMap) Get(n *graph.Node) *graph.Function {
	return m.nodeToFunc[n]
}

// Partitions returns the partitions in creation order.
func (m *NodeToFunctionMap) Partitions() []*graph.Function {
	return m.partitions
}

// BackendName the partition targets.
func (m *NodeToFunctionMap) BackendName(f *graph.Function) string {
	return m.backendName[f]
}

// SetGraphMemInfo records the working-set accounting for the partition.
func (m *NodeToFunctionMap) SetGraphMemInfo(f *graph.Function, info GraphMemInfo) {
	m.memInfo[f] = info
}

// GraphMemInfo returns the recorded working-set accounting.
func (m *NodeToFunctionMap) GraphMemInfo(f *graph.Function) GraphMemInfo {
	return m.memInfo[f]
}

// AppendLogicalDeviceID appends a logical device to the partition.
func (m *NodeToFunctionMap) AppendLogicalDeviceID(f *graph.Function, id runtime.DeviceID) {
	m.logicalDevices[f] = append(m.logicalDevices[f], id)
}

// LogicalDeviceIDs assigned to the partition.
func (m *NodeToFunctionMap) LogicalDeviceIDs(f *graph.Function) []runtime.DeviceID {
	return m.logicalDevices[f]
}

// Insert merges the other mapping into m. Partition sets must be disjoint.
func (m *NodeToFunctionMap) Insert(other *NodeToFunctionMap) {
	for _, f := range other.partitions {
		m.CreatePartition(f, other.backendName[f])
		if info, found := other.memInfo[f]; found {
			m.memInfo[f] = info
		}
		if ids, found := other.logicalDevices[f]; found {
			m.logicalDevices[f] = ids
		}
	}
	for n, f := range other.nodeToFunc {
		m.nodeToFunc[n] = f
	}
}

// NodesByFunction groups the assigned nodes by partition.
func (m *NodeToFunctionMap) NodesByFunction() map[*graph.Function]NodesSet {
	res := make(map[*graph.Function]NodesSet, len(m.partitions))
	for _, f := range m.partitions {
		res[f] = types.MakeSet[*graph.Node]()
	}
	for n, f := range m.nodeToFunc {
		res[f].Insert(n)
	}
	return res
}

// Nodes returns the nodes assigned to the partition, in unspecified order.
// Deterministic consumers should walk the source function's topological
// order instead.
func (m *NodeToFunctionMap) Nodes(f *graph.Function) []*graph.Node {
	var nodes []*graph.Node
	for n, p := range m.nodeToFunc {
		if p == f {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// FunctionToBackendNameMap records which backend each backend-split
// sub-function targets, preserving insertion order for deterministic
// iteration.
type FunctionToBackendNameMap struct {
	order    []*graph.Function
	backends map[*graph.Function]string
}

// NewFunctionToBackendNameMap returns an empty map.
func NewFunctionToBackendNameMap() *FunctionToBackendNameMap {
	return &FunctionToBackendNameMap{backends: make(map[*graph.Function]string)}
}

// Set records the backend for the function.
func (m *FunctionToBackendNameMap) Set(f *graph.Function, backendName string) {
	if _, found := m.backends[f]; !found {
		m.order = append(m.order, f)
	}
	m.backends[f] = backendName
}

// Functions in insertion order.
func (m *FunctionToBackendNameMap) Functions() []*graph.Function { return m.order }

// BackendName for the function.
func (m *FunctionToBackendNameMap) BackendName(f *graph.Function) string { return m.backends[f] }
