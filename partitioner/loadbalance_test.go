// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/compile"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types/shapes"
)

// buildChain returns a function that is a chain of n Relu nodes ending in a
// Save. Each Relu has shape [1024] float32, so with PeakCompute = 1024 every
// Relu costs exactly 1.0 roofline time units.
func buildChain(t *testing.T, n int) (*graph.Module, []*graph.Node) {
	t.Helper()
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	shape := shapes.Make(shapes.Float32, 1024)
	var cur graph.Operand = m.CreatePlaceholder("in", shape)
	relus := make([]*graph.Node, 0, n)
	for i := 0; i < n; i++ {
		node := f.Relu(cur)
		relus = append(relus, node)
		cur = node
	}
	out := m.CreatePlaceholder("out", shape)
	f.Save(cur, out)
	require.NoError(t, f.Verify())
	return m, relus
}

func loadBalanceDevices(n int) []runtime.DeviceInfo {
	devices := make([]runtime.DeviceInfo, n)
	for i := range devices {
		devices[i] = runtime.DeviceInfo{
			BackendName:     "CPU",
			AvailableMemory: 1 << 30,
			PeakCompute:     1024, // One cost unit per Relu of 1024 elements.
			PeakDRAMBw:      1e15, // Memory time is negligible.
		}
	}
	return devices
}

// TestLoadBalancedPartition: 8 unit-cost nodes over 4 devices land 2 per
// partition (give or take the imbalance slack).
func TestLoadBalancedPartition(t *testing.T) {
	m, relus := buildChain(t, 8)
	p := New(m, loadBalanceDevices(4), testRegistry("CPU"), Options{EnableLoadBalance: true})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	require.Len(t, dagList, 1)
	dag := dagList[0]
	require.NoError(t, dagValidation(dag))

	require.Len(t, dag.Nodes, 4)
	for _, dn := range dag.Nodes {
		subF := m.Function(dn.Name)
		require.NotNil(t, subF)
		reluCount := 0
		for _, n := range subF.Nodes() {
			if n.Kind() == graph.KindRelu {
				reluCount++
			}
		}
		assert.InDelta(t, 2, reluCount, 1, "partition %q relu count", dn.Name)
	}

	// Every source relu appears exactly once across the partitions.
	seen := map[string]int{}
	for _, dn := range dag.Nodes {
		for _, n := range m.Function(dn.Name).Nodes() {
			seen[n.Name()]++
		}
	}
	for _, r := range relus {
		assert.Equal(t, 1, seen[r.Name()])
	}
}

// TestLoadBalancedEdgeDirection: for every cross-partition edge u -> v, the
// partition id of u never exceeds that of v -- acyclicity by construction.
func TestLoadBalancedEdgeDirection(t *testing.T) {
	m, _ := buildChain(t, 12)
	p := New(m, loadBalanceDevices(3), testRegistry("CPU"), Options{EnableLoadBalance: true})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	dag := dagList[0]

	idOf := make(map[*runtime.DAGNode]runtime.DeviceID)
	for _, dn := range dag.Nodes {
		require.NotEmpty(t, dn.LogicalDevices)
		idOf[dn] = dn.LogicalDevices[0]
	}
	for _, dn := range dag.Nodes {
		for _, child := range dn.Children {
			assert.LessOrEqual(t, idOf[dn], idOf[child],
				"edge %q -> %q goes backwards", dn.Name, child.Name)
		}
	}
}

// TestLoadBalanceMemoryExhaustion: when the per-partition memory bookkeeping
// cannot host another node and no later partition exists, the strategy fails
// with the load-balance error.
func TestLoadBalanceMemoryExhaustion(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	shape := shapes.Make(shapes.Float32, 1024) // 4 KiB values
	var cur graph.Operand = m.CreatePlaceholder("in", shape)
	for i := 0; i < 4; i++ {
		cur = f.Relu(cur)
	}
	out := m.CreatePlaceholder("out", shape)
	f.Save(cur, out)

	// The single device fits one relu's working set; the second relu finds
	// no partition with memory left.
	devices := []runtime.DeviceInfo{{
		BackendName:     "CPU",
		AvailableMemory: 9 * 1024,
		PeakCompute:     1024,
		PeakDRAMBw:      1e15,
	}}
	p := New(m, devices, testRegistry("CPU"), Options{EnableLoadBalance: true})
	_, err := p.Partition(compile.New())
	require.Error(t, err)
}

// TestLoadBalanceFallsBackOnMixedBackends: mixed fleets use the
// heterogeneous flow even with the flag set.
func TestLoadBalanceFallsBackOnMixedBackends(t *testing.T) {
	m, _ := buildChain(t, 4)
	devices := []runtime.DeviceInfo{
		{BackendName: "CPU", AvailableMemory: 1 << 30},
		{BackendName: "GPU", AvailableMemory: 1 << 30},
	}
	p := New(m, devices, testRegistry("CPU", "GPU"), Options{EnableLoadBalance: true})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	require.Len(t, dagList, 1)
	require.NoError(t, dagValidation(dagList[0]))
}
