// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package provisioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/backends/interpreter"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types/shapes"
)

// buildModule returns a module with one tiny function per name.
func buildModule(t *testing.T, names ...string) *graph.Module {
	t.Helper()
	m := graph.NewModule("net")
	for _, name := range names {
		f := m.CreateFunction(name)
		in := m.CreatePlaceholder("in_"+name, shapes.Make(shapes.Float32, 8))
		out := m.CreatePlaceholder("out_"+name, shapes.Make(shapes.Float32, 8))
		f.Save(f.Relu(in), out)
	}
	return m
}

func interpreterDevices(t *testing.T, count int, memory uint64) map[runtime.DeviceID]backends.DeviceManager {
	t.Helper()
	backend := interpreter.New()
	devices := make(map[runtime.DeviceID]backends.DeviceManager, count)
	for i := 0; i < count; i++ {
		dm, err := backend.NewDeviceManager(uint64(i), memory)
		require.NoError(t, err)
		devices[runtime.DeviceID(i)] = dm
	}
	return devices
}

func dagFor(m *graph.Module, fnName string, logical ...runtime.DeviceID) runtime.DAG {
	node := &runtime.DAGNode{
		Name:           fnName,
		BackendName:    backends.ProfilingBackendName,
		LogicalDevices: logical,
		Module:         m,
	}
	root := &runtime.DAGNode{Name: fnName, Module: m, Children: []*runtime.DAGNode{node}}
	node.Parents = []*runtime.DAGNode{root}
	return runtime.DAG{Root: root, Nodes: []*runtime.DAGNode{node}}
}

func TestProvisionAndEvict(t *testing.T) {
	m := buildModule(t, "main")
	registry := backends.NewRegistry(interpreter.New())
	devices := interpreterDevices(t, 1, 1<<20)
	p := New(registry, devices)

	dag := dagFor(m, "main", 0)
	require.NoError(t, p.Provision(runtime.DAGList{dag}))
	assert.NotNil(t, dag.Nodes[0].Compiled)
	assert.Equal(t, []runtime.DeviceID{0}, dag.Nodes[0].DeviceIDs)
	assert.Greater(t, devices[0].UsedMemory(), uint64(0))

	require.NoError(t, p.Evict("main"))
	assert.Equal(t, uint64(0), devices[0].UsedMemory())

	assert.Error(t, p.Evict("main"), "double evict")
}

func TestProvisionReplicas(t *testing.T) {
	m := buildModule(t, "main")
	registry := backends.NewRegistry(interpreter.New())
	devices := interpreterDevices(t, 4, 1<<20)
	p := New(registry, devices)

	// Saturated node: four logical devices over four physical ones.
	dag := dagFor(m, "main", 0, 1, 2, 3)
	require.NoError(t, p.Provision(runtime.DAGList{dag}))
	assert.ElementsMatch(t, []runtime.DeviceID{0, 1, 2, 3}, dag.Nodes[0].DeviceIDs)
	for _, dm := range devices {
		assert.Greater(t, dm.UsedMemory(), uint64(0), "every replica is loaded")
	}
	require.NoError(t, p.Evict("main"))
}

func TestProvisionRollsBackOnFailure(t *testing.T) {
	m := buildModule(t, "main")
	registry := backends.NewRegistry(interpreter.New())
	// Device 0 fits the function; device 1 is too small, so loading the
	// second replica fails and the first is rolled back.
	backend := interpreter.New()
	big, err := backend.NewDeviceManager(0, 1<<20)
	require.NoError(t, err)
	tiny, err := backend.NewDeviceManager(1, 8)
	require.NoError(t, err)
	devices := map[runtime.DeviceID]backends.DeviceManager{0: big, 1: tiny}
	p := New(registry, devices)

	dag := dagFor(m, "main", 0, 1)
	require.Error(t, p.Provision(runtime.DAGList{dag}))
	assert.Equal(t, uint64(0), big.UsedMemory(), "partial load was rolled back")
	assert.Equal(t, uint64(0), tiny.UsedMemory())
}

func TestProvisionTooManyLogicalDevices(t *testing.T) {
	m := buildModule(t, "main")
	registry := backends.NewRegistry(interpreter.New())
	p := New(registry, interpreterDevices(t, 1, 1<<20))

	dag := dagFor(m, "main", 0, 1)
	err := p.Provision(runtime.DAGList{dag})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 2 devices")
}
