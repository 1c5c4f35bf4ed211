// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package executor

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
)

// recordingDevice implements backends.DeviceManager, recording run order.
type recordingDevice struct {
	id uint64

	mu   sync.Mutex
	runs []string
	fail types.Set[string]
}

func (d *recordingDevice) DeviceID() uint64         { return d.id }
func (d *recordingDevice) BackendName() string      { return "CPU" }
func (d *recordingDevice) AvailableMemory() uint64  { return 1 << 30 }
func (d *recordingDevice) UsedMemory() uint64       { return 0 }
func (d *recordingDevice) MaximumMemory() uint64    { return 1 << 30 }
func (d *recordingDevice) Stop() error              { return nil }
func (d *recordingDevice) UnloadFunction(string) error { return nil }

func (d *recordingDevice) LoadFunction(string, backends.CompiledFunction) error { return nil }

func (d *recordingDevice) RunFunction(name string, _ *graph.Bindings) error {
	d.mu.Lock()
	d.runs = append(d.runs, name)
	failed := d.fail.Has(name)
	d.mu.Unlock()
	if failed {
		return errors.Errorf("device failure running %q", name)
	}
	return nil
}

func (d *recordingDevice) ranNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.runs...)
}

// buildDiamondDAG returns root -> a -> {b, c} -> d, all provisioned on
// device 0.
func buildDiamondDAG() (*runtime.DAGNode, map[string]*runtime.DAGNode) {
	mk := func(name string) *runtime.DAGNode {
		return &runtime.DAGNode{Name: name, BackendName: "CPU", DeviceIDs: []runtime.DeviceID{0}}
	}
	root := &runtime.DAGNode{Name: "net"}
	a, b, c, d := mk("a"), mk("b"), mk("c"), mk("d")
	link := func(parent, child *runtime.DAGNode) {
		parent.Children = append(parent.Children, child)
		child.Parents = append(child.Parents, parent)
	}
	link(root, a)
	link(a, b)
	link(a, c)
	link(b, d)
	link(c, d)
	return root, map[string]*runtime.DAGNode{"a": a, "b": b, "c": c, "d": d}
}

func TestRunRespectsDependencies(t *testing.T) {
	device := &recordingDevice{}
	e := New(map[runtime.DeviceID]backends.DeviceManager{0: device}, 4)
	root, _ := buildDiamondDAG()

	err := e.RunBlocking(1, root, runtime.NewExecutionContext(nil))
	require.NoError(t, err)

	runs := device.ranNames()
	require.Len(t, runs, 4, "each sub-function runs exactly once")
	pos := map[string]int{}
	for i, name := range runs {
		pos[name] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["a"], pos["c"])
	assert.Less(t, pos["b"], pos["d"])
	assert.Less(t, pos["c"], pos["d"])
}

func TestRunPropagatesFailure(t *testing.T) {
	device := &recordingDevice{fail: types.SetWith("b")}
	e := New(map[runtime.DeviceID]backends.DeviceManager{0: device}, 1)
	root, _ := buildDiamondDAG()

	err := e.RunBlocking(2, root, runtime.NewExecutionContext(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `running "b"`)

	for _, name := range device.ranNames() {
		assert.NotEqual(t, "d", name, "descendants of a failure are skipped")
	}
}

func TestRoundRobinAcrossReplicas(t *testing.T) {
	d0 := &recordingDevice{id: 0}
	d1 := &recordingDevice{id: 1}
	e := New(map[runtime.DeviceID]backends.DeviceManager{0: d0, 1: d1}, 2)

	node := &runtime.DAGNode{Name: "replicated", BackendName: "CPU",
		DeviceIDs: []runtime.DeviceID{0, 1}}
	root := &runtime.DAGNode{Name: "net"}
	root.Children = []*runtime.DAGNode{node}
	node.Parents = []*runtime.DAGNode{root}

	for i := 0; i < 4; i++ {
		require.NoError(t, e.RunBlocking(runtime.RunIdentifier(i), root, runtime.NewExecutionContext(nil)))
	}
	assert.Len(t, d0.ranNames(), 2, "runs alternate between replicas")
	assert.Len(t, d1.ranNames(), 2)
}

func TestRunUnprovisionedNode(t *testing.T) {
	e := New(map[runtime.DeviceID]backends.DeviceManager{}, 1)
	node := &runtime.DAGNode{Name: "ghost"}
	root := &runtime.DAGNode{Name: "net", Children: []*runtime.DAGNode{node}}
	node.Parents = []*runtime.DAGNode{root}

	err := e.RunBlocking(3, root, runtime.NewExecutionContext(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not provisioned")
}
