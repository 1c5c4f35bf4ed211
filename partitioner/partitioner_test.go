// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/compile"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
	"github.com/heliosml/helios/types/shapes"
)

// stubBackend accepts everything by default; kinds in reject fail the
// IsOpSupported oracle.
type stubBackend struct {
	name   string
	reject types.Set[graph.Kind]
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) IsOpSupported(n *graph.Node) bool { return !b.reject.Has(n.Kind()) }

func (b *stubBackend) ShouldLower(n *graph.Node) bool { return false }

func (b *stubBackend) Compile(f *graph.Function) (backends.CompiledFunction, error) {
	return nil, errors.New("stub backend cannot compile")
}

func (b *stubBackend) NewDeviceManager(uint64, uint64) (backends.DeviceManager, error) {
	return nil, errors.New("stub backend has no devices")
}

func testRegistry(names ...string) *backends.Registry {
	r := backends.NewRegistry()
	for _, name := range names {
		r.Register(&stubBackend{name: name})
	}
	return r
}

const mib = 1 << 20

// checkCoverage asserts that every node of the source names appears in
// exactly one sub-function referenced by the DAG, and that each sub-function
// verifies.
func checkCoverage(t *testing.T, m *graph.Module, dag runtime.DAG, sourceNodeNames []string) {
	t.Helper()
	seen := map[string]int{}
	for _, dn := range dag.Nodes {
		subF := m.Function(dn.Name)
		require.NotNil(t, subF, "sub-function %q must exist in the module", dn.Name)
		require.NoError(t, subF.Verify())
		for _, n := range subF.Nodes() {
			seen[n.Name()]++
		}
	}
	for _, name := range sourceNodeNames {
		assert.Equal(t, 1, seen[name], "source node %q must appear exactly once", name)
	}
}

func nodeNames(f *graph.Function) []string {
	names := make([]string, 0, f.NumNodes())
	for _, n := range f.Nodes() {
		names = append(names, n.Name())
	}
	return names
}

// TestTrivialFit: a small function on one big device partitions into a
// single sub-function DAG.
func TestTrivialFit(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 256*1024)) // 1 MiB
	add := f.Add(in, in)
	relu := f.Relu(add)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 256*1024))
	f.Save(relu, out)

	devices := []runtime.DeviceInfo{{BackendName: "CPU", AvailableMemory: 1 << 30}}
	p := New(m, devices, testRegistry("CPU"), Options{})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	require.Len(t, dagList, 1)

	dag := dagList[0]
	require.NotNil(t, dag.Root)
	require.Len(t, dag.Root.Children, 1)
	require.Len(t, dag.Nodes, 1)
	node := dag.Nodes[0]
	assert.Equal(t, "main", node.Name)
	assert.Equal(t, "CPU", node.BackendName)
	assert.Equal(t, []runtime.DeviceID{0}, node.LogicalDevices)
	assert.Equal(t, 3, m.Function("main").NumNodes(), "function is untouched")
}

// TestMemoryForcedSplit: ten ~120 MiB conv stages on 256 MiB devices split
// into at least five partitions, each within budget, linearised along the
// chain.
func TestMemoryForcedSplit(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	var cur graph.Operand = m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 256)) // 1 KiB
	for i := 0; i < 10; i++ {
		filter := m.CreatePlaceholder(fmt.Sprintf("filter%d", i),
			shapes.Make(shapes.Float32, 30*1024*1024)) // 120 MiB
		bias := m.CreatePlaceholder(fmt.Sprintf("bias%d", i), shapes.Make(shapes.Float32, 256))
		cur = f.Conv(cur, filter, bias, shapes.Make(shapes.Float32, 256))
	}
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 256))
	f.Save(cur, out)
	sourceNames := nodeNames(f)

	devices := []runtime.DeviceInfo{
		{BackendName: "CPU", AvailableMemory: 256 * mib},
		{BackendName: "CPU", AvailableMemory: 256 * mib},
	}
	p := New(m, devices, testRegistry("CPU"), Options{})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	require.Len(t, dagList, 1)
	dag := dagList[0]

	assert.GreaterOrEqual(t, len(dag.Nodes), 5)
	require.NoError(t, dagValidation(dag))
	checkCoverage(t, m, dag, sourceNames)
	assert.Nil(t, m.Function("main"), "source function is consumed")

	// Each sub-function's recomputed working set fits the device.
	for _, dn := range dag.Nodes {
		subF := m.Function(dn.Name)
		set := types.MakeSet[*graph.Node]()
		for _, n := range subF.Nodes() {
			set.Insert(n)
		}
		assert.LessOrEqual(t, getGraphMemInfo(set).TotalMemSize(), uint64(256*mib),
			"sub-function %q exceeds device memory", dn.Name)
	}

	// Linear chain: at most one child per node.
	for _, dn := range dag.Nodes {
		assert.LessOrEqual(t, len(dn.Children), 1)
	}
}

// TestHeterogeneousBackends: gather runs on CPU only, matmul is accepted by
// both and lands on GPU, which comes first in priority;
// nodes land on sub-functions of backends that accept them and edges follow
// dataflow.
func TestHeterogeneousBackends(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	table := m.CreatePlaceholder("table", shapes.Make(shapes.Float32, 100, 8))
	indices := m.CreatePlaceholder("indices", shapes.Make(shapes.Int64, 4))
	weights := m.CreatePlaceholder("weights", shapes.Make(shapes.Float32, 8, 3))
	gather := f.SparseGather(table, indices)
	mm := f.MatMul(gather, weights)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 4, 3))
	f.Save(mm, out)
	sourceNames := nodeNames(f)

	devices := []runtime.DeviceInfo{
		{BackendName: "GPU", AvailableMemory: 1 << 30,
			NonSupportedNodes: []graph.Kind{graph.KindSparseGather}},
		{BackendName: "CPU", AvailableMemory: 1 << 30},
	}
	p := New(m, devices, testRegistry("GPU", "CPU"), Options{})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	dag := dagList[0]

	require.GreaterOrEqual(t, len(dag.Nodes), 2)
	require.NoError(t, dagValidation(dag))
	checkCoverage(t, m, dag, sourceNames)

	for _, dn := range dag.Nodes {
		subF := m.Function(dn.Name)
		for _, n := range subF.Nodes() {
			switch n.Kind() {
			case graph.KindSparseGather:
				assert.Equal(t, "CPU", dn.BackendName, "gather must land on CPU")
			case graph.KindMatMul:
				assert.Equal(t, "GPU", dn.BackendName, "matmul must land on GPU")
			}
		}
	}

	// Dataflow: the CPU partition (producing gather's value) precedes the
	// GPU partition consuming it.
	var cpuNode, gpuNode *runtime.DAGNode
	for _, dn := range dag.Nodes {
		switch dn.BackendName {
		case "CPU":
			cpuNode = dn
		case "GPU":
			gpuNode = dn
		}
	}
	require.NotNil(t, cpuNode)
	require.NotNil(t, gpuNode)
	assert.True(t, containsDAGNode(cpuNode.Children, gpuNode), "edge must follow dataflow")
}

// TestUnsupportedNode: no backend accepts the kind.
func TestUnsupportedNode(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	relu := f.Relu(in)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 8))
	f.Save(relu, out)

	r := backends.NewRegistry()
	r.Register(&stubBackend{name: "GPU", reject: types.SetWith(graph.KindRelu, graph.KindSave)})
	devices := []runtime.DeviceInfo{
		{BackendName: "GPU", AvailableMemory: 1 << 30},
		// A second backend kind forces the backend-based split.
		{BackendName: "NPU", AvailableMemory: 1 << 30,
			NonSupportedNodes: []graph.Kind{graph.KindRelu, graph.KindSave}},
	}
	r.Register(&stubBackend{name: "NPU"})

	p := New(m, devices, r, Options{})
	_, err := p.Partition(compile.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by any of the provided backends")
}

// TestSaturateHost: one logical device, four physical devices, replicas
// fill the host.
func TestSaturateHost(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	relu := f.Relu(in)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 8))
	f.Save(relu, out)

	devices := make([]runtime.DeviceInfo, 4)
	for i := range devices {
		devices[i] = runtime.DeviceInfo{BackendName: "CPU", AvailableMemory: 1 << 30}
	}
	p := New(m, devices, testRegistry("CPU"), Options{SaturateHost: true})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	require.Len(t, dagList, 1)
	require.Len(t, dagList[0].Nodes, 1)
	assert.Equal(t, []runtime.DeviceID{0, 1, 2, 3}, dagList[0].Nodes[0].LogicalDevices)
}

// TestQuantizationProfiling: every partition is tagged with the profiling
// backend and logical ids increment in iteration order.
func TestQuantizationProfiling(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	table := m.CreatePlaceholder("table", shapes.Make(shapes.Float32, 100, 8))
	indices := m.CreatePlaceholder("indices", shapes.Make(shapes.Int64, 4))
	weights := m.CreatePlaceholder("weights", shapes.Make(shapes.Float32, 8, 3))
	mm := f.MatMul(f.SparseGather(table, indices), weights)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 4, 3))
	f.Save(mm, out)
	sourceNames := nodeNames(f)

	devices := []runtime.DeviceInfo{
		{BackendName: "GPU", AvailableMemory: 1 << 30,
			NonSupportedNodes: []graph.Kind{graph.KindSparseGather}},
		{BackendName: "CPU", AvailableMemory: 1 << 30},
	}
	cctx := compile.New()
	cctx.Precision.QuantMode = compile.QuantProfile
	cctx.Bindings = graph.NewBindings()

	p := New(m, devices, testRegistry("GPU", "CPU"), Options{})
	dagList, err := p.Partition(cctx)
	require.NoError(t, err)
	require.Len(t, dagList, 1)
	dag := dagList[0]
	require.NoError(t, dagValidation(dag))
	checkCoverage(t, m, dag, sourceNames)

	usedIDs := types.MakeSet[runtime.DeviceID]()
	for _, dn := range dag.Nodes {
		assert.Equal(t, backends.ProfilingBackendName, dn.BackendName)
		require.Len(t, dn.LogicalDevices, 1)
		usedIDs.Insert(dn.LogicalDevices[0])
	}
	assert.Len(t, usedIDs, len(dag.Nodes), "logical ids are distinct")
	assert.Nil(t, m.Function("main"), "source function is consumed")
}

// TestProfilingRequiresBindings: malformed compilation context surfaces.
func TestProfilingRequiresBindings(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 8))
	f.Save(f.Relu(in), out)

	cctx := compile.New()
	cctx.Precision.QuantMode = compile.QuantProfile
	p := New(m, []runtime.DeviceInfo{{BackendName: "CPU", AvailableMemory: 1 << 30}},
		testRegistry("CPU"), Options{})
	_, err := p.Partition(cctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bindings")
}

// TestPartitionFromConfig: mapped nodes follow the config, unmapped nodes
// flow to the single unused partition.
func TestPartitionFromConfig(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	relu := f.Relu(in)
	sig := f.Sigmoid(relu)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 8))
	save := f.Save(sig, out)
	sourceNames := nodeNames(f)

	config := &runtime.PartitionConfig{
		FuncName:        "main",
		NumOfPartitions: 2,
		BackendNames:    []string{"CPU", "CPU"},
		PartitionNames:  []string{"p0", "p1"},
		NodeToPartition: map[string]int{relu.Name(): 0},
	}
	devices := []runtime.DeviceInfo{
		{BackendName: "CPU", AvailableMemory: 1 << 30},
		{BackendName: "CPU", AvailableMemory: 1 << 30},
	}
	p := New(m, devices, testRegistry("CPU"), Options{Config: config})
	dagList, err := p.Partition(compile.New())
	require.NoError(t, err)
	dag := dagList[0]
	require.NoError(t, dagValidation(dag))
	checkCoverage(t, m, dag, sourceNames)

	p0, p1 := m.Function("p0"), m.Function("p1")
	require.NotNil(t, p0)
	require.NotNil(t, p1)
	assert.NotNil(t, p0.Node(relu.Name()))
	assert.NotNil(t, p1.Node(sig.Name()), "unmapped nodes go to the unused partition")
	assert.NotNil(t, p1.Node(save.Name()))
}

// TestPartitionFromConfigAmbiguousUnmapped: unmapped nodes with several
// empty partitions is an error.
func TestPartitionFromConfigAmbiguousUnmapped(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 8))
	f.Save(f.Relu(in), out)

	config := &runtime.PartitionConfig{
		FuncName:        "main",
		NumOfPartitions: 3,
		BackendNames:    []string{"CPU", "CPU", "CPU"},
		PartitionNames:  []string{"p0", "p1", "p2"},
		NodeToPartition: map[string]int{"relu": 0},
	}
	devices := []runtime.DeviceInfo{
		{BackendName: "CPU", AvailableMemory: 1 << 30},
		{BackendName: "CPU", AvailableMemory: 1 << 30},
		{BackendName: "CPU", AvailableMemory: 1 << 30},
	}
	p := New(m, devices, testRegistry("CPU"), Options{Config: config})
	_, err := p.Partition(compile.New())
	require.Error(t, err)
}

// TestMultiFunctionRejected: strategies other than config reject modules
// with several functions (unless the trivial-fit path applies).
func TestMultiFunctionRejected(t *testing.T) {
	m := graph.NewModule("net")
	big := shapes.Make(shapes.Float32, 64*1024*1024) // 256 MiB, forces real partitioning
	for _, name := range []string{"f1", "f2"} {
		f := m.CreateFunction(name)
		in := m.CreatePlaceholder("in_"+name, big)
		out := m.CreatePlaceholder("out_"+name, big)
		f.Save(f.Relu(in), out)
	}
	devices := []runtime.DeviceInfo{{BackendName: "CPU", AvailableMemory: 64 * mib}}
	p := New(m, devices, testRegistry("CPU"), Options{})
	_, err := p.Partition(compile.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "functions in a module")
}

// TestBackendAcceptanceRule covers the three-step check.
func TestBackendAcceptanceRule(t *testing.T) {
	backend := &stubBackend{name: "X", reject: types.SetWith(graph.KindTanh)}
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 8))
	relu := f.Relu(in)
	tanh := f.Tanh(in)
	sig := f.Sigmoid(in)

	info := &BackendInfo{
		NonSupportedNodeKinds: types.SetWith(graph.KindSigmoid),
		Backend:               backend,
	}
	assert.True(t, info.Accepts(relu), "accepted by all three steps")
	assert.False(t, info.Accepts(sig), "step 1: explicitly non-supported")
	assert.False(t, info.Accepts(tanh), "step 3: oracle rejects")

	restricted := &BackendInfo{
		SupportedNodeKinds: types.SetWith(graph.KindRelu),
		Backend:            backend,
	}
	assert.True(t, restricted.Accepts(relu))
	assert.False(t, restricted.Accepts(sig), "step 2: not in the supported set")
}
