// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/types/shapes"
	"github.com/heliosml/helios/types/tensor"
)

func TestCompileAndRun(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 2, 2))
	w := m.CreateConstant("w", tensor.FromFlatFloat32([]float32{1, 0, 0, 1}, 2, 2))
	mm := f.MatMul(in, w)
	relu := f.Relu(mm)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 2, 2))
	f.Save(relu, out)

	backend := New()
	compiled, err := backend.Compile(f)
	require.NoError(t, err)
	assert.Greater(t, compiled.MemSize(), uint64(0))

	dm, err := backend.NewDeviceManager(0, 1<<20)
	require.NoError(t, err)
	require.NoError(t, dm.LoadFunction("main", compiled))

	bindings := graph.NewBindings()
	require.NoError(t, bindings.Insert(in, tensor.FromFlatFloat32([]float32{1, -2, 3, -4}, 2, 2)))
	require.NoError(t, dm.RunFunction("main", bindings))

	// Identity matmul then relu: negatives clamp to zero.
	result := bindings.Get(out)
	require.NotNil(t, result)
	assert.Equal(t, []float32{1, 0, 3, 0}, result.Float32Data())
}

func TestSparseGatherEval(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	table := m.CreateConstant("table",
		tensor.FromFlatFloat32([]float32{0, 0, 1, 1, 2, 2}, 3, 2))
	indices := m.CreatePlaceholder("indices", shapes.Make(shapes.Int64, 2))
	gather := f.SparseGather(table, indices)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 2, 2))
	f.Save(gather, out)

	idx := tensor.New(shapes.Make(shapes.Int64, 2))
	idx.Int64Data()[0] = 2
	idx.Int64Data()[1] = 0
	bindings := graph.NewBindings()
	require.NoError(t, bindings.Insert(indices, idx))
	require.NoError(t, evaluate(f, bindings))
	assert.Equal(t, []float32{2, 2, 0, 0}, bindings.Get(out).Float32Data())
}

func TestDeviceMemoryAccounting(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 1024))
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 1024))
	f.Save(f.Relu(in), out)

	backend := New()
	compiled, err := backend.Compile(f)
	require.NoError(t, err)

	dm, err := backend.NewDeviceManager(0, compiled.MemSize()-1)
	require.NoError(t, err)
	err = dm.LoadFunction("main", compiled)
	require.Error(t, err, "function larger than device memory")
	assert.Contains(t, err.Error(), "out of memory")

	dm2, err := backend.NewDeviceManager(1, 1<<20)
	require.NoError(t, err)
	require.NoError(t, dm2.LoadFunction("main", compiled))
	assert.Equal(t, compiled.MemSize(), dm2.UsedMemory())
	assert.Equal(t, uint64(1<<20)-compiled.MemSize(), dm2.AvailableMemory())
	require.Error(t, dm2.LoadFunction("main", compiled), "duplicate load")
	require.NoError(t, dm2.UnloadFunction("main"))
	assert.Equal(t, uint64(0), dm2.UsedMemory())
}

func TestMissingBinding(t *testing.T) {
	m := graph.NewModule("net")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 4))
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 4))
	f.Save(f.Relu(in), out)

	err := evaluate(f, graph.NewBindings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no binding")
}

func TestStop(t *testing.T) {
	backend := New()
	dm, err := backend.NewDeviceManager(0, 1<<20)
	require.NoError(t, err)
	require.NoError(t, dm.Stop())
	assert.Error(t, dm.RunFunction("anything", graph.NewBindings()))
}
