// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/types/shapes"
)

// buildDiamond returns a function with a diamond between input and save:
//
//	in -> relu -> {sigmoid, tanh} -> add -> save
func buildDiamond(t *testing.T) (*graph.Module, *graph.Function) {
	t.Helper()
	m := graph.NewModule("test")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 4))
	relu := f.Relu(in)
	left := f.Sigmoid(relu)
	right := f.Tanh(relu)
	add := f.Add(left, right)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 4))
	f.Save(add, out)
	require.NoError(t, f.Verify())
	return m, f
}

func TestGetBFSLevel(t *testing.T) {
	_, f := buildDiamond(t)
	bfs := getBFSLevel(f)
	require.Len(t, bfs, 4)

	kindsAt := func(level int) []graph.Kind {
		var kinds []graph.Kind
		for _, n := range bfs[level] {
			kinds = append(kinds, n.Kind())
		}
		return kinds
	}
	assert.Equal(t, []graph.Kind{graph.KindSave}, kindsAt(0))
	assert.Equal(t, []graph.Kind{graph.KindAdd}, kindsAt(1))
	assert.ElementsMatch(t, []graph.Kind{graph.KindSigmoid, graph.KindTanh}, kindsAt(2))
	assert.Equal(t, []graph.Kind{graph.KindRelu}, kindsAt(3))

	// Every node appears exactly once.
	total := 0
	for _, level := range bfs {
		total += len(level)
	}
	assert.Equal(t, f.NumNodes(), total)
}

func TestGetBFSLevelMaxDepth(t *testing.T) {
	// A node feeding both a short and a long path to the sink must sit at
	// the maximum depth at which it is reachable.
	m := graph.NewModule("test")
	f := m.CreateFunction("main")
	in := m.CreatePlaceholder("in", shapes.Make(shapes.Float32, 4))
	shared := f.Relu(in)       // feeds add directly AND through two hops
	hop1 := f.Sigmoid(shared)
	hop2 := f.Tanh(hop1)
	add := f.Add(shared, hop2)
	out := m.CreatePlaceholder("out", shapes.Make(shapes.Float32, 4))
	f.Save(add, out)

	bfs := getBFSLevel(f)
	require.Len(t, bfs, 5)
	depthOf := func(target *graph.Node) int {
		for d, level := range bfs {
			for _, n := range level {
				if n == target {
					return d
				}
			}
		}
		return -1
	}
	assert.Equal(t, 4, depthOf(shared), "shared node takes the longest path depth")
	assert.Equal(t, 3, depthOf(hop1))
	assert.Equal(t, 1, depthOf(add))
}
