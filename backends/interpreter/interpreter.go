// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package interpreter implements the reference backend, named "Interpreter":
// it accepts every operator kind, making it the target of quantization
// profiling runs, and evaluates sub-functions on host tensors. It is the
// slow-but-always-available fallback the rest of the stack is tested
// against.
package interpreter

import (
	"math"

	"github.com/pkg/errors"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/types/tensor"
)

// Backend implements backends.Backend. It is stateless and safe to share.
type Backend struct{}

// New returns the interpreter backend.
func New() *Backend { return &Backend{} }

// Name implements backends.Backend.
func (b *Backend) Name() string { return backends.ProfilingBackendName }

// IsOpSupported implements backends.Backend: the interpreter accepts every
// kind (execution of an unimplemented kind fails at run time).
func (b *Backend) IsOpSupported(n *graph.Node) bool { return true }

// ShouldLower implements backends.Backend: the interpreter executes nodes
// directly.
func (b *Backend) ShouldLower(n *graph.Node) bool { return false }

// Compile implements backends.Backend. The artifact is the function itself
// plus its resident-size accounting; evaluation happens at run time.
func (b *Backend) Compile(f *graph.Function) (backends.CompiledFunction, error) {
	if err := f.Verify(); err != nil {
		return nil, err
	}
	return &compiledFunction{fn: f, memSize: residentSize(f)}, nil
}

// NewDeviceManager implements backends.Backend.
func (b *Backend) NewDeviceManager(deviceID uint64, memoryBytes uint64) (backends.DeviceManager, error) {
	return newDeviceManager(deviceID, memoryBytes), nil
}

// residentSize estimates the bytes the function occupies while loaded:
// constants plus every value flowing through the graph.
func residentSize(f *graph.Function) uint64 {
	var total uint64
	seenConst := make(map[*graph.Placeholder]bool)
	for _, n := range f.Nodes() {
		for _, in := range n.Inputs() {
			if ph, ok := in.(*graph.Placeholder); ok && ph.Static() && !seenConst[ph] {
				seenConst[ph] = true
				total += ph.SizeInBytes()
			}
		}
		total += uint64(n.Shape().Memory())
	}
	return total
}

type compiledFunction struct {
	fn      *graph.Function
	memSize uint64
}

func (c *compiledFunction) Function() *graph.Function { return c.fn }
func (c *compiledFunction) MemSize() uint64           { return c.memSize }

// evaluate runs the function on host tensors, writing Save outputs into the
// bindings.
func evaluate(f *graph.Function, bindings *graph.Bindings) error {
	order, err := f.TopologicalOrder()
	if err != nil {
		return err
	}
	values := make(map[*graph.Node]*tensor.Tensor, len(order))
	operand := func(op graph.Operand) (*tensor.Tensor, error) {
		switch op := op.(type) {
		case *graph.Node:
			return values[op], nil
		case *graph.Placeholder:
			if v := bindings.Get(op); v != nil {
				return v, nil
			}
			return nil, errors.Errorf("placeholder %q has no binding", op.Name())
		}
		return nil, errors.New("unknown operand type")
	}

	for _, n := range order {
		ins := make([]*tensor.Tensor, len(n.Inputs()))
		for i, in := range n.Inputs() {
			if ins[i], err = operand(in); err != nil {
				return errors.WithMessagef(err, "evaluating %q", n.Name())
			}
		}
		out, err := evalNode(n, ins)
		if err != nil {
			return err
		}
		if n.Kind() == graph.KindSave {
			dst := bindings.Allocate(n.SavedTo())
			copy(dst.Bytes(), ins[0].Bytes())
			continue
		}
		values[n] = out
	}
	return nil
}

func evalNode(n *graph.Node, ins []*tensor.Tensor) (*tensor.Tensor, error) {
	switch n.Kind() {
	case graph.KindSave:
		return nil, nil
	case graph.KindAdd:
		return elementwise2(n, ins, func(a, b float64) float64 { return a + b }), nil
	case graph.KindSub:
		return elementwise2(n, ins, func(a, b float64) float64 { return a - b }), nil
	case graph.KindMul:
		return elementwise2(n, ins, func(a, b float64) float64 { return a * b }), nil
	case graph.KindDiv:
		return elementwise2(n, ins, func(a, b float64) float64 { return a / b }), nil
	case graph.KindRelu:
		return elementwise1(n, ins, func(a float64) float64 { return math.Max(a, 0) }), nil
	case graph.KindSigmoid:
		return elementwise1(n, ins, func(a float64) float64 { return 1 / (1 + math.Exp(-a)) }), nil
	case graph.KindTanh:
		return elementwise1(n, ins, math.Tanh), nil
	case graph.KindReshape:
		out := tensor.New(n.Shape())
		copy(out.Bytes(), ins[0].Bytes())
		return out, nil
	case graph.KindMatMul:
		return matMul(n, ins[0], ins[1]), nil
	case graph.KindFullyConnected:
		out := matMul(n, ins[0], ins[1])
		cols := n.Shape().Dim(1)
		for i := 0; i < out.Size(); i++ {
			out.SetFloatAt(i, out.FloatAt(i)+ins[2].FloatAt(i%cols))
		}
		return out, nil
	case graph.KindSparseGather:
		return sparseGather(n, ins[0], ins[1])
	default:
		return nil, errors.Errorf("interpreter cannot evaluate %s node %q", n.Kind(), n.Name())
	}
}

func elementwise1(n *graph.Node, ins []*tensor.Tensor, op func(float64) float64) *tensor.Tensor {
	out := tensor.New(n.Shape())
	for i := 0; i < out.Size(); i++ {
		out.SetFloatAt(i, op(ins[0].FloatAt(i)))
	}
	return out
}

func elementwise2(n *graph.Node, ins []*tensor.Tensor, op func(a, b float64) float64) *tensor.Tensor {
	out := tensor.New(n.Shape())
	for i := 0; i < out.Size(); i++ {
		out.SetFloatAt(i, op(ins[0].FloatAt(i), ins[1].FloatAt(i)))
	}
	return out
}

func matMul(n *graph.Node, lhs, rhs *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(n.Shape())
	rows, cols := n.Shape().Dim(0), n.Shape().Dim(1)
	inner := lhs.Shape().Dim(1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var acc float64
			for k := 0; k < inner; k++ {
				acc += lhs.FloatAt(r*inner+k) * rhs.FloatAt(k*cols+c)
			}
			out.SetFloatAt(r*cols+c, acc)
		}
	}
	return out
}

func sparseGather(n *graph.Node, data, indices *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(n.Shape())
	rowElems := 1
	for _, d := range data.Shape().Dimensions[1:] {
		rowElems *= d
	}
	rowBytes := rowElems * int(data.Shape().DType.Memory())
	idx := indices.Int64Data()
	for i, row := range idx {
		if row < 0 || int(row) >= data.Shape().Dim(0) {
			return nil, errors.Errorf("gather index %d out of range [0, %d)", row, data.Shape().Dim(0))
		}
		copy(out.Bytes()[i*rowBytes:(i+1)*rowBytes], data.Bytes()[int(row)*rowBytes:(int(row)+1)*rowBytes])
	}
	return out, nil
}
