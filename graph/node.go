// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/heliosml/helios/types/shapes"
)

// Kind identifies the operator class of a Node.
type Kind int32

//go:generate go tool enumer -type=Kind -trimprefix=Kind node.go

const (
	KindInvalid Kind = iota
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindRelu
	KindSigmoid
	KindTanh
	KindSoftmax
	KindMatMul
	KindFullyConnected
	KindConv
	KindMaxPool
	KindAvgPool
	KindTranspose
	KindReshape
	KindConcat
	KindSparseGather
	KindSave
)

// Operand is anything a node can read from: another node's output or a
// placeholder.
type Operand interface {
	shapes.HasShape

	// Name of the operand, unique within its owner (function for nodes,
	// module for placeholders).
	Name() string
}

// Node is one typed tensor operation. Nodes have an ordered list of input
// operands and a single output value whose shape is fixed at creation.
type Node struct {
	function *Function
	name     string
	kind     Kind
	shape    shapes.Shape
	inputs   []Operand

	// users are the nodes of the same function reading this node's output.
	users []*Node

	// savedTo is set on Save nodes only: the output placeholder written.
	savedTo *Placeholder
}

// Name of the node, unique within its function.
func (n *Node) Name() string { return n.name }

// Kind of the operator.
func (n *Node) Kind() Kind { return n.kind }

// Shape of the node's output value.
func (n *Node) Shape() shapes.Shape { return n.shape }

// Function owning the node.
func (n *Node) Function() *Function { return n.function }

// Inputs returns the ordered input operands. The returned slice must not be
// modified.
func (n *Node) Inputs() []Operand { return n.inputs }

// Users returns the nodes within the same function that read this node's
// output. The returned slice must not be modified.
func (n *Node) Users() []*Node { return n.users }

// SavedTo returns the output placeholder of a Save node, nil for any other
// kind.
func (n *Node) SavedTo() *Placeholder { return n.savedTo }

// InputNodes returns the inputs that are nodes (skipping placeholders).
func (n *Node) InputNodes() []*Node {
	var nodes []*Node
	for _, in := range n.inputs {
		if inNode, ok := in.(*Node); ok {
			nodes = append(nodes, inNode)
		}
	}
	return nodes
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	parts := make([]string, 0, len(n.inputs))
	for _, in := range n.inputs {
		parts = append(parts, in.Name())
	}
	return fmt.Sprintf("%s(%s)%s -> %s", n.kind, strings.Join(parts, ", "), n.name, n.shape)
}

// NewNode adds a node of arbitrary kind, explicit output shape and inputs to
// the function. The builder methods below are preferred for hand-written
// graphs; NewNode exists for transformations that clone nodes across
// functions. It panics if the name is taken or an input node belongs to
// another function.
func (f *Function) NewNode(kind Kind, name string, shape shapes.Shape, inputs ...Operand) *Node {
	if _, found := f.nodes[name]; found {
		exceptions.Panicf("function %q already has a node named %q", f.name, name)
	}
	if !shape.Ok() && kind != KindSave {
		exceptions.Panicf("node %q (%s): invalid output shape", name, kind)
	}
	n := &Node{function: f, name: name, kind: kind, shape: shape, inputs: inputs}
	for _, in := range inputs {
		if inNode, ok := in.(*Node); ok {
			if inNode.function != f {
				exceptions.Panicf("node %q input %q belongs to function %q, not %q",
					name, inNode.name, inNode.function.name, f.name)
			}
			inNode.users = append(inNode.users, n)
		}
	}
	f.nodes[name] = n
	f.nodeList = append(f.nodeList, n)
	return n
}

func (f *Function) binaryOp(kind Kind, base string, lhs, rhs Operand) *Node {
	if !lhs.Shape().Equal(rhs.Shape()) {
		exceptions.Panicf("%s: operand shapes differ: %s vs %s", kind, lhs.Shape(), rhs.Shape())
	}
	return f.NewNode(kind, f.uniqueName(base), lhs.Shape().Clone(), lhs, rhs)
}

func (f *Function) unaryOp(kind Kind, base string, in Operand) *Node {
	return f.NewNode(kind, f.uniqueName(base), in.Shape().Clone(), in)
}

// Add creates an element-wise addition node.
func (f *Function) Add(lhs, rhs Operand) *Node { return f.binaryOp(KindAdd, "add", lhs, rhs) }

// Sub creates an element-wise subtraction node.
func (f *Function) Sub(lhs, rhs Operand) *Node { return f.binaryOp(KindSub, "sub", lhs, rhs) }

// Mul creates an element-wise multiplication node.
func (f *Function) Mul(lhs, rhs Operand) *Node { return f.binaryOp(KindMul, "mul", lhs, rhs) }

// Div creates an element-wise division node.
func (f *Function) Div(lhs, rhs Operand) *Node { return f.binaryOp(KindDiv, "div", lhs, rhs) }

// Relu creates a rectified-linear node.
func (f *Function) Relu(in Operand) *Node { return f.unaryOp(KindRelu, "relu", in) }

// Sigmoid creates a sigmoid node.
func (f *Function) Sigmoid(in Operand) *Node { return f.unaryOp(KindSigmoid, "sigmoid", in) }

// Tanh creates a tanh node.
func (f *Function) Tanh(in Operand) *Node { return f.unaryOp(KindTanh, "tanh", in) }

// Softmax creates a softmax node over the last axis.
func (f *Function) Softmax(in Operand) *Node { return f.unaryOp(KindSoftmax, "softmax", in) }

// MatMul creates a matrix multiplication node: [a,b] x [b,c] -> [a,c].
func (f *Function) MatMul(lhs, rhs Operand) *Node {
	ls, rs := lhs.Shape(), rhs.Shape()
	if ls.Rank() != 2 || rs.Rank() != 2 || ls.Dim(1) != rs.Dim(0) {
		exceptions.Panicf("MatMul: incompatible shapes %s x %s", ls, rs)
	}
	out := shapes.Make(ls.DType, ls.Dim(0), rs.Dim(1))
	return f.NewNode(KindMatMul, f.uniqueName("matmul"), out, lhs, rhs)
}

// FullyConnected creates a dense layer node: input [a,b], weights [b,c],
// bias [c] -> [a,c].
func (f *Function) FullyConnected(in, weights, bias Operand) *Node {
	is, ws, bs := in.Shape(), weights.Shape(), bias.Shape()
	if is.Rank() != 2 || ws.Rank() != 2 || bs.Rank() != 1 ||
		is.Dim(1) != ws.Dim(0) || ws.Dim(1) != bs.Dim(0) {
		exceptions.Panicf("FullyConnected: incompatible shapes %s, %s, %s", is, ws, bs)
	}
	out := shapes.Make(is.DType, is.Dim(0), ws.Dim(1))
	return f.NewNode(KindFullyConnected, f.uniqueName("fc"), out, in, weights, bias)
}

// Conv creates a convolution node. The output shape is given explicitly: the
// partitioner only accounts for value sizes, it doesn't re-derive convolution
// arithmetic.
func (f *Function) Conv(in, filter, bias Operand, out shapes.Shape) *Node {
	return f.NewNode(KindConv, f.uniqueName("conv"), out, in, filter, bias)
}

// MaxPool creates a max-pooling node with the given output shape.
func (f *Function) MaxPool(in Operand, out shapes.Shape) *Node {
	return f.NewNode(KindMaxPool, f.uniqueName("maxpool"), out, in)
}

// AvgPool creates an average-pooling node with the given output shape.
func (f *Function) AvgPool(in Operand, out shapes.Shape) *Node {
	return f.NewNode(KindAvgPool, f.uniqueName("avgpool"), out, in)
}

// Reshape creates a reshape node. The output must have the same size as the
// input.
func (f *Function) Reshape(in Operand, out shapes.Shape) *Node {
	if in.Shape().Size() != out.Size() || in.Shape().DType != out.DType {
		exceptions.Panicf("Reshape: %s cannot be reshaped to %s", in.Shape(), out)
	}
	return f.NewNode(KindReshape, f.uniqueName("reshape"), out, in)
}

// SparseGather creates a gather node: rows of data selected by indices.
// data [n, d...], indices [k] -> [k, d...].
func (f *Function) SparseGather(data, indices Operand) *Node {
	ds, is := data.Shape(), indices.Shape()
	if ds.Rank() < 1 || is.Rank() != 1 {
		exceptions.Panicf("SparseGather: incompatible shapes %s, %s", ds, is)
	}
	dims := append([]int{is.Dim(0)}, ds.Dimensions[1:]...)
	out := shapes.Make(ds.DType, dims...)
	return f.NewNode(KindSparseGather, f.uniqueName("gather"), out, data, indices)
}

// Save creates a sink node writing the value into the output placeholder.
// Save nodes mark function outputs and carry no output value of their own.
func (f *Function) Save(value Operand, out *Placeholder) *Node {
	return f.NewSave(f.uniqueName("save_"+out.Name()), value, out)
}

// NewSave is Save with an explicit node name, for transformations that clone
// Save nodes across functions.
func (f *Function) NewSave(name string, value Operand, out *Placeholder) *Node {
	if !value.Shape().Equal(out.Shape()) {
		exceptions.Panicf("Save: value shape %s does not match placeholder %q shape %s",
			value.Shape(), out.Name(), out.Shape())
	}
	n := f.NewNode(KindSave, name, value.Shape().Clone(), value)
	n.savedTo = out
	return n
}
