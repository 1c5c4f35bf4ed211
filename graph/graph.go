// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements the operator graph handed to the partitioner: a
// Module owning placeholders (inputs, outputs and constant weights) and one
// or more Functions, each a dataflow graph of typed tensor operator Nodes.
//
// Graphs are built with the Function builder methods (Add, MatMul, Conv,
// Save, ...) and become effectively immutable once handed to the runtime.
// Builder methods panic (with a stack trace, see package
// github.com/gomlx/exceptions) on invalid construction -- shape mismatches,
// duplicate names -- while structural checks after transformations are done
// with Function.Verify, which returns an error.
package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"

	"github.com/heliosml/helios/types/shapes"
	"github.com/heliosml/helios/types/tensor"
)

// Module owns a set of Functions and the Placeholders they refer to.
// Placeholders are shared across functions: the partitioner splits a function
// into sub-functions of the same module, and the sub-functions keep referring
// to the parent module's placeholders.
type Module struct {
	name string

	functions    map[string]*Function
	functionList []*Function

	placeholders map[string]*Placeholder
	phList       []*Placeholder
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:         name,
		functions:    make(map[string]*Function),
		placeholders: make(map[string]*Placeholder),
	}
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// CreateFunction creates an empty function owned by the module. It panics if
// the name is already taken.
func (m *Module) CreateFunction(name string) *Function {
	if _, found := m.functions[name]; found {
		exceptions.Panicf("module %q already has a function named %q", m.name, name)
	}
	f := &Function{
		name:   name,
		parent: m,
		nodes:  make(map[string]*Node),
	}
	m.functions[name] = f
	m.functionList = append(m.functionList, f)
	return f
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	return m.functions[name]
}

// HasFunction reports whether the module holds a function with the name.
func (m *Module) HasFunction(name string) bool {
	_, found := m.functions[name]
	return found
}

// Functions returns the module's functions in creation order.
func (m *Module) Functions() []*Function {
	return m.functionList
}

// EraseFunction removes the function from the module. The function object
// becomes invalid. It is a no-op if the function is not owned by the module.
func (m *Module) EraseFunction(f *Function) {
	if f == nil || m.functions[f.name] != f {
		return
	}
	delete(m.functions, f.name)
	for i, other := range m.functionList {
		if other == f {
			m.functionList = append(m.functionList[:i], m.functionList[i+1:]...)
			break
		}
	}
	f.parent = nil
}

// CreatePlaceholder creates a non-static placeholder (a model input or
// output slot). It panics if the name is already taken.
func (m *Module) CreatePlaceholder(name string, shape shapes.Shape) *Placeholder {
	return m.createPH(name, shape, nil)
}

// CreateConstant creates a static placeholder holding the given tensor -- a
// weight. It panics if the name is already taken.
func (m *Module) CreateConstant(name string, value *tensor.Tensor) *Placeholder {
	return m.createPH(name, value.Shape(), value)
}

func (m *Module) createPH(name string, shape shapes.Shape, value *tensor.Tensor) *Placeholder {
	if _, found := m.placeholders[name]; found {
		exceptions.Panicf("module %q already has a placeholder named %q", m.name, name)
	}
	if !shape.Ok() {
		exceptions.Panicf("placeholder %q: invalid shape", name)
	}
	ph := &Placeholder{name: name, shape: shape, value: value}
	m.placeholders[name] = ph
	m.phList = append(m.phList, ph)
	return ph
}

// Placeholder returns the placeholder with the given name, or nil.
func (m *Module) Placeholder(name string) *Placeholder {
	return m.placeholders[name]
}

// Placeholders returns the module's placeholders in creation order.
func (m *Module) Placeholders() []*Placeholder {
	return m.phList
}

// GetOrCreatePlaceholder returns the named placeholder, creating a non-static
// one if absent. The shape must match an existing placeholder.
func (m *Module) GetOrCreatePlaceholder(name string, shape shapes.Shape) *Placeholder {
	if ph, found := m.placeholders[name]; found {
		if !ph.shape.Equal(shape) {
			exceptions.Panicf("placeholder %q exists with shape %s, requested %s", name, ph.shape, shape)
		}
		return ph
	}
	return m.CreatePlaceholder(name, shape)
}

// UniquePlaceholderName returns base if it is free, otherwise base with a
// numeric suffix.
func (m *Module) UniquePlaceholderName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, found := m.placeholders[name]; !found {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// ConstantsSize returns the total bytes of the module's static placeholders.
func (m *Module) ConstantsSize() uint64 {
	var total uint64
	for _, ph := range m.phList {
		if ph.Static() {
			total += ph.SizeInBytes()
		}
	}
	return total
}

// Placeholder is a named, typed, shaped tensor slot external to a function
// body: a model input, a model output, or -- when static -- a constant
// weight.
type Placeholder struct {
	name  string
	shape shapes.Shape
	value *tensor.Tensor // Non-nil for constants.
}

// Name of the placeholder, unique within the module.
func (ph *Placeholder) Name() string { return ph.name }

// Shape of the placeholder.
func (ph *Placeholder) Shape() shapes.Shape { return ph.shape }

// Static reports whether the placeholder is a constant weight.
func (ph *Placeholder) Static() bool { return ph.value != nil }

// Value returns the constant tensor, or nil for non-static placeholders.
func (ph *Placeholder) Value() *tensor.Tensor { return ph.value }

// SizeInBytes of one tensor of the placeholder's shape.
func (ph *Placeholder) SizeInBytes() uint64 {
	return uint64(ph.shape.Memory())
}

// String implements fmt.Stringer.
func (ph *Placeholder) String() string {
	if ph.Static() {
		return fmt.Sprintf("Constant(%s%s)", ph.name, ph.shape)
	}
	return fmt.Sprintf("Placeholder(%s%s)", ph.name, ph.shape)
}

// Function is a dataflow graph of operator nodes. It owns its nodes and
// borrows placeholders from the parent module.
type Function struct {
	name   string
	parent *Module

	nodes    map[string]*Node
	nodeList []*Node
}

// Name of the function, unique within the module.
func (f *Function) Name() string { return f.name }

// Parent returns the module owning the function, or nil after the function
// was erased.
func (f *Function) Parent() *Module { return f.parent }

// Nodes returns the function's nodes in creation order.
func (f *Function) Nodes() []*Node { return f.nodeList }

// NumNodes returns the number of nodes in the function.
func (f *Function) NumNodes() int { return len(f.nodeList) }

// Node returns the node with the given name, or nil.
func (f *Function) Node(name string) *Node { return f.nodes[name] }

// uniqueName returns base if free within the function, else base with a
// numeric suffix.
func (f *Function) uniqueName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, found := f.nodes[name]; !found {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}
