// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/pkg/errors"

	"github.com/heliosml/helios/types/tensor"
)

// Bindings maps placeholders to the concrete tensors backing them for one
// inference request. It is not safe for concurrent mutation; each request
// owns its bindings exclusively.
type Bindings struct {
	values map[*Placeholder]*tensor.Tensor
}

// NewBindings returns an empty set of bindings.
func NewBindings() *Bindings {
	return &Bindings{values: make(map[*Placeholder]*tensor.Tensor)}
}

// Insert binds the placeholder to the tensor. The tensor shape must match.
func (b *Bindings) Insert(ph *Placeholder, value *tensor.Tensor) error {
	if !ph.Shape().Equal(value.Shape()) {
		return errors.Errorf("binding for %q: tensor shape %s does not match placeholder shape %s",
			ph.Name(), value.Shape(), ph.Shape())
	}
	b.values[ph] = value
	return nil
}

// Get returns the tensor bound to the placeholder. For static placeholders
// the constant value is returned when no explicit binding exists.
func (b *Bindings) Get(ph *Placeholder) *tensor.Tensor {
	if v, found := b.values[ph]; found {
		return v
	}
	if ph.Static() {
		return ph.Value()
	}
	return nil
}

// Allocate binds a fresh zero tensor to the placeholder if it has no binding
// yet, and returns the bound tensor.
func (b *Bindings) Allocate(ph *Placeholder) *tensor.Tensor {
	if v := b.Get(ph); v != nil {
		return v
	}
	v := tensor.New(ph.Shape())
	b.values[ph] = v
	return v
}

// Len returns the number of explicit bindings.
func (b *Bindings) Len() int { return len(b.values) }
