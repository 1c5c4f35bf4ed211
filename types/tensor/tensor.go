// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package tensor implements a minimal host-memory tensor: a shape plus a flat
// byte buffer. It backs constant weights in a graph module and the
// placeholder bindings of an inference request.
//
// Only the element accessors needed by the runtime are provided; this is not
// a math library.
package tensor

import (
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"

	"github.com/heliosml/helios/types/shapes"
)

// Tensor is a dense host tensor. The data buffer is laid out in row-major
// order with the element width given by the shape's DType.
type Tensor struct {
	shape shapes.Shape
	data  []byte
}

// New returns a zero-initialized tensor of the given shape.
func New(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensor.New: invalid shape %s", shape)
	}
	return &Tensor{shape: shape, data: make([]byte, shape.Memory())}
}

// FromFlatFloat32 returns a Float32 tensor of the given dimensions filled
// with the flat values. It panics if len(values) doesn't match the shape
// size.
func FromFlatFloat32(values []float32, dimensions ...int) *Tensor {
	shape := shapes.Make(shapes.Float32, dimensions...)
	if len(values) != shape.Size() {
		exceptions.Panicf("tensor.FromFlatFloat32: %d values for shape %s", len(values), shape)
	}
	t := New(shape)
	copy(t.Float32Data(), values)
	return t
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor elements.
func (t *Tensor) DType() shapes.DType { return t.shape.DType }

// Size returns the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the bytes held by the tensor buffer.
func (t *Tensor) Memory() uintptr { return uintptr(len(t.data)) }

// Bytes returns the raw backing buffer. The caller must not resize it.
func (t *Tensor) Bytes() []byte { return t.data }

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t2 := New(t.shape.Clone())
	copy(t2.data, t.data)
	return t2
}

// Float32Data returns the buffer viewed as []float32. It panics if the dtype
// is not Float32.
func (t *Tensor) Float32Data() []float32 {
	t.assertDType(shapes.Float32)
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(t.data))), t.Size())
}

// Float64Data returns the buffer viewed as []float64. It panics if the dtype
// is not Float64.
func (t *Tensor) Float64Data() []float64 {
	t.assertDType(shapes.Float64)
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(t.data))), t.Size())
}

// Int32Data returns the buffer viewed as []int32. It panics if the dtype is
// not Int32.
func (t *Tensor) Int32Data() []int32 {
	t.assertDType(shapes.Int32)
	return unsafe.Slice((*int32)(unsafe.Pointer(unsafe.SliceData(t.data))), t.Size())
}

// Int64Data returns the buffer viewed as []int64. It panics if the dtype is
// not Int64.
func (t *Tensor) Int64Data() []int64 {
	t.assertDType(shapes.Int64)
	return unsafe.Slice((*int64)(unsafe.Pointer(unsafe.SliceData(t.data))), t.Size())
}

// FloatAt returns element idx (flat index) converted to float64. It supports
// Float32, Float64 and Float16, and panics for any other DType.
func (t *Tensor) FloatAt(idx int) float64 {
	switch t.DType() {
	case shapes.Float32:
		return float64(t.Float32Data()[idx])
	case shapes.Float64:
		return t.Float64Data()[idx]
	case shapes.Float16:
		return float64(t.float16Data()[idx].Float32())
	}
	exceptions.Panicf("Tensor.FloatAt: unsupported dtype %s", t.DType())
	return 0
}

// SetFloatAt sets element idx (flat index) from a float64, converting to the
// tensor's float DType. Float16 values are rounded to the nearest
// representable value.
func (t *Tensor) SetFloatAt(idx int, value float64) {
	switch t.DType() {
	case shapes.Float32:
		t.Float32Data()[idx] = float32(value)
	case shapes.Float64:
		t.Float64Data()[idx] = value
	case shapes.Float16:
		t.float16Data()[idx] = float16.Fromfloat32(float32(value))
	default:
		exceptions.Panicf("Tensor.SetFloatAt: unsupported dtype %s", t.DType())
	}
}

func (t *Tensor) float16Data() []float16.Float16 {
	return unsafe.Slice((*float16.Float16)(unsafe.Pointer(unsafe.SliceData(t.data))), t.Size())
}

func (t *Tensor) assertDType(dtype shapes.DType) {
	if t.DType() != dtype {
		exceptions.Panicf("tensor holds %s, accessed as %s", t.DType(), dtype)
	}
}
