// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package shapes

// DType indicates the type of the unit element of a tensor, or of the value
// produced by a node in a computation graph.
type DType int32

//go:generate go tool enumer -type=DType dtype.go

const (
	InvalidDType DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float16
	BFloat16
	Float32
	Float64
)

// Memory returns the number of bytes used to store one element of the DType.
func (dtype DType) Memory() uintptr {
	switch dtype {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16, Float16, BFloat16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	}
	return 0
}

// IsFloat returns whether the DType is a floating point type, including the
// 16-bit formats.
func (dtype DType) IsFloat() bool {
	switch dtype {
	case Float16, BFloat16, Float32, Float64:
		return true
	}
	return false
}
