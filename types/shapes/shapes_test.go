// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(Float32, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, uintptr(24), s.Memory())
	assert.Equal(t, "(Float32)[2 3]", s.String())
	assert.Equal(t, 3, s.Dim(-1))

	scalar := Make(Float64)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, uintptr(8), scalar.Memory())

	err := exceptions.TryCatch[error](func() { _ = Make(Float32, 0, 3) })
	require.Error(t, err, "zero dimensions should not be accepted")
}

func TestEqual(t *testing.T) {
	assert.True(t, Make(Int32, 5).Equal(Make(Int32, 5)))
	assert.False(t, Make(Int32, 5).Equal(Make(Int64, 5)))
	assert.False(t, Make(Int32, 5).Equal(Make(Int32, 5, 1)))
	assert.True(t, Make(Bool).Equal(Make(Bool)))
	assert.False(t, Shape{}.Ok())
}

func TestDTypeMemory(t *testing.T) {
	assert.Equal(t, uintptr(2), Float16.Memory())
	assert.Equal(t, uintptr(2), BFloat16.Memory())
	assert.Equal(t, uintptr(1), Bool.Memory())
	assert.Equal(t, uintptr(0), InvalidDType.Memory())
	assert.Equal(t, "Float16", Float16.String())
	v, err := DTypeString("BFloat16")
	require.NoError(t, err)
	assert.Equal(t, BFloat16, v)
}
