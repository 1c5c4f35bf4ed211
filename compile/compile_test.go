// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliosml/helios/graph"
)

func TestVerify(t *testing.T) {
	require.NoError(t, New().Verify())

	profile := New()
	profile.Precision.QuantMode = QuantProfile
	require.Error(t, profile.Verify(), "profiling requires bindings")

	profile.Bindings = graph.NewBindings()
	require.NoError(t, profile.Verify())

	profile.Precision.ConvertToFP16 = true
	require.Error(t, profile.Verify(), "FP16 conversion while profiling is unsupported")

	quantize := New()
	quantize.Precision.QuantMode = QuantQuantize
	require.NoError(t, quantize.Verify())
}

func TestQuantModeStrings(t *testing.T) {
	assert.Equal(t, "Profile", QuantProfile.String())
	v, err := QuantModeString("Quantize")
	require.NoError(t, err)
	assert.Equal(t, QuantQuantize, v)
}
