// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package compile holds the compilation context threaded from the host
// manager through the partitioner down to the backends. The partitioner only
// observes the quantization mode and the precision configuration; the
// transforms themselves live with the backends.
package compile

import (
	"github.com/pkg/errors"

	"github.com/heliosml/helios/graph"
)

// QuantMode selects the quantization transformation applied during
// compilation.
type QuantMode int

//go:generate go tool enumer -type=QuantMode -trimprefix=Quant compile.go

const (
	// QuantNone performs no quantization transformation.
	QuantNone QuantMode = iota
	// QuantQuantize quantizes the graph using previously gathered statistics.
	QuantQuantize
	// QuantProfile instruments the graph to gather quantization statistics.
	// Profiling runs on the interpreter backend.
	QuantProfile
)

// PrecisionConfig configures precision transformations.
type PrecisionConfig struct {
	QuantMode QuantMode

	// ConvertToFP16 converts Float32 values to Float16 during compilation.
	ConvertToFP16 bool
}

// Context carries the options for one compilation.
type Context struct {
	// Bindings used while profiling; required when QuantMode is QuantProfile.
	Bindings *graph.Bindings

	// Precision configuration observed by the partitioner and backends.
	Precision PrecisionConfig

	// Optimized marks the functions as already optimized. It is passed on to
	// the partitioner, which runs no optimization step either way.
	Optimized bool
}

// New returns a context with default settings.
func New() *Context {
	return &Context{}
}

// Verify returns an error if the context is malformed for the configuration
// it is set up for.
func (c *Context) Verify() error {
	switch c.Precision.QuantMode {
	case QuantProfile:
		if c.Bindings == nil {
			return errors.New("in profiling mode, but bindings was not set")
		}
		if c.Precision.ConvertToFP16 {
			return errors.New("converting to FP16 while profiling is unsupported")
		}
	case QuantQuantize, QuantNone:
	default:
		return errors.Errorf("unknown quantization mode %d", c.Precision.QuantMode)
	}
	return nil
}
