// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a compute backend implements to be
// used by the Helios partitioner and runtime, and the Registry mapping
// backend names to implementations.
//
// A backend answers three questions for the partitioner (its name, whether an
// operator is supported, whether an operator should be lowered before
// compilation), compiles a sub-function into a loadable artifact, and creates
// the device managers the runtime dispatches work to.
//
// There is no process-wide registry: callers build a Registry value and pass
// it explicitly to the partitioner and host manager.
package backends

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/heliosml/helios/graph"
)

// ProfilingBackendName is the backend every partition is tagged with when
// partitioning under quantization profiling: profiling runs are executed by
// the interpreter regardless of the final target backends.
const ProfilingBackendName = "Interpreter"

// Backend is implemented by every compute backend.
type Backend interface {
	// Name returns the backend name, e.g. "CPU" or "Interpreter". Device
	// descriptors refer to backends by this name.
	Name() string

	// IsOpSupported reports whether the backend can execute the node.
	IsOpSupported(n *graph.Node) bool

	// ShouldLower reports whether the backend wants the node lowered into
	// simpler operators before compilation. A node a backend would lower is
	// considered placeable on it.
	ShouldLower(n *graph.Node) bool

	// Compile turns a sub-function into a loadable artifact.
	Compile(f *graph.Function) (CompiledFunction, error)

	// NewDeviceManager creates a manager for one physical device of this
	// backend with the given memory capacity.
	NewDeviceManager(deviceID uint64, memoryBytes uint64) (DeviceManager, error)
}

// CompiledFunction is the artifact produced by Backend.Compile, ready to be
// loaded onto a device.
type CompiledFunction interface {
	// Function returns the source sub-function.
	Function() *graph.Function

	// MemSize returns the resident bytes the artifact occupies once loaded.
	MemSize() uint64
}

// DeviceManager owns one physical device: it tracks the functions loaded on
// it, its memory budget, and executes run requests. Implementations must be
// safe for concurrent use; the runtime holds no lock while calling them.
type DeviceManager interface {
	// DeviceID is the runtime-assigned physical device identifier.
	DeviceID() uint64

	// BackendName of the device.
	BackendName() string

	// AvailableMemory returns the bytes still free on the device.
	AvailableMemory() uint64

	// UsedMemory returns the bytes occupied by loaded functions.
	UsedMemory() uint64

	// MaximumMemory returns the total device memory in bytes.
	MaximumMemory() uint64

	// LoadFunction makes the compiled function runnable on the device,
	// reserving its memory. Loading an already-loaded name is an error.
	LoadFunction(name string, fn CompiledFunction) error

	// UnloadFunction releases the function and its memory. Unknown names are
	// an error.
	UnloadFunction(name string) error

	// RunFunction executes the loaded function against the bindings. It
	// blocks until the run finishes.
	RunFunction(name string, bindings *graph.Bindings) error

	// Stop terminates the device manager; further loads and runs fail.
	Stop() error
}

// Registry maps backend names to Backend implementations. The zero value is
// not usable; create one with NewRegistry. Registry is safe for concurrent
// reads after registration.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty registry, optionally pre-registering the given
// backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds the backend under its name, replacing any previous
// registration of the same name.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, found := r.backends[name]
	if !found {
		return nil, errors.Errorf("backend %q is not registered", name)
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
