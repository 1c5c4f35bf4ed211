// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package interpreter

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/graph"
)

// deviceManager simulates one interpreter device: a memory budget and the
// functions loaded into it. Runs execute on the caller's goroutine.
type deviceManager struct {
	deviceID uint64
	maximum  uint64

	mu        sync.Mutex
	used      uint64
	functions map[string]backends.CompiledFunction
	stopped   bool
}

func newDeviceManager(deviceID uint64, memoryBytes uint64) *deviceManager {
	return &deviceManager{
		deviceID:  deviceID,
		maximum:   memoryBytes,
		functions: make(map[string]backends.CompiledFunction),
	}
}

func (d *deviceManager) DeviceID() uint64    { return d.deviceID }
func (d *deviceManager) BackendName() string { return backends.ProfilingBackendName }

func (d *deviceManager) AvailableMemory() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maximum - d.used
}

func (d *deviceManager) UsedMemory() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

func (d *deviceManager) MaximumMemory() uint64 { return d.maximum }

func (d *deviceManager) LoadFunction(name string, fn backends.CompiledFunction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.Errorf("device %d is stopped", d.deviceID)
	}
	if _, found := d.functions[name]; found {
		return errors.Errorf("function %q is already loaded on device %d", name, d.deviceID)
	}
	if d.used+fn.MemSize() > d.maximum {
		return errors.Errorf("device %d out of memory loading %q: %d used, %d requested, %d maximum",
			d.deviceID, name, d.used, fn.MemSize(), d.maximum)
	}
	d.functions[name] = fn
	d.used += fn.MemSize()
	return nil
}

func (d *deviceManager) UnloadFunction(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn, found := d.functions[name]
	if !found {
		return errors.Errorf("function %q is not loaded on device %d", name, d.deviceID)
	}
	delete(d.functions, name)
	d.used -= fn.MemSize()
	return nil
}

func (d *deviceManager) RunFunction(name string, bindings *graph.Bindings) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return errors.Errorf("device %d is stopped", d.deviceID)
	}
	fn, found := d.functions[name]
	d.mu.Unlock()
	if !found {
		return errors.Errorf("function %q is not loaded on device %d", name, d.deviceID)
	}
	return evaluate(fn.Function(), bindings)
}

func (d *deviceManager) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}
