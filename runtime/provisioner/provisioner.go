// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package provisioner compiles the sub-functions of a partitioned network
// and loads the artifacts onto physical devices.
//
// Logical device ids chosen by the partitioner are mapped onto physical
// devices of the matching backend; a sub-function with several logical
// devices is loaded once per device (the replicas saturate-host produces).
// Compilation of independent sub-functions runs in parallel; loading is
// transactional per network -- a failed load rolls back every placement the
// network already made.
package provisioner

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/runtime"
)

// placement records one loaded artifact for eviction.
type placement struct {
	device backends.DeviceManager
	fnName string
}

// Provisioner owns the compiled artifacts and the mapping of networks to the
// devices they occupy.
type Provisioner struct {
	registry *backends.Registry
	devices  map[runtime.DeviceID]backends.DeviceManager

	mu       sync.Mutex
	networks map[string][]placement
}

// New returns a provisioner over the devices.
func New(registry *backends.Registry, devices map[runtime.DeviceID]backends.DeviceManager) *Provisioner {
	return &Provisioner{
		registry: registry,
		devices:  devices,
		networks: make(map[string][]placement),
	}
}

// Provision compiles and loads every DAG in the list. On error, placements
// already made for the list are rolled back.
func (p *Provisioner) Provision(dagList runtime.DAGList) error {
	var provisioned []string
	for _, dag := range dagList {
		if err := p.provisionDAG(dag); err != nil {
			for _, name := range provisioned {
				if evictErr := p.Evict(name); evictErr != nil {
					klog.Warningf("rollback of network %q failed: %v", name, evictErr)
				}
			}
			return err
		}
		provisioned = append(provisioned, dag.Root.Name)
	}
	return nil
}

func (p *Provisioner) provisionDAG(dag runtime.DAG) error {
	networkName := dag.Root.Name
	p.mu.Lock()
	if _, found := p.networks[networkName]; found {
		p.mu.Unlock()
		return errors.Errorf("network %q is already provisioned", networkName)
	}
	p.mu.Unlock()

	assignments, err := p.assignPhysicalDevices(dag)
	if err != nil {
		return err
	}

	// Compile every sub-function; independent compilations run concurrently.
	var group errgroup.Group
	for _, node := range dag.Nodes {
		node := node
		group.Go(func() error {
			backend, err := p.registry.Get(node.BackendName)
			if err != nil {
				return err
			}
			fn := node.Module.Function(node.Name)
			if fn == nil {
				return errors.Errorf("sub-function %q not found in module", node.Name)
			}
			compiled, err := backend.Compile(fn)
			if err != nil {
				return errors.WithMessagef(err, "compiling %q for backend %q", node.Name, node.BackendName)
			}
			node.Compiled = compiled
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	// Load sequentially so a failure leaves a well-defined set to roll back.
	var placements []placement
	rollback := func() {
		for _, pl := range placements {
			if err := pl.device.UnloadFunction(pl.fnName); err != nil {
				klog.Warningf("rollback unload of %q from device %d failed: %v",
					pl.fnName, pl.device.DeviceID(), err)
			}
		}
	}
	for _, node := range dag.Nodes {
		for _, logical := range node.LogicalDevices {
			physical, found := assignments[node.BackendName][logical]
			if !found {
				rollback()
				return errors.Errorf("no physical device for logical device %d of backend %q",
					logical, node.BackendName)
			}
			device := p.devices[physical]
			if err := device.LoadFunction(node.Name, node.Compiled); err != nil {
				rollback()
				return errors.WithMessagef(err, "loading %q onto device %d", node.Name, physical)
			}
			node.DeviceIDs = append(node.DeviceIDs, physical)
			placements = append(placements, placement{device: device, fnName: node.Name})
		}
	}

	p.mu.Lock()
	p.networks[networkName] = placements
	p.mu.Unlock()
	return nil
}

// assignPhysicalDevices maps each backend's logical device ids (sorted) onto
// that backend's physical devices (in device-id order).
func (p *Provisioner) assignPhysicalDevices(dag runtime.DAG) (map[string]map[runtime.DeviceID]runtime.DeviceID, error) {
	logicalPerBackend := make(map[string][]runtime.DeviceID)
	for _, node := range dag.Nodes {
		seen := make(map[runtime.DeviceID]bool)
		for _, id := range logicalPerBackend[node.BackendName] {
			seen[id] = true
		}
		for _, logical := range node.LogicalDevices {
			if !seen[logical] {
				logicalPerBackend[node.BackendName] = append(logicalPerBackend[node.BackendName], logical)
				seen[logical] = true
			}
		}
	}

	physicalPerBackend := make(map[string][]runtime.DeviceID)
	for id, device := range p.devices {
		physicalPerBackend[device.BackendName()] = append(physicalPerBackend[device.BackendName()], id)
	}
	for _, ids := range physicalPerBackend {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	assignments := make(map[string]map[runtime.DeviceID]runtime.DeviceID)
	for backendName, logicals := range logicalPerBackend {
		physicals := physicalPerBackend[backendName]
		if len(logicals) > len(physicals) {
			return nil, errors.Errorf(
				"network needs %d devices of backend %q but the host has %d",
				len(logicals), backendName, len(physicals))
		}
		sort.Slice(logicals, func(i, j int) bool { return logicals[i] < logicals[j] })
		assignment := make(map[runtime.DeviceID]runtime.DeviceID, len(logicals))
		for i, logical := range logicals {
			assignment[logical] = physicals[i]
		}
		assignments[backendName] = assignment
	}
	return assignments, nil
}

// Evict unloads every placement of the network and forgets its artifacts.
func (p *Provisioner) Evict(networkName string) error {
	p.mu.Lock()
	placements, found := p.networks[networkName]
	delete(p.networks, networkName)
	p.mu.Unlock()
	if !found {
		return errors.Errorf("network %q is not provisioned", networkName)
	}
	var firstErr error
	for _, pl := range placements {
		if err := pl.device.UnloadFunction(pl.fnName); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
