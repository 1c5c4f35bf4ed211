// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package runtime defines the types shared between the partitioner,
// provisioner, executor and host manager: device descriptors, the
// post-partition DAG of sub-functions, execution contexts and host
// configuration.
package runtime

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/graph"
)

// DeviceID identifies a device: logical IDs are assigned by the partitioner,
// physical IDs by the host manager.
type DeviceID uint64

// RunIdentifier identifies one inference request. RunNetwork returns
// InvalidRunIdentifier when admission fails.
type RunIdentifier int64

// InvalidRunIdentifier is the sentinel returned when a request is rejected.
const InvalidRunIdentifier = RunIdentifier(-1)

// ResultCB delivers the outcome of an inference request: the request's run
// identifier, the execution error (nil on success) and the execution context
// carrying the output bindings.
type ResultCB func(runID RunIdentifier, err error, ctx *ExecutionContext)

// DeviceInfo communicates one device's constraints and rooflines to the
// partitioner.
type DeviceInfo struct {
	// AvailableMemory on the device, in bytes.
	AvailableMemory uint64

	// BackendName of the device.
	BackendName string

	// NonSupportedNodes are operator kinds this device will never accept.
	NonSupportedNodes []graph.Kind

	// SupportedNodes restricts the device to the listed kinds. Empty means
	// "accept all except NonSupportedNodes".
	SupportedNodes []graph.Kind

	// SRAMCapacity in bytes.
	SRAMCapacity uint64

	// PeakCompute in ops/second.
	PeakCompute float64

	// PeakDRAMBw is the peak DRAM bandwidth in bytes/second.
	PeakDRAMBw float64

	// PeakSRAMBw is the peak SRAM bandwidth in bytes/second.
	PeakSRAMBw float64

	// PeakPCIeBw is the peak ingress/egress PCI-E bandwidth in bytes/second.
	PeakPCIeBw float64
}

// DeviceConfig describes one physical device the host manager should bring
// up.
type DeviceConfig struct {
	// BackendName of the device.
	BackendName string

	// Name is a human readable identifier for the device.
	Name string

	// DeviceMemory in bytes.
	DeviceMemory uint64

	// Parameters passed through to the backend's device manager.
	Parameters map[string]string
}

// HostConfig configures the host manager.
type HostConfig struct {
	// MaxActiveRequests bounds concurrently executing requests.
	MaxActiveRequests int

	// MaxQueueSize bounds queued requests beyond the active ones.
	MaxQueueSize int

	// ExecutorThreads bounds the executor's worker pool.
	ExecutorThreads int
}

// DefaultHostConfig returns the default host configuration.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		MaxActiveRequests: 10,
		MaxQueueSize:      100,
		ExecutorThreads:   3,
	}
}

// PartitionConfig is a user-defined partition: a fixed number of named
// partitions with target backends, plus a node-name to partition-id mapping.
//
// Two mapping styles are valid: either every node is mapped, or the nodes of
// exactly one partition are left out of the map and that partition receives
// all unmapped nodes.
type PartitionConfig struct {
	// FuncName names the function to partition.
	FuncName string

	// NumOfPartitions. Partition ids are in [0, NumOfPartitions).
	NumOfPartitions int

	// BackendNames per partition; len == NumOfPartitions.
	BackendNames []string

	// PartitionNames per partition; len == NumOfPartitions.
	PartitionNames []string

	// NodeToPartition maps node names to partition ids.
	NodeToPartition map[string]int
}

// Enabled reports whether a user partition was configured.
func (c *PartitionConfig) Enabled() bool {
	return c != nil && c.NumOfPartitions > 0
}

// DAGNode is one sub-function in the post-partition DAG, carrying everything
// the runtime needs to provision and execute it. A synthetic root DAGNode per
// network fans out to the entry sub-functions and maps to no function.
type DAGNode struct {
	// Name of the sub-function; the id used when loading and running it on a
	// device.
	Name string

	// BackendName the sub-function was assigned to.
	BackendName string

	// Parents and Children encode the DAG. Parents produce values this node
	// consumes.
	Parents  []*DAGNode
	Children []*DAGNode

	// LogicalDevices assigned by the partitioner. More than one means the
	// sub-function is replicated (see saturate-host).
	LogicalDevices []DeviceID

	// DeviceIDs are the physical devices the sub-function is loaded on,
	// filled by the provisioner.
	DeviceIDs []DeviceID

	// Module the sub-function belongs to, so the executor can reach the
	// placeholders.
	Module *graph.Module

	// Compiled artifact, filled by the provisioner.
	Compiled backends.CompiledFunction

	// currentDeviceIdx is the executor's round-robin cursor over DeviceIDs.
	currentDeviceIdx atomic.Uint64
}

// NextDevice returns the physical device the next run of this node should
// use, round-robining over DeviceIDs. It panics if the node was not
// provisioned.
func (n *DAGNode) NextDevice() DeviceID {
	idx := n.currentDeviceIdx.Add(1)
	return n.DeviceIDs[idx%uint64(len(n.DeviceIDs))]
}

// DAG is the executable graph over sub-functions: a synthetic root plus the
// flat list of sub-function nodes. Structure is encoded in the nodes' parent
// and child pointers.
type DAG struct {
	Root  *DAGNode
	Nodes []*DAGNode
}

// DAGList holds one DAG per source function.
type DAGList []DAG

// ExecutionContext is the exclusively-owned state of one inference request.
type ExecutionContext struct {
	// Bindings of placeholders to tensors for this request.
	Bindings *graph.Bindings

	// TraceID tags the request in logs and metrics.
	TraceID uuid.UUID
}

// NewExecutionContext returns a context wrapping the bindings. Nil bindings
// get a fresh empty set.
func NewExecutionContext(bindings *graph.Bindings) *ExecutionContext {
	if bindings == nil {
		bindings = graph.NewBindings()
	}
	return &ExecutionContext{Bindings: bindings, TraceID: uuid.New()}
}
