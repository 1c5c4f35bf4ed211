// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package hostmanager is the entry point into the Helios runtime: it adds,
// runs and evicts networks on a fleet of devices.
//
// AddNetwork partitions a module, provisions the resulting DAG and installs
// it; RunNetwork admits a request into a priority queue and dispatches it to
// the executor when capacity frees up. All operations are safe to call
// concurrently.
//
// Locking: networkLock guards the network table and the set of names being
// added; queueLock guards the priority heap and the executing count. Neither
// lock is ever held across calls into the partitioner, provisioner, executor
// or device managers.
package hostmanager

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/compile"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/partitioner"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/runtime/executor"
	"github.com/heliosml/helios/runtime/provisioner"
	"github.com/heliosml/helios/types"
	"github.com/heliosml/helios/types/xsync"
)

// ErrRequestCanceled is delivered to the callbacks of queued requests
// drained by ClearHost.
var ErrRequestCanceled = errors.New("request canceled: host cleared")

// networkData is the per-network runtime state.
type networkData struct {
	dag    runtime.DAG
	module *graph.Module

	// refcount tracks in-flight requests against the network; RemoveNetwork
	// refuses while it is non-zero.
	refcount atomic.Int64
}

// HostManager adds, runs and evicts networks on a device fleet.
type HostManager struct {
	config   runtime.HostConfig
	registry *backends.Registry

	// totalRequestCount is the monotonic source of request ids.
	totalRequestCount atomic.Uint64

	// activeRequestCount counts admitted requests (queued plus executing)
	// not yet completed; admission rejects beyond
	// MaxActiveRequests+MaxQueueSize.
	activeRequestCount atomic.Int64

	networkLock        sync.Mutex
	networks           map[string]*networkData
	processingNetworks types.Set[string]

	queueLock sync.Mutex
	idleCond  *sync.Cond // Signaled when executingCount drops.
	// executingCount counts requests handed to the executor and not yet
	// completed; dispatch pops while it is below MaxActiveRequests.
	executingCount int
	inferQueue     inferHeap
	draining       bool

	devices     map[runtime.DeviceID]backends.DeviceManager
	executor    *executor.Executor
	provisioner *provisioner.Provisioner

	metrics hostMetrics
}

// New returns a host manager with the given configuration; call Init before
// adding networks.
func New(config runtime.HostConfig, registry *backends.Registry) *HostManager {
	hm := &HostManager{
		config:             config,
		registry:           registry,
		networks:           make(map[string]*networkData),
		processingNetworks: types.MakeSet[string](),
		devices:            make(map[runtime.DeviceID]backends.DeviceManager),
	}
	hm.idleCond = sync.NewCond(&hm.queueLock)
	return hm
}

// Init creates one device manager per config and brings up the executor and
// provisioner over them.
func (hm *HostManager) Init(configs []runtime.DeviceConfig) error {
	if len(hm.devices) > 0 {
		return errors.New("host manager is already initialized")
	}
	for i, cfg := range configs {
		backend, err := hm.registry.Get(cfg.BackendName)
		if err != nil {
			return err
		}
		dm, err := backend.NewDeviceManager(uint64(i), cfg.DeviceMemory)
		if err != nil {
			return errors.WithMessagef(err, "creating device %d (%s)", i, cfg.BackendName)
		}
		hm.devices[runtime.DeviceID(i)] = dm
	}
	hm.provisioner = provisioner.New(hm.registry, hm.devices)
	hm.executor = executor.New(hm.devices, hm.config.ExecutorThreads)
	hm.exportMemoryCounters()
	return nil
}

// deviceInfos derives the partitioner's device descriptors from the device
// managers.
func (hm *HostManager) deviceInfos() []runtime.DeviceInfo {
	infos := make([]runtime.DeviceInfo, 0, len(hm.devices))
	for i := 0; i < len(hm.devices); i++ {
		dm := hm.devices[runtime.DeviceID(i)]
		infos = append(infos, runtime.DeviceInfo{
			AvailableMemory: dm.AvailableMemory(),
			BackendName:     dm.BackendName(),
		})
	}
	return infos
}

// AddNetwork partitions the module, provisions the resulting DAGs onto
// devices and installs one network per source function. The module is
// consumed: on success only the sub-functions remain in it. On any failure
// the host state is rolled back as if AddNetwork was never called.
func (hm *HostManager) AddNetwork(module *graph.Module, cctx *compile.Context, saturateHost bool) error {
	names := make([]string, 0, len(module.Functions()))
	for _, f := range module.Functions() {
		names = append(names, f.Name())
	}
	if len(names) == 0 {
		return errors.New("module contains no functions")
	}

	hm.networkLock.Lock()
	for _, name := range names {
		if _, found := hm.networks[name]; found || hm.processingNetworks.Has(name) {
			hm.networkLock.Unlock()
			return errors.Errorf("network %q is already added or being added", name)
		}
	}
	hm.processingNetworks.Insert(names...)
	hm.networkLock.Unlock()

	// Partitioning and provisioning can take seconds; the lock stays free.
	part := partitioner.New(module, hm.deviceInfos(), hm.registry,
		partitioner.Options{SaturateHost: saturateHost, Optimized: cctx.Optimized})
	dagList, err := part.Partition(cctx)
	if err != nil {
		hm.cleanupAddNetwork(names)
		return err
	}
	if err := hm.provisioner.Provision(dagList); err != nil {
		// Provision rolled back its own partial placements.
		hm.cleanupAddNetwork(names)
		return err
	}

	hm.networkLock.Lock()
	for _, dag := range dagList {
		nd := &networkData{dag: dag, module: module}
		hm.networks[dag.Root.Name] = nd
	}
	for _, name := range names {
		hm.processingNetworks.Delete(name)
	}
	hm.networkLock.Unlock()

	for _, dag := range dagList {
		klog.V(1).Infof("added network %q with %d sub-functions", dag.Root.Name, len(dag.Nodes))
	}
	hm.exportMemoryCounters()
	return nil
}

// cleanupAddNetwork rolls back a failed AddNetwork: partial network entries
// and processing marks are removed.
func (hm *HostManager) cleanupAddNetwork(names []string) {
	hm.networkLock.Lock()
	for _, name := range names {
		delete(hm.networks, name)
		hm.processingNetworks.Delete(name)
	}
	hm.networkLock.Unlock()
	hm.exportMemoryCounters()
}

// RemoveNetwork removes the network from the host and evicts it from the
// devices. It fails while requests against the network are in flight.
func (hm *HostManager) RemoveNetwork(networkName string) error {
	hm.networkLock.Lock()
	nd, found := hm.networks[networkName]
	if !found {
		hm.networkLock.Unlock()
		return errors.Errorf("network %q not found", networkName)
	}
	if nd.refcount.Load() != 0 {
		hm.networkLock.Unlock()
		return errors.Errorf("network %q has %d requests in flight", networkName, nd.refcount.Load())
	}
	delete(hm.networks, networkName)
	hm.networkLock.Unlock()

	err := hm.provisioner.Evict(networkName)
	hm.exportMemoryCounters()
	return err
}

// NetworkAdded reports whether the network is installed on the host.
func (hm *HostManager) NetworkAdded(networkName string) bool {
	hm.networkLock.Lock()
	defer hm.networkLock.Unlock()
	_, found := hm.networks[networkName]
	return found
}

// GetNetworkDAG returns the DAG of the network, if installed.
func (hm *HostManager) GetNetworkDAG(networkName string) (runtime.DAG, error) {
	hm.networkLock.Lock()
	defer hm.networkLock.Unlock()
	nd, found := hm.networks[networkName]
	if !found {
		return runtime.DAG{}, errors.Errorf("network %q not found", networkName)
	}
	return nd.dag, nil
}

// ClearHost cancels all queued requests (their callbacks fire with
// ErrRequestCanceled), waits for in-flight requests to complete, and evicts
// every network from every device.
func (hm *HostManager) ClearHost() error {
	hm.queueLock.Lock()
	hm.draining = true
	drained := make([]*inferRequest, 0, hm.inferQueue.Len())
	for hm.inferQueue.Len() > 0 {
		drained = append(drained, heap.Pop(&hm.inferQueue).(*inferRequest))
	}
	hm.queueLock.Unlock()

	for _, req := range drained {
		req.callback(runtime.RunIdentifier(req.requestID), ErrRequestCanceled, req.ctx)
		hm.releaseNetwork(req.networkName)
		hm.activeRequestCount.Add(-1)
	}

	// In-flight requests complete normally.
	hm.queueLock.Lock()
	for hm.executingCount > 0 {
		hm.idleCond.Wait()
	}
	hm.queueLock.Unlock()

	hm.networkLock.Lock()
	names := make([]string, 0, len(hm.networks))
	for name := range hm.networks {
		names = append(names, name)
	}
	hm.networks = make(map[string]*networkData)
	hm.networkLock.Unlock()

	var firstErr error
	for _, name := range names {
		if err := hm.provisioner.Evict(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	hm.queueLock.Lock()
	hm.draining = false
	hm.queueLock.Unlock()
	hm.exportMemoryCounters()
	return firstErr
}

// RunNetwork submits an inference request against the network and returns
// its run identifier. It returns InvalidRunIdentifier -- without invoking
// the callback -- if the network is unknown or admission is over capacity.
// Lower priority values dispatch first; within a priority, submission order
// wins.
func (hm *HostManager) RunNetwork(networkName string, ctx *runtime.ExecutionContext,
	callback runtime.ResultCB, priority uint64) runtime.RunIdentifier {

	hm.networkLock.Lock()
	nd, found := hm.networks[networkName]
	hm.networkLock.Unlock()
	if !found {
		return runtime.InvalidRunIdentifier
	}

	limit := int64(hm.config.MaxActiveRequests + hm.config.MaxQueueSize)
	if hm.activeRequestCount.Load() >= limit {
		return runtime.InvalidRunIdentifier
	}

	hm.queueLock.Lock()
	if hm.draining {
		hm.queueLock.Unlock()
		return runtime.InvalidRunIdentifier
	}
	requestID := hm.totalRequestCount.Add(1)
	hm.activeRequestCount.Add(1)
	nd.refcount.Add(1)
	heap.Push(&hm.inferQueue, &inferRequest{
		networkName: networkName,
		ctx:         ctx,
		callback:    callback,
		priority:    priority,
		requestID:   requestID,
	})
	hm.queueLock.Unlock()

	hm.dispatchNextRun()
	return runtime.RunIdentifier(requestID)
}

// RunNetworkBlocking is a convenience wrapper blocking the submitting thread
// until the request's callback fires.
func (hm *HostManager) RunNetworkBlocking(networkName string, ctx *runtime.ExecutionContext) error {
	latch := xsync.NewLatchWithValue[error]()
	runID := hm.RunNetwork(networkName, ctx,
		func(_ runtime.RunIdentifier, err error, _ *runtime.ExecutionContext) {
			latch.Trigger(err)
		}, 0)
	if runID == runtime.InvalidRunIdentifier {
		return errors.Errorf("request for network %q was rejected", networkName)
	}
	return latch.Wait()
}

// dispatchNextRun hands queued requests to the executor while execution
// capacity remains.
func (hm *HostManager) dispatchNextRun() {
	for {
		hm.queueLock.Lock()
		if hm.inferQueue.Len() == 0 || hm.executingCount >= hm.config.MaxActiveRequests {
			hm.queueLock.Unlock()
			return
		}
		req := heap.Pop(&hm.inferQueue).(*inferRequest)
		hm.executingCount++
		hm.queueLock.Unlock()

		hm.networkLock.Lock()
		nd, found := hm.networks[req.networkName]
		hm.networkLock.Unlock()
		if !found {
			// The network vanished while the request was queued; fail the
			// request, it holds no reference anymore.
			hm.completeRun(req, errors.Errorf("network %q not found", req.networkName))
			continue
		}

		hm.executor.Run(runtime.RunIdentifier(req.requestID), nd.dag.Root, req.ctx,
			func(runID runtime.RunIdentifier, err error, ctx *runtime.ExecutionContext) {
				req.callback(runID, err, ctx)
				hm.finishRun(req)
			})
	}
}

// completeRun fails a popped request without executing it.
func (hm *HostManager) completeRun(req *inferRequest, err error) {
	req.callback(runtime.RunIdentifier(req.requestID), err, req.ctx)
	hm.finishRun(req)
}

// finishRun releases the bookkeeping of a dispatched request after its
// callback returned, and pulls the next queued request in.
func (hm *HostManager) finishRun(req *inferRequest) {
	hm.releaseNetwork(req.networkName)
	hm.activeRequestCount.Add(-1)
	hm.queueLock.Lock()
	hm.executingCount--
	hm.idleCond.Broadcast()
	hm.queueLock.Unlock()
	hm.dispatchNextRun()
}

// releaseNetwork drops one reference on the network, if it still exists.
func (hm *HostManager) releaseNetwork(networkName string) {
	hm.networkLock.Lock()
	defer hm.networkLock.Unlock()
	if nd, found := hm.networks[networkName]; found {
		nd.refcount.Add(-1)
	}
}
