// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package partitioner turns one dataflow function into an executable
// multi-device DAG of sub-functions.
//
// Given the function, the device fleet and a compilation context, it picks a
// strategy -- user config, quantization profiling, load-balanced or
// heterogeneous -- assigns every operator to a sub-function on a backend that
// supports it within the device's memory budget, materialises the
// sub-functions with placeholders bridging every cut edge, and returns the
// DAG the host runtime provisions and executes.
package partitioner

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/compile"
	"github.com/heliosml/helios/graph"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
)

// allowedLoadImbalanceFraction tunes the load-balanced strategy: a node may
// join a partition even if that takes the partition past its time target, as
// long as the overshoot is below this fraction of the node's own cost,
// avoiding pathological spills to the next partition over tiny imbalances.
const allowedLoadImbalanceFraction = 0.5

// Options configures a Partitioner. The zero value is a valid default.
type Options struct {
	// SaturateHost replicates sub-functions onto otherwise idle devices so
	// the executor can round-robin across replicas.
	SaturateHost bool

	// Optimized marks the source functions as already optimized for their
	// backends. The partitioner runs no optimization step either way.
	Optimized bool

	// EnableLoadBalance turns on the load-balanced strategy for
	// single-backend fleets.
	EnableLoadBalance bool

	// LogPartition logs partition info and dumps the DAG to DAG.dot.
	LogPartition bool

	// DumpPartition dumps every sub-function's graph to a .dot file.
	DumpPartition bool

	// Config, when enabled, overrides strategy selection with the
	// user-defined partition.
	Config *runtime.PartitionConfig
}

// Partitioner partitions the functions of one module across a device fleet.
// It is single-use: Partition mutates the module (the source function is
// replaced by its sub-functions).
type Partitioner struct {
	module     *graph.Module
	deviceInfo []runtime.DeviceInfo
	registry   *backends.Registry
	provided   []backends.Backend
	opts       Options

	// memSize starts as the module constants size and grows to the
	// representative function's working set.
	memSize            uint64
	multiBackendNames  bool
	logicalDeviceCount int
	backendMap         map[string]*BackendInfo
}

// New returns a partitioner resolving backends by name through the registry.
func New(module *graph.Module, devices []runtime.DeviceInfo,
	registry *backends.Registry, opts Options) *Partitioner {
	p := &Partitioner{
		module:     module,
		deviceInfo: devices,
		registry:   registry,
		opts:       opts,
	}
	p.init()
	return p
}

// NewWithBackends returns a partitioner using pre-built backends, one per
// device (in device order), instead of resolving them through a registry.
func NewWithBackends(module *graph.Module, devices []runtime.DeviceInfo,
	bks []backends.Backend, opts Options) *Partitioner {
	p := &Partitioner{
		module:     module,
		deviceInfo: devices,
		provided:   bks,
		opts:       opts,
	}
	p.init()
	return p
}

func (p *Partitioner) init() {
	p.memSize = p.module.ConstantsSize()
	for i := 1; i < len(p.deviceInfo); i++ {
		if p.deviceInfo[i].BackendName != p.deviceInfo[0].BackendName {
			p.multiBackendNames = true
			break
		}
	}
}

// Partition runs strategy selection and returns one DAG per source function.
// Selection order: user config, quantization profiling, load-balanced (only
// for single-backend fleets with the flag on), heterogeneous.
func (p *Partitioner) Partition(cctx *compile.Context) (runtime.DAGList, error) {
	if err := cctx.Verify(); err != nil {
		return nil, errors.WithMessage(err, "malformed compilation context")
	}
	if len(p.deviceInfo) == 0 {
		return nil, errors.New("no devices provided to the partitioner")
	}

	if p.opts.Config.Enabled() {
		return p.partitionFromConfig(p.opts.Config)
	}
	if cctx.Precision.QuantMode == compile.QuantProfile {
		return p.quantizationProfilingPartition(cctx)
	}
	if !p.multiBackendNames && p.opts.EnableLoadBalance {
		return p.loadBalancedPartition(cctx, len(p.deviceInfo))
	}
	return p.heterogeneousPartition(cctx)
}

// genBackendMap builds the backend-name to BackendInfo aggregation from the
// device descriptors and returns the backends in caller priority order (the
// order of first appearance in the device list).
func (p *Partitioner) genBackendMap() ([]backends.Backend, error) {
	if p.backendMap != nil {
		bks := make([]backends.Backend, 0, len(p.backendMap))
		seen := types.MakeSet[string]()
		for _, dev := range p.deviceInfo {
			if !seen.Has(dev.BackendName) {
				seen.Insert(dev.BackendName)
				bks = append(bks, p.backendMap[dev.BackendName].Backend)
			}
		}
		return bks, nil
	}

	if len(p.provided) > 0 && len(p.provided) != len(p.deviceInfo) {
		return nil, errors.Errorf("number of backends (%d) and devices (%d) does not match",
			len(p.provided), len(p.deviceInfo))
	}

	p.backendMap = make(map[string]*BackendInfo)
	var bks []backends.Backend
	for i, dev := range p.deviceInfo {
		if info, found := p.backendMap[dev.BackendName]; found {
			info.Num++
			continue
		}
		var backend backends.Backend
		var err error
		if len(p.provided) > 0 {
			backend = p.provided[i]
			if backend.Name() != dev.BackendName {
				return nil, errors.Errorf("backend type mismatch: device %d wants %q, got %q",
					i, dev.BackendName, backend.Name())
			}
		} else if p.registry == nil {
			return nil, errors.Errorf("no registry to resolve backend %q", dev.BackendName)
		} else if backend, err = p.registry.Get(dev.BackendName); err != nil {
			return nil, err
		}
		// Devices of the same backend are assumed interchangeable: the first
		// descriptor's memory and rooflines stand for all of them.
		info := &BackendInfo{
			Num:                   1,
			MemSize:               dev.AvailableMemory,
			SRAMCapacity:          dev.SRAMCapacity,
			PeakCompute:           dev.PeakCompute,
			PeakDRAMBw:            dev.PeakDRAMBw,
			PeakSRAMBw:            dev.PeakSRAMBw,
			NonSupportedNodeKinds: types.SetWith(dev.NonSupportedNodes...),
			SupportedNodeKinds:    types.SetWith(dev.SupportedNodes...),
			Backend:               backend,
		}
		p.backendMap[dev.BackendName] = info
		bks = append(bks, backend)
	}
	return bks, nil
}

// selectRepFunc picks the representative function: the one with the largest
// input-placeholder working set, each function's accounting seeded with the
// module constants size.
func (p *Partitioner) selectRepFunc() (*graph.Function, uint64, error) {
	var rep *graph.Function
	var maxMemSize uint64
	for _, f := range p.module.Functions() {
		curSize := p.memSize
		seen := types.MakeSet[string]()
		for _, n := range f.Nodes() {
			if n.Kind() == graph.KindSave {
				continue
			}
			for _, in := range n.Inputs() {
				ph, ok := in.(*graph.Placeholder)
				if !ok || seen.Has(ph.Name()) {
					continue
				}
				seen.Insert(ph.Name())
				curSize += ph.SizeInBytes()
			}
		}
		if rep == nil || curSize > maxMemSize {
			rep = f
			maxMemSize = curSize
		}
	}
	if rep == nil {
		return nil, 0, errors.New("module contains no functions to partition")
	}
	return rep, maxMemSize, nil
}

// selectPartitions cuts the function along BFS levels so each partition's
// working set fits availableMemory, then runs the adjust passes.
func (p *Partitioner) selectPartitions(f *graph.Function, availableMemory uint64,
	backendName string) *NodeToFunctionMap {

	mapping := NewNodeToFunctionMap()
	bfs := getBFSLevel(f)

	color := 0
	newPartition := func() *graph.Function {
		color++
		nf := p.module.CreateFunction(fmt.Sprintf("%s_part%d", f.Name(), color))
		mapping.CreatePartition(nf, backendName)
		return nf
	}

	newF := newPartition()
	current := types.MakeSet[*graph.Node]()
	for i := len(bfs) - 1; i >= 0; i-- {
		for _, n := range bfs[i] {
			candidate := updateGraphMemInfoByAddingNode(current, n)
			if candidate.TotalMemSize() > availableMemory && len(current) > 0 {
				// n doesn't fit: close the current partition and start a new
				// one with n alone. A node exceeding the budget all by
				// itself stays and is reported by memory validation.
				newF = newPartition()
				current = types.MakeSet[*graph.Node]()
				candidate = updateGraphMemInfoByAddingNode(current, n)
			}
			current.Insert(n)
			mapping.Add(n, newF)
			mapping.SetGraphMemInfo(newF, candidate)
		}
	}

	partitionsAdjust(mapping, availableMemory)
	return mapping
}

// backendBasedPartition splits the function by backend support: walking BFS
// levels deep-to-shallow, a new partition opens whenever the chosen backend
// changes. In profiling mode every partition is tagged with the profiling
// backend and the DAG is materialised immediately.
func (p *Partitioner) backendBasedPartition(funcToBackend *FunctionToBackendNameMap,
	f *graph.Function, bks []backends.Backend, cctx *compile.Context) (runtime.DAGList, error) {

	nodeToBackendName := make(map[*graph.Node]string, f.NumNodes())
	for _, n := range f.Nodes() {
		// First backend in priority order that accepts the node wins.
		for _, backend := range bks {
			if p.backendMap[backend.Name()].Accepts(n) {
				nodeToBackendName[n] = backend.Name()
				break
			}
		}
		if _, found := nodeToBackendName[n]; !found {
			return nil, errors.Errorf("node %q (%s) is not supported by any of the provided backends",
				n.Name(), n.Kind())
		}
	}

	mapping := NewNodeToFunctionMap()
	profile := cctx.Precision.QuantMode == compile.QuantProfile
	color := 0
	newPartition := func(backendName string) *graph.Function {
		color++
		nf := p.module.CreateFunction(fmt.Sprintf("%s_part%d", f.Name(), color))
		if profile {
			backendName = backends.ProfilingBackendName
		}
		mapping.CreatePartition(nf, backendName)
		funcToBackend.Set(nf, backendName)
		return nf
	}

	bfs := getBFSLevel(f)
	level := len(bfs)
	backendName := nodeToBackendName[bfs[level-1][0]]
	newF := newPartition(backendName)
	for i := level - 1; i >= 0; i-- {
		for _, n := range bfs[i] {
			if bk := nodeToBackendName[n]; bk != backendName {
				backendName = bk
				newF = newPartition(backendName)
			}
			mapping.Add(n, newF)
		}
	}

	// Profiling stops after the backend split, so its DAG is generated here;
	// otherwise the heterogeneous flow continues with the memory cut and
	// generates the DAG itself.
	genDAG := profile
	if genDAG {
		id := runtime.DeviceID(0)
		for _, part := range mapping.Partitions() {
			mapping.AppendLogicalDeviceID(part, id)
			id++
		}
	}
	return doPartitioning(f.Name(), []*graph.Function{f}, p.module, mapping, genDAG), nil
}

// createDAGWithoutPartition emits the trivial DAG (synthetic root fanning
// out to one sub-function per source function) for modules that fit a single
// device.
func (p *Partitioner) createDAGWithoutPartition(backendName string) (runtime.DAGList, error) {
	var partitions runtime.DAGList
	for _, f := range p.module.Functions() {
		root := &runtime.DAGNode{
			Name:           f.Name(),
			Module:         p.module,
			LogicalDevices: []runtime.DeviceID{0},
		}
		node := &runtime.DAGNode{
			Name:           f.Name(),
			BackendName:    backendName,
			Module:         p.module,
			LogicalDevices: []runtime.DeviceID{0},
		}
		root.Children = append(root.Children, node)
		node.Parents = append(node.Parents, root)
		partitions = append(partitions, runtime.DAG{Root: root, Nodes: []*runtime.DAGNode{node}})
	}
	if p.opts.SaturateHost {
		p.saturateHost(1, partitions)
	}
	if err := p.finalize(partitions, NewNodeToFunctionMap()); err != nil {
		return nil, err
	}
	return partitions, nil
}

// heterogeneousPartition is the default flow: split by backend support when
// the fleet is heterogeneous, then cut each backend-split function by
// memory.
func (p *Partitioner) heterogeneousPartition(cctx *compile.Context) (runtime.DAGList, error) {
	bks, err := p.genBackendMap()
	if err != nil {
		return nil, err
	}
	repF, memSize, err := p.selectRepFunc()
	if err != nil {
		return nil, err
	}
	p.memSize = memSize
	origName := repF.Name()

	funcToBackend := NewFunctionToBackendNameMap()
	if len(bks) == 1 {
		backendName := bks[0].Name()
		if p.memSize < p.backendMap[backendName].MemSize {
			if p.opts.LogPartition {
				klog.Infof("the model is too small for applying partition: model size %s, backend %q, device memory %s",
					humanize.IBytes(p.memSize), backendName, humanize.IBytes(p.backendMap[backendName].MemSize))
			}
			return p.createDAGWithoutPartition(backendName)
		}
		if len(p.module.Functions()) != 1 {
			return nil, errors.Errorf(
				"%d functions in a module: the heterogeneous partition flow supports a single function",
				len(p.module.Functions()))
		}
		funcToBackend.Set(repF, backendName)
	} else {
		if len(p.module.Functions()) != 1 {
			return nil, errors.Errorf(
				"%d functions in a module: the heterogeneous partition flow supports a single function",
				len(p.module.Functions()))
		}
		if _, err := p.backendBasedPartition(funcToBackend, repF, bks, cctx); err != nil {
			return nil, err
		}
		p.module.EraseFunction(repF)
	}

	mapping := NewNodeToFunctionMap()
	funcs := make([]*graph.Function, 0, len(funcToBackend.Functions()))
	for _, fn := range funcToBackend.Functions() {
		backendName := funcToBackend.BackendName(fn)
		funcs = append(funcs, fn)
		if err := fn.Verify(); err != nil {
			return nil, errors.WithMessagef(err, "backend split led to invalid function %q", fn.Name())
		}
		partMap := p.selectPartitions(fn, p.backendMap[backendName].MemSize, backendName)
		mapping.Insert(partMap)
	}

	if err := memoryUsageValidation(mapping, p.backendMap); err != nil {
		return nil, err
	}
	p.logicalDeviceCount = assignLogicalDeviceID(mapping, p.backendMap)
	if err := logicalDevicesValidation(mapping, p.backendMap); err != nil {
		return nil, err
	}

	partitions := doPartitioning(origName, funcs, p.module, mapping, true)

	if p.opts.SaturateHost && len(bks) == 1 && len(mapping.Partitions()) < len(p.deviceInfo) {
		p.saturateHost(p.logicalDeviceCount, partitions)
	}

	for _, fn := range funcToBackend.Functions() {
		p.module.EraseFunction(fn)
	}

	if err := p.finalize(partitions, mapping); err != nil {
		return nil, err
	}
	return partitions, nil
}

// loadBalancedPartition spreads one function over numDevices same-backend
// partitions, balancing roofline runtime while honoring memory. A node is
// placed at or after the highest partition of its inputs, so cross-partition
// edges always point from lower to higher partition ids and the DAG is
// acyclic by construction.
func (p *Partitioner) loadBalancedPartition(cctx *compile.Context, numDevices int) (runtime.DAGList, error) {
	if len(p.module.Functions()) != 1 {
		return nil, errors.Errorf(
			"%d functions in a module: the load-balanced partition flow supports a single function",
			len(p.module.Functions()))
	}
	if p.multiBackendNames {
		klog.V(1).Info("load-balanced partition does not apply to multiple backend types; " +
			"falling back to heterogeneous partition")
		return p.heterogeneousPartition(cctx)
	}

	bks, err := p.genBackendMap()
	if err != nil {
		return nil, err
	}
	repF, memSize, err := p.selectRepFunc()
	if err != nil {
		return nil, err
	}
	p.memSize = memSize
	origName := repF.Name()

	backendName := bks[0].Name()
	backendInfo := p.backendMap[backendName]
	availableMemory := backendInfo.MemSize

	// Step 1: the memory-bounded cut gives a lower bound on the partition
	// count; the device count is raised to it if needed.
	lowerBoundMap := p.selectPartitions(repF, availableMemory, backendName)
	lowerBound := len(lowerBoundMap.Partitions())
	for _, part := range lowerBoundMap.Partitions() {
		p.module.EraseFunction(part)
	}
	if lowerBound > numDevices {
		numDevices = lowerBound
	}

	// Step 2: walk BFS levels deep-to-shallow, placing each node in the
	// first partition at or after its inputs' maximum partition that has
	// memory available and is under its share of the roofline runtime.
	var totalRooflineTime float64
	for _, n := range repF.Nodes() {
		totalRooflineTime += nodeComputeTime(n, backendInfo)
	}
	timePerPartition := totalRooflineTime / float64(numDevices)

	deviceTime := make([]float64, numDevices)
	memoryAvailable := make([]uint64, numDevices)
	nodesInPartitions := make([]NodesSet, numDevices)
	partitionFuncs := make([]*graph.Function, numDevices)
	partitionMap := NewNodeToFunctionMap()
	partitionOf := make(map[*graph.Function]int, numDevices)
	for i := 0; i < numDevices; i++ {
		memoryAvailable[i] = availableMemory
		nodesInPartitions[i] = types.MakeSet[*graph.Node]()
		name := fmt.Sprintf("%s_part%d", repF.Name(), i+1)
		if old := p.module.Function(name); old != nil {
			p.module.EraseFunction(old)
		}
		nf := p.module.CreateFunction(name)
		partitionMap.CreatePartition(nf, backendName)
		partitionMap.AppendLogicalDeviceID(nf, runtime.DeviceID(i))
		partitionFuncs[i] = nf
		partitionOf[nf] = i
	}

	bfs := getBFSLevel(repF)
	for i := len(bfs) - 1; i >= 0; i-- {
		for _, n := range bfs[i] {
			maxInputPartition := 0
			for _, in := range n.InputNodes() {
				if inF := partitionMap.Get(in); inF != nil {
					if id := partitionOf[inF]; id > maxInputPartition {
						maxInputPartition = id
					}
				}
			}

			curOpTime := nodeComputeTime(n, backendInfo)
			curOpMemory := nodeMemUsage(n)

			placed := false
			for cur := maxInputPartition; cur < numDevices; cur++ {
				loadBalanceValid := deviceTime[cur]+curOpTime*allowedLoadImbalanceFraction < timePerPartition
				memValid := memoryAvailable[cur] >= curOpMemory
				if !memValid || (!loadBalanceValid && cur != numDevices-1) {
					continue
				}
				f := partitionFuncs[cur]
				partitionMap.Add(n, f)
				deviceTime[cur] += curOpTime
				memoryAvailable[cur] -= curOpMemory
				nodesInPartitions[cur].Insert(n)
				partitionMap.SetGraphMemInfo(f, getGraphMemInfo(nodesInPartitions[cur]))
				placed = true
				break
			}
			if !placed {
				return nil, errors.Errorf("load balance partition error: node %q fits no partition", n.Name())
			}
		}
	}
	for i := 0; i < numDevices; i++ {
		klog.V(1).Infof("partition #%d has estimated runtime %g", i, deviceTime[i])
	}

	// Partitions the placement never used are dropped rather than carried as
	// empty sub-functions.
	for i := numDevices - 1; i >= 0; i-- {
		if len(nodesInPartitions[i]) == 0 {
			partitionMap.RemovePartition(partitionFuncs[i])
			p.module.EraseFunction(partitionFuncs[i])
		}
	}

	if err := memoryUsageValidation(partitionMap, p.backendMap); err != nil {
		return nil, err
	}
	p.logicalDeviceCount = assignLogicalDeviceID(partitionMap, p.backendMap)
	if err := logicalDevicesValidation(partitionMap, p.backendMap); err != nil {
		return nil, err
	}

	partitions := doPartitioning(origName, []*graph.Function{repF}, p.module, partitionMap, true)
	p.module.EraseFunction(repF)

	if p.opts.SaturateHost && len(partitionMap.Partitions()) < len(p.deviceInfo) {
		p.saturateHost(p.logicalDeviceCount, partitions)
	}

	if err := p.finalize(partitions, partitionMap); err != nil {
		return nil, err
	}
	return partitions, nil
}

// quantizationProfilingPartition splits by backend support only: profiling
// runs every partition on the profiling backend, the concrete memory cut is
// unnecessary, but the backend split is needed to map quantized tensors back
// to original ones.
func (p *Partitioner) quantizationProfilingPartition(cctx *compile.Context) (runtime.DAGList, error) {
	if len(p.module.Functions()) != 1 {
		return nil, errors.Errorf(
			"%d functions in a module: the quantization profiling partition flow supports a single function",
			len(p.module.Functions()))
	}
	bks, err := p.genBackendMap()
	if err != nil {
		return nil, err
	}
	repF, memSize, err := p.selectRepFunc()
	if err != nil {
		return nil, err
	}
	p.memSize = memSize

	funcToBackend := NewFunctionToBackendNameMap()
	partitions, err := p.backendBasedPartition(funcToBackend, repF, bks, cctx)
	if err != nil {
		return nil, err
	}
	p.module.EraseFunction(repF)

	for _, subF := range p.module.Functions() {
		if err := subF.Verify(); err != nil {
			return nil, errors.WithMessagef(err, "conversion led to invalid function %q", subF.Name())
		}
	}
	if p.opts.LogPartition {
		klog.Infof("profiling a model to be partitioned across different backends; "+
			"each sub-network will run on the %s backend", backends.ProfilingBackendName)
	}
	return partitions, nil
}

// partitionFromConfig applies a user-defined partition: fixed named
// partitions with target backends and an explicit node to partition mapping.
// Nodes absent from the mapping all go to the single partition that received
// no mapped nodes.
func (p *Partitioner) partitionFromConfig(config *runtime.PartitionConfig) (runtime.DAGList, error) {
	if _, err := p.genBackendMap(); err != nil {
		return nil, err
	}
	f := p.module.Function(config.FuncName)
	if f == nil {
		return nil, errors.Errorf("can't find function %q in current module", config.FuncName)
	}
	if config.NumOfPartitions != len(config.BackendNames) ||
		config.NumOfPartitions != len(config.PartitionNames) {
		return nil, errors.Errorf(
			"invalid user-defined partition config: %d partitions, %d backend names, %d partition names",
			config.NumOfPartitions, len(config.BackendNames), len(config.PartitionNames))
	}

	partitionMap := NewNodeToFunctionMap()
	funcList := make([]*graph.Function, config.NumOfPartitions)
	nodesSets := make([]NodesSet, config.NumOfPartitions)
	unused := types.MakeSet[int]()
	for i := 0; i < config.NumOfPartitions; i++ {
		nf := p.module.CreateFunction(config.PartitionNames[i])
		funcList[i] = nf
		nodesSets[i] = types.MakeSet[*graph.Node]()
		partitionMap.CreatePartition(nf, config.BackendNames[i])
		unused.Insert(i)
	}

	var unmapped []*graph.Node
	for _, n := range f.Nodes() {
		id, found := config.NodeToPartition[n.Name()]
		if !found {
			unmapped = append(unmapped, n)
			continue
		}
		if id < 0 || id >= config.NumOfPartitions {
			return nil, errors.Errorf("invalid partition id %d for node %q", id, n.Name())
		}
		partitionMap.Add(n, funcList[id])
		nodesSets[id].Insert(n)
		unused.Delete(id)
	}
	if len(unmapped) > 0 {
		if len(unused) != 1 {
			return nil, errors.Errorf(
				"%d nodes are unmapped but %d partitions received no mapped nodes; exactly 1 is required",
				len(unmapped), len(unused))
		}
		id := unused.Keys()[0]
		for _, n := range unmapped {
			partitionMap.Add(n, funcList[id])
			nodesSets[id].Insert(n)
		}
	}

	for i := 0; i < config.NumOfPartitions; i++ {
		partitionMap.SetGraphMemInfo(funcList[i], getGraphMemInfo(nodesSets[i]))
	}
	if err := memoryUsageValidation(partitionMap, p.backendMap); err != nil {
		return nil, err
	}
	p.logicalDeviceCount = assignLogicalDeviceID(partitionMap, p.backendMap)
	if err := logicalDevicesValidation(partitionMap, p.backendMap); err != nil {
		return nil, err
	}

	partitions := doPartitioning(f.Name(), []*graph.Function{f}, p.module, partitionMap, true)
	p.module.EraseFunction(f)

	if err := dagValidation(partitions[0]); err != nil {
		return nil, err
	}
	if err := p.finalize(partitions, partitionMap); err != nil {
		return nil, err
	}
	return partitions, nil
}

// saturateHost appends extra logical devices to every DAG node when the
// fleet has at least twice as many devices as logical devices in use, so the
// provisioner loads replicas the executor round-robins over. New ids are
// original + i*logicalDeviceCount, which cannot collide across nodes.
func (p *Partitioner) saturateHost(logicalDeviceCount int, partitions runtime.DAGList) {
	if logicalDeviceCount == 0 {
		return
	}
	duplications := len(p.deviceInfo) / logicalDeviceCount
	if duplications < 2 {
		return
	}
	for _, dag := range partitions {
		for _, node := range dag.Nodes {
			var newDevices []runtime.DeviceID
			for _, logical := range node.LogicalDevices {
				for i := 1; i < duplications; i++ {
					newDevices = append(newDevices, logical+runtime.DeviceID(i*logicalDeviceCount))
				}
			}
			node.LogicalDevices = append(node.LogicalDevices, newDevices...)
		}
	}
}
