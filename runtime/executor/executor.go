// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package executor walks a provisioned DAG for one inference request: a
// sub-function is dispatched to a device as soon as all of its parents have
// finished, replicated sub-functions round-robin across their devices, and
// the request callback fires once with the first error (or nil) when the
// traversal drains.
package executor

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/heliosml/helios/backends"
	"github.com/heliosml/helios/internal/workerspool"
	"github.com/heliosml/helios/runtime"
	"github.com/heliosml/helios/types"
	"github.com/heliosml/helios/types/xsync"
)

// Executor dispatches DAG node runs onto device managers. It is safe for
// concurrent use; each Run call keeps its own traversal state.
type Executor struct {
	devices map[runtime.DeviceID]backends.DeviceManager
	pool    *workerspool.Pool
}

// New returns an executor over the devices, running at most threads
// sub-function executions concurrently.
func New(devices map[runtime.DeviceID]backends.DeviceManager, threads int) *Executor {
	return &Executor{
		devices: devices,
		pool:    workerspool.NewWithParallelism(threads),
	}
}

// runState tracks one request's traversal.
type runState struct {
	mu        sync.Mutex
	remaining map[*runtime.DAGNode]int
	// outstanding counts nodes dispatched (plus the virtual root) whose
	// completion hasn't been processed; the callback fires when it drains.
	outstanding int
	err         error
}

// Run walks the DAG below root for the request and calls cb exactly once
// when every reachable sub-function finished or was skipped after a failure.
// cb is invoked from a worker goroutine.
func (e *Executor) Run(runID runtime.RunIdentifier, root *runtime.DAGNode,
	ctx *runtime.ExecutionContext, cb runtime.ResultCB) {

	st := &runState{remaining: make(map[*runtime.DAGNode]int)}
	for _, n := range collectNodes(root) {
		st.remaining[n] = len(n.Parents)
	}

	var complete func(n *runtime.DAGNode, runErr error)
	execute := func(n *runtime.DAGNode) {
		complete(n, e.runOnDevice(n, ctx))
	}
	complete = func(n *runtime.DAGNode, runErr error) {
		st.mu.Lock()
		if runErr != nil && st.err == nil {
			st.err = runErr
		}
		var ready []*runtime.DAGNode
		for _, child := range n.Children {
			st.remaining[child]--
			if st.remaining[child] == 0 && st.err == nil {
				ready = append(ready, child)
				st.outstanding++
			}
		}
		st.outstanding--
		finished := st.outstanding == 0
		err := st.err
		st.mu.Unlock()

		for _, next := range ready {
			next := next
			// complete usually runs on a worker; waiting for a free slot on a
			// separate goroutine lets that worker finish and release its own.
			go e.pool.WaitToStart(func() { execute(next) })
		}
		if finished {
			cb(runID, err, ctx)
		}
	}

	// The synthetic root maps to no function: completing it seeds the entry
	// sub-functions.
	st.outstanding = 1
	complete(root, nil)
}

// RunBlocking is a convenience wrapper around Run for callers without their
// own completion plumbing.
func (e *Executor) RunBlocking(runID runtime.RunIdentifier, root *runtime.DAGNode,
	ctx *runtime.ExecutionContext) error {

	latch := xsync.NewLatchWithValue[error]()
	e.Run(runID, root, ctx, func(_ runtime.RunIdentifier, err error, _ *runtime.ExecutionContext) {
		latch.Trigger(err)
	})
	return latch.Wait()
}

// runOnDevice runs one sub-function on the next device of its round-robin
// rotation.
func (e *Executor) runOnDevice(n *runtime.DAGNode, ctx *runtime.ExecutionContext) error {
	if len(n.DeviceIDs) == 0 {
		return errors.Errorf("DAG node %q was not provisioned onto any device", n.Name)
	}
	deviceID := n.NextDevice()
	device, found := e.devices[deviceID]
	if !found {
		return errors.Errorf("DAG node %q references unknown device %d", n.Name, deviceID)
	}
	klog.V(2).Infof("request %s: running %q on device %d", ctx.TraceID, n.Name, deviceID)
	return device.RunFunction(n.Name, ctx.Bindings)
}

// collectNodes returns every node reachable from root, excluding root.
func collectNodes(root *runtime.DAGNode) []*runtime.DAGNode {
	seen := types.MakeSet[*runtime.DAGNode]()
	var nodes []*runtime.DAGNode
	queue := append([]*runtime.DAGNode(nil), root.Children...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen.Has(n) {
			continue
		}
		seen.Insert(n)
		nodes = append(nodes, n)
		queue = append(queue, n.Children...)
	}
	return nodes
}
