// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package partitioner

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/heliosml/helios/runtime"
)

// finalize verifies every function left in the module and emits the optional
// partition logs and .dot dumps.
func (p *Partitioner) finalize(partitions runtime.DAGList, mapping *NodeToFunctionMap) error {
	for _, subF := range p.module.Functions() {
		if err := subF.Verify(); err != nil {
			return errors.WithMessagef(err, "conversion led to invalid function %q", subF.Name())
		}
	}

	if p.opts.LogPartition {
		klog.Infof("the number of partitions is %d, and the DAG is dumped into DAG.dot",
			len(p.module.Functions()))
		if err := dumpDAGDot("DAG.dot", partitions); err != nil {
			klog.Warningf("failed dumping DAG.dot: %v", err)
		}
		p.logPartitionInfo(mapping)
	}

	if p.opts.DumpPartition {
		for _, dag := range partitions {
			for _, node := range dag.Nodes {
				subF := p.module.Function(node.Name)
				if subF == nil {
					return errors.Errorf("invalid function name %q in DAG", node.Name)
				}
				path := fmt.Sprintf("partitionLogicalID%d__%s__%s.dot",
					node.LogicalDevices[0], subF.Name(), node.BackendName)
				if err := subF.SaveDOT(path); err != nil {
					klog.Warningf("failed dumping %s: %v", path, err)
				}
			}
		}
	}
	return nil
}

// logPartitionInfo logs one line per partition: backend, working set and
// logical devices.
func (p *Partitioner) logPartitionInfo(mapping *NodeToFunctionMap) {
	for _, part := range mapping.Partitions() {
		ids := mapping.LogicalDeviceIDs(part)
		strIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			strIDs = append(strIDs, fmt.Sprintf("%d", id))
		}
		klog.Infof("partition %q: backend=%s mem{%s} logicalDevices=[%s]",
			part.Name(), mapping.BackendName(part), mapping.GraphMemInfo(part),
			strings.Join(strIDs, ","))
	}
}

// dumpDAGDot writes the DAG-level graph (one box per sub-function) in
// Graphviz dot format.
func dumpDAGDot(path string, partitions runtime.DAGList) error {
	var sb strings.Builder
	sb.WriteString("digraph DAG {\n\trankdir=TB;\n")
	for _, dag := range partitions {
		fmt.Fprintf(&sb, "\t%q [shape=oval];\n", dag.Root.Name+"_root")
		for _, child := range dag.Root.Children {
			fmt.Fprintf(&sb, "\t%q -> %q;\n", dag.Root.Name+"_root", child.Name)
		}
		for _, node := range dag.Nodes {
			fmt.Fprintf(&sb, "\t%q [shape=box label=%q];\n",
				node.Name, fmt.Sprintf("%s\n%s", node.Name, node.BackendName))
			for _, child := range node.Children {
				fmt.Fprintf(&sb, "\t%q -> %q;\n", node.Name, child.Name)
			}
		}
	}
	sb.WriteString("}\n")
	return errors.WithStack(os.WriteFile(path, []byte(sb.String()), 0o644))
}
