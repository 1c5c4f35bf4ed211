// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DumpDOT writes the function in Graphviz dot format: one box per node, one
// ellipse per placeholder read or written.
func (f *Function) DumpDOT(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", f.name)
	seenPH := make(map[*Placeholder]bool)
	ph := func(p *Placeholder) {
		if !seenPH[p] {
			seenPH[p] = true
			fmt.Fprintf(&sb, "  %q [shape=ellipse label=%q];\n", "ph_"+p.Name(), p.String())
		}
	}
	for _, n := range f.nodeList {
		fmt.Fprintf(&sb, "  %q [shape=box label=%q];\n", n.name, fmt.Sprintf("%s\n%s", n.kind, n.name))
		for _, in := range n.inputs {
			switch in := in.(type) {
			case *Node:
				fmt.Fprintf(&sb, "  %q -> %q;\n", in.name, n.name)
			case *Placeholder:
				ph(in)
				fmt.Fprintf(&sb, "  %q -> %q;\n", "ph_"+in.Name(), n.name)
			}
		}
		if n.savedTo != nil {
			ph(n.savedTo)
			fmt.Fprintf(&sb, "  %q -> %q;\n", n.name, "ph_"+n.savedTo.Name())
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return errors.WithStack(err)
}

// SaveDOT writes the dot rendering of the function to the given path.
func (f *Function) SaveDOT(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	defer file.Close()
	return f.DumpDOT(file)
}
