// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/quasiconcurrent/qcgc/collector"

// objectGraph is the demo's stand-in for a mutator's object model: a
// plain adjacency list the collector's Tracer collaborator walks.
type objectGraph struct {
	edges map[collector.ObjectRef][]collector.ObjectRef
}

func newObjectGraph() *objectGraph {
	return &objectGraph{edges: make(map[collector.ObjectRef][]collector.ObjectRef)}
}

func (g *objectGraph) link(from, to collector.ObjectRef) {
	g.edges[from] = append(g.edges[from], to)
}

// store overwrites obj's outgoing edges and fires the write barrier, the
// way a real mutator would pair a heap write with Write.
func (g *objectGraph) store(c *collector.Collector, obj, ref collector.ObjectRef) {
	g.edges[obj] = append(g.edges[obj], ref)
	c.Write(obj)
}

func (g *objectGraph) Trace(obj collector.ObjectRef, visit func(ref collector.ObjectRef)) {
	for _, ref := range g.edges[obj] {
		visit(ref)
	}
}
