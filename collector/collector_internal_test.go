// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import "fmt"

// fakeTracer is a hand-wired object graph: edges are installed by the
// test and can be mutated between calls to simulate the mutator storing
// a new reference into a live object.
type fakeTracer struct {
	edges map[ObjectRef][]ObjectRef
}

func newFakeTracer() *fakeTracer {
	return &fakeTracer{edges: make(map[ObjectRef][]ObjectRef)}
}

func (t *fakeTracer) Trace(obj ObjectRef, visit func(ref ObjectRef)) {
	for _, ref := range t.edges[obj] {
		visit(ref)
	}
}

func (t *fakeTracer) setEdges(obj ObjectRef, refs ...ObjectRef) {
	t.edges[obj] = refs
}

// fakePager hands out monotonically increasing, alignment-respecting
// addresses and records every region it is asked to free, in lieu of a
// real mmap-backed implementation.
type fakePager struct {
	next  uintptr
	freed map[uintptr]uintptr
}

func newFakePager(start uintptr) *fakePager {
	return &fakePager{next: start, freed: make(map[uintptr]uintptr)}
}

func (p *fakePager) NewRegion(size, align uintptr) (uintptr, error) {
	base := roundUp(p.next, align)
	p.next = base + size
	return base, nil
}

func (p *fakePager) FreeRegion(base, size uintptr) error {
	p.freed[base] = size
	return nil
}

// fakeConfigSource answers Lookup from a plain map.
type fakeConfigSource map[string]string

func (s fakeConfigSource) Lookup(name string) (string, bool) {
	v, ok := s[name]
	return v, ok
}

// fakeStats counts every call it receives, for assertions that the
// controller actually drives StatsSink.
type fakeStats struct {
	bytesAllocated uintptr
	collections    int
	markIncrements int
	freeCells      int
}

func (s *fakeStats) AddBytesAllocated(n uintptr) { s.bytesAllocated += n }
func (s *fakeStats) IncCollections()             { s.collections++ }
func (s *fakeStats) IncMarkIncrements()          { s.markIncrements++ }
func (s *fakeStats) SetFreeCells(n int)          { s.freeCells = n }

// recordingLogger stores every event it sees, in order.
type recordingLogger struct {
	events []string
}

func (l *recordingLogger) Event(name string, fields map[string]any) {
	l.events = append(l.events, name)
}

// newTestCollector builds a Collector sized for small, deterministic
// test arenas: 8-byte cells, 16 cells per arena (128 bytes), a 128-byte
// large-allocation threshold, and aggressive-but-explicit mark/major
// thresholds so tests control exactly when a cycle starts.
func newTestCollector(tracer Tracer, pager ArenaPager) *Collector {
	if tracer == nil {
		tracer = newFakeTracer()
	}
	if pager == nil {
		pager = newFakePager(0x100000)
	}
	cfg := Config{
		CellSize:             8,
		ArenaSize:            128,
		LargeAllocExp:        7, // threshold 128 bytes, so nothing here is "huge" by accident
		IncMarkMin:           1,
		MajorCollectionBytes: 1 << 30,
		IncMarkBytes:         1 << 30,
		ShadowStackCapacity:  64,
	}
	c, err := New(cfg, Dependencies{Tracer: tracer, ArenaPager: pager})
	if err != nil {
		panic(fmt.Sprintf("newTestCollector: %v", err))
	}
	return c
}

// grayStackDepth sums the general-purpose and every arena's local gray
// stack depth, for invariant 3 ("gray_stack_size equals the sum...").
func grayStackDepth(c *Collector) int {
	n := c.gp.len()
	for _, a := range c.al.arenaOrder {
		n += a.gstack.len()
	}
	return n
}
