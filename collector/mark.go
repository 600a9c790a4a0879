// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// mark advances the current cycle. If incremental is false, it drains
// every gray stack to a fixed point before returning (used by Collect).
// If incremental is true, it processes one bounded increment per gray
// stack and returns, leaving work for the next call.
//
// Calling mark while already in PhaseCollect is a fast no-op: there is
// nothing left to trace until the next sweep returns the collector to
// PhasePause.
func (c *Collector) mark(incremental bool) {
	if c.phase == PhaseCollect {
		return
	}
	if c.phase == PhasePause {
		c.startCycle()
	}

	c.logEvent(EventMarkStart, map[string]any{"incremental": incremental})

	for {
		did := c.markIncrement(incremental)
		if incremental || !did {
			break
		}
		if c.grayStackSize == 0 {
			break
		}
	}

	if c.grayStackSize == 0 {
		c.phase = PhaseCollect
	}
	c.assert(incremental || c.phase == PhaseCollect, "incremental || phase == COLLECT")
	if c.deps.Stats != nil {
		c.deps.Stats.IncMarkIncrements()
	}
	c.logEvent(EventMarkDone, map[string]any{"gray_stack_size": c.grayStackSize, "phase": c.phase.String()})
}

// startCycle transitions PAUSE -> MARK: every shadow-stack root and
// every registered prebuilt object becomes part of the initial gray
// frontier.
func (c *Collector) startCycle() {
	c.phase = PhaseMark
	c.bytesSinceIncMark = 0

	for _, root := range c.shadow.roots() {
		c.pushObject(root)
	}
	for _, p := range c.prebuiltList {
		if info, ok := c.prebuilt[p]; ok {
			info.gray = true
		}
		c.pushGP(p)
	}
}

// markIncrement pops and traces one bounded batch from the
// general-purpose stack and from each arena's local stack, halving the
// batch size (down to IncMarkMin) when incremental is true. It reports
// whether it did any work at all.
func (c *Collector) markIncrement(incremental bool) bool {
	did := false

	if n := c.gp.len(); n > 0 {
		k := n
		if incremental {
			k = incrementSize(n, c.cfg.IncMarkMin)
		}
		for i := 0; i < k; i++ {
			obj, ok := c.gp.pop()
			if !ok {
				break
			}
			c.grayStackSize--
			c.popObject(obj)
			did = true
		}
	}

	for _, a := range c.al.arenaOrder {
		m := a.gstack.len()
		if m == 0 {
			continue
		}
		k := m
		if incremental {
			k = incrementSize(m, c.cfg.IncMarkMin)
		}
		for i := 0; i < k; i++ {
			obj, ok := a.gstack.pop()
			if !ok {
				break
			}
			c.grayStackSize--
			c.popObject(obj)
			did = true
		}
	}

	return did
}

// incrementSize halves n, floored at min, but never exceeds n.
func incrementSize(n, min int) int {
	k := n / 2
	if k < min {
		k = min
	}
	if k > n {
		k = n
	}
	return k
}

// pushObject is push_object: it enqueues obj for tracing iff obj is
// currently WHITE (or, for huge objects, currently unmarked), and in
// doing so blackens it. Prebuilt objects are never pushed here; they
// only ever enter a gray stack via the write barrier or startCycle's
// direct enqueue, since they carry no block-type to test.
func (c *Collector) pushObject(obj ObjectRef) {
	if !obj.Valid() {
		return
	}
	switch c.classify(obj) {
	case catHuge:
		if c.huge.mark(obj) {
			if e, ok := c.huge.get(obj); ok {
				e.gray = true
			}
			c.pushGP(obj)
		}
	case catPrebuilt:
		return
	default:
		a, ok := c.al.arenaFor(uintptr(obj))
		if !ok {
			return
		}
		idx := a.cellIndex(uintptr(obj))
		if a.blocks[idx] == blockWhite {
			a.gray[idx] = true
			a.blocks[idx] = blockBlack
			a.gstack.push(obj)
			c.grayStackSize++
		}
	}
}

// popObject is the trace-and-blacken step: clear obj's GRAY bit (it is
// about to be fully processed) and visit every outgoing reference,
// pushing each one in turn.
func (c *Collector) popObject(obj ObjectRef) {
	c.setObjGray(obj, false)
	if c.deps.Tracer == nil {
		return
	}
	c.deps.Tracer.Trace(obj, func(ref ObjectRef) {
		c.pushObject(ref)
	})
}
