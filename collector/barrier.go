// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// Write is the Dijkstra write barrier. obj is the container: the mutator
// must call Write(obj) before storing a new reference into any field of
// obj, whether or not a cycle is currently in progress -- shading here
// is what lets an in-progress mark treat a mutator write as "this might
// be a pointer into the white set I haven't traced yet" without racing
// the mutator, even though this collector is single-threaded and
// incremental rather than concurrent.
//
// Write is idempotent: shading an already-GRAY object is a no-op.
func (c *Collector) Write(obj ObjectRef) {
	if !obj.Valid() {
		return
	}
	if c.objGray(obj) {
		return
	}
	c.setObjGray(obj, true)

	cat := c.classify(obj)
	if cat == catPrebuilt {
		if info := c.prebuilt[obj]; !info.registered {
			c.prebuiltList = append(c.prebuiltList, obj)
			info.registered = true
		}
	}

	if c.phase == PhasePause {
		// GRAY is set for diagnostic purposes only; the next cycle's
		// start-of-cycle pass enqueues this object if and when it's
		// actually reached as a root or via trace.
		return
	}

	c.phase = PhaseMark

	switch cat {
	case catPrebuilt:
		c.pushGP(obj)
	case catHuge:
		if c.huge.isMarked(obj) {
			c.pushGP(obj)
		}
	default:
		a, ok := c.al.arenaFor(uintptr(obj))
		if !ok {
			return
		}
		idx := a.cellIndex(uintptr(obj))
		if a.blocks[idx] == blockBlack {
			a.gstack.push(obj)
			c.grayStackSize++
		}
	}
}
