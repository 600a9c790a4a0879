// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// prebuiltInfo tracks the two prebuilt-only bits for an object the host
// has declared to live outside managed arenas.
type prebuiltInfo struct {
	registered bool
	gray       bool
}

// DeclarePrebuilt tells the collector that obj lives outside managed
// arenas and is statically reachable. The core has no way to inspect an
// object's own flags word (it never dereferences objects), so the host
// must make this declaration before passing obj to any other method.
func (c *Collector) DeclarePrebuilt(obj ObjectRef) {
	if _, ok := c.prebuilt[obj]; ok {
		return
	}
	c.prebuilt[obj] = &prebuiltInfo{}
}

// classify identifies which of the three object categories obj belongs
// to. Huge-ness is decided by huge-table membership, which coincides
// with the address-equals-arena-base bitmask test described in the
// design notes: every huge region is allocated arena-aligned and
// singly-occupied, and cell 0 of an ordinary arena is reserved and
// never handed out, so no normal object can collide with it.
func (c *Collector) classify(obj ObjectRef) category {
	if _, ok := c.prebuilt[obj]; ok {
		return catPrebuilt
	}
	if c.huge.has(obj) {
		return catHuge
	}
	return catNormal
}

// objGray reports obj's current GRAY bit. Unknown addresses (not
// tracked by any arena, the huge table, or the prebuilt set) report
// false, which makes Write a harmless no-op on them.
func (c *Collector) objGray(obj ObjectRef) bool {
	switch c.classify(obj) {
	case catPrebuilt:
		return c.prebuilt[obj].gray
	case catHuge:
		e, ok := c.huge.get(obj)
		return ok && e.gray
	default:
		a, ok := c.al.arenaFor(uintptr(obj))
		if !ok {
			return false
		}
		return a.gray[a.cellIndex(uintptr(obj))]
	}
}

func (c *Collector) setObjGray(obj ObjectRef, v bool) {
	switch c.classify(obj) {
	case catPrebuilt:
		c.prebuilt[obj].gray = v
	case catHuge:
		if e, ok := c.huge.get(obj); ok {
			e.gray = v
		}
	default:
		if a, ok := c.al.arenaFor(uintptr(obj)); ok {
			a.gray[a.cellIndex(uintptr(obj))] = v
		}
	}
}

// pushGP enqueues obj directly on the general-purpose gray stack,
// keeping the running depth counter in sync.
func (c *Collector) pushGP(obj ObjectRef) {
	c.gp.push(obj)
	c.grayStackSize++
}

// MarkColor is the diagnostic get_mark_color operation: the tri-color
// state an external observer would see for obj right now.
func (c *Collector) MarkColor(obj ObjectRef) Color {
	switch c.classify(obj) {
	case catPrebuilt:
		if _, ok := c.prebuilt[obj]; !ok {
			return ColorInvalid
		}
		return ColorBlack
	case catHuge:
		e, ok := c.huge.get(obj)
		if !ok {
			return ColorInvalid
		}
		if e.mark {
			if e.gray {
				return ColorDarkGray
			}
			return ColorBlack
		}
		if e.gray {
			return ColorLightGray
		}
		return ColorWhite
	default:
		a, ok := c.al.arenaFor(uintptr(obj))
		if !ok {
			return ColorInvalid
		}
		idx := a.cellIndex(uintptr(obj))
		return colorOf(a.blocks[idx], a.gray[idx])
	}
}
