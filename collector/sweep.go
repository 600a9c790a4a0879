// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// sweep reclaims every object that did not survive this cycle, rebuilds
// the free-list allocator state, updates weakrefs, and returns the
// collector to PhasePause. Its precondition is phase == PhaseCollect,
// i.e. mark has drained to a fixed point.
func (c *Collector) sweep() {
	if c.phase != PhaseCollect {
		return
	}

	c.logEvent(EventSweepStart, map[string]any{"arenas": len(c.al.arenaOrder)})

	freedHuge := c.huge.sweep()
	for _, f := range freedHuge {
		if c.deps.ArenaPager != nil {
			_ = c.deps.ArenaPager.FreeRegion(uintptr(f.Addr), f.Size)
		}
	}

	c.al.resetFreeLists()

	var retired []*Arena
	kept := c.al.arenaOrder[:0]
	for _, a := range c.al.arenaOrder {
		isCurrent := a == c.al.current
		hasSurvivor := c.reclaimArena(a, isCurrent)
		if !hasSurvivor && !isCurrent {
			// Every object in this arena was garbage this cycle: the
			// whole region is recycled wholesale, so its cells are
			// never registered as individual free-list entries.
			retired = append(retired, a)
			continue
		}
		c.coalesceArena(a, isCurrent)
		kept = append(kept, a)
	}
	c.al.arenaOrder = kept

	// Retired arenas stay in arenasByBase: acquireArena recycles the
	// same *Arena in place, so the base-to-arena mapping remains valid
	// across reuse and arenaFor keeps working for addresses inside it.
	c.al.freeArenas = append(c.al.freeArenas, retired...)

	c.phase = PhasePause

	// Prefer the bump path when the largest contiguous free region
	// holds more than half of all free cells. Both allocNormal paths
	// fall back to the other on failure, so this is an ordering
	// preference, not an exclusivity constraint.
	c.al.useBumpAllocator = c.al.freeCells < 2*c.al.largestFreeBlock

	c.updateWeakrefs()

	if c.deps.Stats != nil {
		c.deps.Stats.SetFreeCells(c.al.freeCells)
	}

	c.logEvent(EventSweepDone, map[string]any{
		"free_cells":     c.al.freeCells,
		"retired_arenas": len(retired),
		"freed_huge":     len(freedHuge),
	})
}

// reclaimArena flips a's BLACK (survived) spans back to WHITE -- the new
// cycle's unmarked-but-live state -- and its WHITE (never reached)
// spans to FREE, without touching the free-list allocator. It reports
// whether any survivor remains, which the caller uses to decide whether
// the whole arena can instead be retired to the recycling pool. The
// current bump arena's still-unused tail (cells >= bumpNext) is left
// untouched: it was never allocated from, so it carries nothing to
// reclaim.
func (c *Collector) reclaimArena(a *Arena, isCurrent bool) (hasSurvivor bool) {
	limit := a.numCells
	if isCurrent {
		limit = a.bumpNext
	}

	for i := 1; i < limit; {
		switch a.blocks[i] {
		case blockBlack:
			span := a.spanLen[i]
			if span < 1 {
				span = 1
			}
			a.blocks[i] = blockWhite
			a.gray[i] = false
			hasSurvivor = true
			i += span
		case blockWhite:
			span := a.spanLen[i]
			if span < 1 {
				span = 1
			}
			for j := 0; j < span; j++ {
				a.blocks[i+j] = blockFree
				a.gray[i+j] = false
				a.spanLen[i+j] = 0
			}
			i += span
		default:
			i++
		}
	}
	return hasSurvivor
}

// coalesceArena registers a's contiguous FREE runs (the result of a
// prior reclaimArena pass) with the fit allocator's free lists. Called
// only for arenas that are being kept, never for ones about to be
// retired to the recycling pool.
func (c *Collector) coalesceArena(a *Arena, isCurrent bool) {
	limit := a.numCells
	if isCurrent {
		limit = a.bumpNext
	}

	runStart := -1
	flushRun := func(end int) {
		if runStart < 0 {
			return
		}
		c.al.registerFreeBlock(a, runStart, end-runStart)
		runStart = -1
	}

	for i := 1; i < limit; i++ {
		if a.blocks[i] == blockFree {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flushRun(i)
		}
	}
	flushRun(limit)
}

// updateWeakrefs runs after reclamation, when a surviving normal
// object's block-type is WHITE (this cycle's freshly-reclaimed live
// state) and a collected one's is FREE. Both BLACK and WHITE are
// accepted as "holder survived" / "target survived" since a holder
// that is itself mid-trace at weakref-registration time could in
// principle still read BLACK here in an implementation that interleaves
// differently; this one always reclaims before resolving weakrefs, so
// BLACK will not actually occur, but the check costs nothing extra.
// A record whose holder and target both survived stays in the bag and
// is checked again after the next sweep; every other record is dropped.
func (c *Collector) updateWeakrefs() {
	kept := c.weakrefs.records[:0]
	for _, rec := range c.weakrefs.records {
		if !c.survived(rec.holder) {
			continue
		}
		target := *rec.slot
		if !target.Valid() {
			continue
		}
		if !c.survived(target) {
			*rec.slot = 0
			continue
		}
		kept = append(kept, rec)
	}
	c.weakrefs.records = kept
}

// survived reports whether obj is still live immediately after
// reclamation: prebuilt objects always are, huge objects are iff they
// remain in the huge table, and normal objects are iff their head cell
// is not FREE or EXTENT.
func (c *Collector) survived(obj ObjectRef) bool {
	switch c.classify(obj) {
	case catPrebuilt:
		return true
	case catHuge:
		return c.huge.has(obj)
	default:
		a, ok := c.al.arenaFor(uintptr(obj))
		if !ok {
			return false
		}
		bt := a.blocks[a.cellIndex(uintptr(obj))]
		return bt == blockWhite || bt == blockBlack
	}
}
