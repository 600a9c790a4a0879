// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// freeBlock is a run of contiguous FREE cells registered with the fit
// allocator, tracked by arena and starting cell index.
type freeBlock struct {
	arena *Arena
	start int
	length int
}

// allocator is the allocation front-end: a bump pointer over the
// current arena's unswept tail, plus size-classed free lists serving a
// best-fit search, with delegation to the huge-block path above the
// configured threshold.
type allocator struct {
	cfg   Config
	pager ArenaPager

	arenasByBase map[uintptr]*Arena
	arenaOrder   []*Arena
	freeArenas   []*Arena
	current      *Arena

	// freeLists buckets free blocks by exact cell length. Allocation
	// looks for an exact match first, then scans ascending lengths.
	freeLists map[int][]*freeBlock

	useBumpAllocator bool
	freeCells        int
	largestFreeBlock int
}

func newAllocator(cfg Config, pager ArenaPager) *allocator {
	return &allocator{
		cfg:          cfg,
		pager:        pager,
		arenasByBase: make(map[uintptr]*Arena),
		freeLists:    make(map[int][]*freeBlock),
	}
}

func (al *allocator) cellsFor(size uintptr) int {
	n := size / al.cfg.CellSize
	if size%al.cfg.CellSize != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}

// arenaFor returns the arena containing addr, if any is registered.
func (al *allocator) arenaFor(addr uintptr) (*Arena, bool) {
	a, ok := al.arenasByBase[arenaBase(addr, al.cfg.ArenaSize)]
	return a, ok
}

// acquireArena returns a free arena from the recycling pool, or
// requests a fresh one from the pager.
func (al *allocator) acquireArena() (*Arena, error) {
	if n := len(al.freeArenas); n > 0 {
		a := al.freeArenas[n-1]
		al.freeArenas = al.freeArenas[:n-1]
		a.bumpNext = 1
		for i := 1; i < a.numCells; i++ {
			a.blocks[i] = blockFree
			a.gray[i] = false
			a.spanLen[i] = 0
		}
		al.arenaOrder = append(al.arenaOrder, a)
		return a, nil
	}
	base, err := al.pager.NewRegion(al.cfg.ArenaSize, al.cfg.ArenaSize)
	if err != nil {
		return nil, err
	}
	a := newArena(base, al.cfg.ArenaSize, al.cfg.CellSize)
	al.arenasByBase[base] = a
	al.arenaOrder = append(al.arenaOrder, a)
	return a, nil
}

// allocNormal serves a request for size bytes from the bump or fit
// path, preferring whichever the fragmentation policy currently
// favors.
func (al *allocator) allocNormal(size uintptr) (ObjectRef, error) {
	need := al.cellsFor(size)
	if al.useBumpAllocator {
		if obj, ok := al.tryBump(need); ok {
			return obj, nil
		}
		if obj, ok := al.tryFit(need); ok {
			return obj, nil
		}
	} else {
		if obj, ok := al.tryFit(need); ok {
			return obj, nil
		}
		if obj, ok := al.tryBump(need); ok {
			return obj, nil
		}
	}
	return 0, ErrAllocationFailed
}

func (al *allocator) tryBump(need int) (ObjectRef, bool) {
	if al.current == nil || al.current.bumpNext+need > al.current.numCells {
		a, err := al.acquireArena()
		if err != nil {
			return 0, false
		}
		al.current = a
	}
	if al.current.bumpNext+need > al.current.numCells {
		return 0, false
	}
	head := al.current.bumpNext
	al.placeObject(al.current, head, need)
	al.current.bumpNext += need
	return ObjectRef(al.current.cellAddr(head)), true
}

func (al *allocator) tryFit(need int) (ObjectRef, bool) {
	if blocks, ok := al.freeLists[need]; ok && len(blocks) > 0 {
		blk := blocks[len(blocks)-1]
		al.freeLists[need] = blocks[:len(blocks)-1]
		return al.consumeFreeBlock(blk, need), true
	}
	bestLen := -1
	for length, blocks := range al.freeLists {
		if length > need && len(blocks) > 0 && (bestLen == -1 || length < bestLen) {
			bestLen = length
		}
	}
	if bestLen == -1 {
		return 0, false
	}
	blocks := al.freeLists[bestLen]
	blk := blocks[len(blocks)-1]
	al.freeLists[bestLen] = blocks[:len(blocks)-1]
	return al.consumeFreeBlock(blk, need), true
}

// consumeFreeBlock carves need cells off the head of blk, returns the
// remainder (if any) to the free lists, and returns the newly placed
// object's address.
func (al *allocator) consumeFreeBlock(blk *freeBlock, need int) ObjectRef {
	al.freeCells -= blk.length
	al.placeObject(blk.arena, blk.start, need)
	remaining := blk.length - need
	if remaining > 0 {
		al.registerFreeBlock(blk.arena, blk.start+need, remaining)
	}
	return ObjectRef(blk.arena.cellAddr(blk.start))
}

func (al *allocator) registerFreeBlock(a *Arena, start, length int) {
	for i := 0; i < length; i++ {
		a.blocks[start+i] = blockFree
		a.spanLen[start+i] = 0
	}
	al.freeLists[length] = append(al.freeLists[length], &freeBlock{arena: a, start: start, length: length})
	al.freeCells += length
	if length > al.largestFreeBlock {
		al.largestFreeBlock = length
	}
}

func (al *allocator) placeObject(a *Arena, head, need int) {
	a.blocks[head] = blockWhite
	a.spanLen[head] = need
	for i := 1; i < need; i++ {
		a.blocks[head+i] = blockExtent
		a.spanLen[head+i] = 0
	}
}

// resetFreeLists clears all free-list bookkeeping ahead of a sweep,
// which rebuilds it from scratch.
func (al *allocator) resetFreeLists() {
	al.freeLists = make(map[int][]*freeBlock)
	al.freeCells = 0
	al.largestFreeBlock = 0
}
