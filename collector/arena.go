// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// Arena is a contiguous, aligned cell region. Its base address is
// recoverable from any cell address it contains by masking off the low
// bits, which is also how the collector tells a huge object (whose
// address equals its own arena's base) apart from a normal object
// (which can never start at cell 0 -- that cell is reserved for this
// bookkeeping invariant rather than for any mutator-visible object).
type Arena struct {
	base      uintptr
	size      uintptr
	cellSize  uintptr
	numCells  int
	blocks    []blockType
	gray      []bool
	spanLen   []int
	bumpNext  int
	gstack    grayStack
}

func newArena(base, size, cellSize uintptr) *Arena {
	numCells := int(size / cellSize)
	a := &Arena{
		base:     base,
		size:     size,
		cellSize: cellSize,
		numCells: numCells,
		blocks:   make([]blockType, numCells),
		gray:     make([]bool, numCells),
		spanLen:  make([]int, numCells),
		bumpNext: 1, // cell 0 is reserved, never allocatable
	}
	a.blocks[0] = blockExtent
	return a
}

// cellIndex returns the index of the cell containing addr. The caller
// is responsible for ensuring addr falls within this arena.
func (a *Arena) cellIndex(addr uintptr) int {
	return int((addr - a.base) / a.cellSize)
}

func (a *Arena) cellAddr(idx int) uintptr {
	return a.base + uintptr(idx)*a.cellSize
}

// contains reports whether addr falls within this arena's region.
func (a *Arena) contains(addr uintptr) bool {
	return addr >= a.base && addr < a.base+a.size
}

// empty reports whether every cell is FREE, i.e. the arena holds no
// live object and no unswept tail after a sweep pass.
func (a *Arena) empty() bool {
	for i := 1; i < a.numCells; i++ {
		if a.blocks[i] != blockFree {
			return false
		}
	}
	return true
}

func arenaBase(addr, arenaSize uintptr) uintptr {
	return addr &^ (arenaSize - 1)
}
