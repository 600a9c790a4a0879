// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1 -- linear chain collection.
func TestScenarioLinearChainSurvives(t *testing.T) {
	tracer := newFakeTracer()
	c := newTestCollector(tracer, nil)

	a, err := c.Allocate(8)
	require.NoError(t, err)
	b, err := c.Allocate(8)
	require.NoError(t, err)
	cc, err := c.Allocate(8)
	require.NoError(t, err)

	tracer.setEdges(a, b)
	tracer.setEdges(b, cc)

	require.NoError(t, c.ShadowStackPush(a))

	c.Collect()

	assert.Equal(t, ColorWhite, c.MarkColor(a))
	assert.Equal(t, ColorWhite, c.MarkColor(b))
	assert.Equal(t, ColorWhite, c.MarkColor(cc))
	assert.Equal(t, 0, c.grayStackSize)
	assert.Equal(t, 0, grayStackDepth(c))
}

// S2 -- dropped tail: all three objects become garbage once the only
// root is popped, and the three freed cells coalesce into one block.
func TestScenarioDroppedTailFreesContiguousRun(t *testing.T) {
	tracer := newFakeTracer()
	c := newTestCollector(tracer, nil)

	a, err := c.Allocate(8)
	require.NoError(t, err)
	b, err := c.Allocate(8)
	require.NoError(t, err)
	cc, err := c.Allocate(8)
	require.NoError(t, err)
	tracer.setEdges(a, b)
	tracer.setEdges(b, cc)

	require.NoError(t, c.ShadowStackPush(a))
	popped, err := c.ShadowStackPop()
	require.NoError(t, err)
	require.Equal(t, a, popped)

	c.Collect()

	assert.Equal(t, 3, c.al.freeCells)
	assert.GreaterOrEqual(t, c.al.largestFreeBlock, 3)
}

// S3 -- the write barrier rescues a reference installed after its
// container was already blackened but before that container was
// actually traced in a later increment.
func TestScenarioBarrierRescuesLateReference(t *testing.T) {
	tracer := newFakeTracer()
	c := newTestCollector(tracer, nil)

	a, err := c.Allocate(8)
	require.NoError(t, err)

	// Pad the arena's gray stack with enough additional roots that the
	// first incremental pass cannot reach `a`, which was pushed first
	// and therefore sits at the bottom of its arena's LIFO gray stack.
	require.NoError(t, c.ShadowStackPush(a))
	var padding []ObjectRef
	for i := 0; i < 8; i++ {
		obj, err := c.Allocate(8)
		require.NoError(t, err)
		require.NoError(t, c.ShadowStackPush(obj))
		padding = append(padding, obj)
	}
	_ = padding

	c.mark(true)
	require.Equal(t, PhaseMark, c.phase)
	require.Equal(t, ColorDarkGray, c.MarkColor(a), "a must still be pending after one bounded increment")

	// write(a) before installing the new reference: idempotent, no
	// stack growth (invariant 4).
	depthBefore := grayStackDepth(c)
	c.Write(a)
	assert.Equal(t, depthBefore, grayStackDepth(c))

	b, err := c.Allocate(8)
	require.NoError(t, err)
	tracer.setEdges(a, b)

	c.Collect()

	assert.Equal(t, ColorWhite, c.MarkColor(b), "b must survive: a was traced after the reference was installed")
}

// S4 -- huge block lifecycle: tracked while rooted, released once
// dropped and swept.
func TestScenarioHugeBlockLifecycle(t *testing.T) {
	tracer := newFakeTracer()
	pager := newFakePager(0x200000)
	c := newTestCollector(tracer, pager)

	h, err := c.Allocate(c.cfg.largeAllocThreshold() + 1)
	require.NoError(t, err)
	require.True(t, c.huge.has(h))

	require.NoError(t, c.ShadowStackPush(h))
	c.Collect()

	require.True(t, c.huge.has(h))
	e, ok := c.huge.get(h)
	require.True(t, ok)
	assert.False(t, e.mark, "mark bit must be cleared for the next cycle")

	_, err = c.ShadowStackPop()
	require.NoError(t, err)
	c.Collect()

	assert.False(t, c.huge.has(h))
	assert.Contains(t, pager.freed, uintptr(h))
}

// S5 -- weakref clearing: a target that is never rooted is collected
// and its holder's slot is nulled.
func TestScenarioWeakrefClearing(t *testing.T) {
	tracer := newFakeTracer()
	c := newTestCollector(tracer, nil)

	target, err := c.Allocate(8)
	require.NoError(t, err)
	holder, err := c.Allocate(8)
	require.NoError(t, err)

	slot := target
	require.NoError(t, c.RegisterWeakref(holder, &slot))
	require.NoError(t, c.ShadowStackPush(holder))
	// holder does not keep target reachable: no edge installed.

	c.Collect()

	assert.Equal(t, ObjectRef(0), slot)
	assert.Equal(t, 0, c.weakrefs.len())
}

// S6 -- an alternating survive/dead pattern leaves free space scattered
// into single-cell holes, so the fit allocator is preferred over bump.
func TestScenarioFragmentationFallback(t *testing.T) {
	tracer := newFakeTracer()
	c := newTestCollector(tracer, nil)

	var survivors []ObjectRef
	for i := 0; i < 6; i++ {
		obj, err := c.Allocate(8)
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, c.ShadowStackPush(obj))
			survivors = append(survivors, obj)
		}
	}
	require.Len(t, survivors, 3)

	c.Collect()

	assert.False(t, c.al.useBumpAllocator)
	assert.Equal(t, 1, c.al.largestFreeBlock)
	assert.Equal(t, 3, c.al.freeCells)
}
