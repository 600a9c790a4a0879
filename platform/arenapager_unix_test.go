// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapArenaPagerAlignment(t *testing.T) {
	p := NewMmapArenaPager()
	const align = 1 << 16

	base, err := p.NewRegion(align, align)
	require.NoError(t, err)
	assert.Zero(t, base%align, "region base must be aligned to %d", align)

	require.NoError(t, p.FreeRegion(base, align))
	assert.Empty(t, p.regions)
}

func TestMmapArenaPagerFreeUnknownRegion(t *testing.T) {
	p := NewMmapArenaPager()
	err := p.FreeRegion(0xdeadbeef, 4096)
	assert.Error(t, err)
}

func TestMmapArenaPagerMultipleRegionsIndependentlyAddressable(t *testing.T) {
	p := NewMmapArenaPager()
	const size = 1 << 16

	a, err := p.NewRegion(size, size)
	require.NoError(t, err)
	b, err := p.NewRegion(size, size)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, p.FreeRegion(a, size))
	require.NoError(t, p.FreeRegion(b, size))
}
