// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasiconcurrent/qcgc/collector"
)

func TestMmapPageGuardReserveRelease(t *testing.T) {
	g := NewMmapPageGuard()

	buf, err := g.Reserve(64)
	require.NoError(t, err)
	require.Len(t, buf, 64)

	buf[0] = collector.ObjectRef(0x1234)
	buf[63] = collector.ObjectRef(0x5678)
	assert.Equal(t, collector.ObjectRef(0x1234), buf[0])

	start, end, ok := g.GuardRange(buf)
	require.True(t, ok)
	assert.Greater(t, end, start)

	require.NoError(t, g.Release(buf))
}

func TestMmapPageGuardReleaseUnknownBuffer(t *testing.T) {
	g := NewMmapPageGuard()
	err := g.Release(make([]collector.ObjectRef, 4))
	assert.Error(t, err)
}

func TestCheckedPageGuardRoundTrip(t *testing.T) {
	g := NewCheckedPageGuard()
	buf, err := g.Reserve(16)
	require.NoError(t, err)
	assert.Len(t, buf, 16)
	assert.NoError(t, g.Release(buf))
}
