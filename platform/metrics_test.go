// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestPrometheusStatsRecordsValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStats(reg)
	require.NoError(t, err)

	s.AddBytesAllocated(128)
	s.AddBytesAllocated(64)
	s.IncCollections()
	s.IncMarkIncrements()
	s.IncMarkIncrements()
	s.SetFreeCells(42)

	require.Equal(t, float64(192), readCounter(t, s.bytesAllocated))
	require.Equal(t, float64(1), readCounter(t, s.collections))
	require.Equal(t, float64(2), readCounter(t, s.markIncrements))
	require.Equal(t, float64(42), readGauge(t, s.freeCells))
}

func readCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func readGauge(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
