// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import "github.com/prometheus/client_golang/prometheus"

// PrometheusStats implements collector.StatsSink, exposing the four
// running counters a host would want on a /metrics endpoint.
type PrometheusStats struct {
	bytesAllocated prometheus.Counter
	collections    prometheus.Counter
	markIncrements prometheus.Counter
	freeCells      prometheus.Gauge
}

// NewPrometheusStats registers its metrics with reg and returns the sink.
func NewPrometheusStats(reg prometheus.Registerer) (*PrometheusStats, error) {
	s := &PrometheusStats{
		bytesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qcgc_bytes_allocated_total",
			Help: "Total bytes requested through Allocate.",
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qcgc_collections_total",
			Help: "Total completed mark-sweep cycles.",
		}),
		markIncrements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qcgc_mark_increments_total",
			Help: "Total mark increments run, incremental or full.",
		}),
		freeCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qcgc_free_cells",
			Help: "Free cells available to the fit allocator after the last sweep.",
		}),
	}
	for _, c := range []prometheus.Collector{s.bytesAllocated, s.collections, s.markIncrements, s.freeCells} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStats) AddBytesAllocated(n uintptr) { s.bytesAllocated.Add(float64(n)) }
func (s *PrometheusStats) IncCollections()             { s.collections.Inc() }
func (s *PrometheusStats) IncMarkIncrements()          { s.markIncrements.Inc() }
func (s *PrometheusStats) SetFreeCells(n int)          { s.freeCells.Set(float64(n)) }
