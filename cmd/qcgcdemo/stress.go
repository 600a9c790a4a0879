// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/quasiconcurrent/qcgc/collector"
	"github.com/quasiconcurrent/qcgc/platform"
)

var (
	stressObjects      int
	stressSurviveEvery int
	stressHugeEvery    int
	stressWeakrefEvery int
)

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Allocate a synthetic workload and report the resulting collector metrics",
		RunE:  runStress,
	}
	cmd.Flags().IntVar(&stressObjects, "objects", 4000, "number of small objects to allocate")
	cmd.Flags().IntVar(&stressSurviveEvery, "survive-every", 3, "root every Nth object so it survives collection")
	cmd.Flags().IntVar(&stressHugeEvery, "huge-every", 97, "allocate one huge block every N objects")
	cmd.Flags().IntVar(&stressWeakrefEvery, "weakref-every", 11, "make every Nth surviving object hold a weakref to a fresh unreachable object")
	return cmd
}

func runStress(cmd *cobra.Command, args []string) error {
	pager := platform.NewMmapArenaPager()
	guard := platform.NewCheckedPageGuard()
	graph := newObjectGraph()
	logger := newLogger()

	reg := prometheus.NewRegistry()
	stats, err := platform.NewPrometheusStats(reg)
	if err != nil {
		return err
	}

	c, err := collector.New(collector.Config{Debug: debug}, collector.Dependencies{
		Tracer:     graph,
		Logger:     logger,
		PageGuard:  guard,
		ArenaPager: pager,
		Stats:      stats,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	holder, err := c.Allocate(32)
	if err != nil {
		return err
	}
	if err := c.ShadowStackPush(holder); err != nil {
		return err
	}

	survivors := 0
	for i := 0; i < stressObjects; i++ {
		var obj collector.ObjectRef
		if stressHugeEvery > 0 && i%stressHugeEvery == 0 {
			obj, err = c.Allocate(1 << 20)
		} else {
			obj, err = c.Allocate(32)
		}
		if err != nil {
			return fmt.Errorf("allocate object %d: %w", i, err)
		}

		if stressSurviveEvery > 0 && i%stressSurviveEvery == 0 {
			graph.store(c, holder, obj)
			survivors++
			if stressWeakrefEvery > 0 && survivors%stressWeakrefEvery == 0 {
				dropped, err := c.Allocate(32)
				if err != nil {
					return err
				}
				slot := dropped
				if err := c.RegisterWeakref(obj, &slot); err != nil {
					return err
				}
			}
		}
	}

	c.Collect()

	fmt.Printf("allocated %d objects, %d rooted as survivors\n", stressObjects, survivors)
	fmt.Printf("phase after collect: %s\n", c.Phase())

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(os.Stdout, expfmt.FmtText)
	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}
