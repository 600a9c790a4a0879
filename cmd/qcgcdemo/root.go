// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command qcgcdemo drives the qcgc collector outside of a test harness,
// against a small hand-built object graph or a synthetic allocation
// workload, and prints what the collector reports about the objects it
// manages.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quasiconcurrent/qcgc/platform"
)

var (
	logLevel string
	debug    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qcgcdemo",
		Short: "Exercise the qcgc collector against sample workloads",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable collector invariant assertions")

	root.AddCommand(newRunCmd())
	root.AddCommand(newStressCmd())
	return root
}

func newLogger() platform.LogrusLogger {
	l := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return platform.NewLogrusLogger(l)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
