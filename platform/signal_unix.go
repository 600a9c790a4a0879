// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package platform

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/quasiconcurrent/qcgc/collector"
)

// SignalPageGuard wraps an MmapPageGuard with a SIGSEGV/SIGBUS handler.
// A real fault address is not available through os/signal (that needs a
// native sigaction handler), so the handler cannot prove a given fault
// landed on a tracked guard page; it can only report, while at least one
// shadow stack guard is live, that the crash is consistent with a
// shadow stack overflow before letting the process die the way it
// would have without this guard installed. Hosts that need precise
// fault-address attribution should use CheckedPageGuard instead, which
// detects overflow synchronously on push.
type SignalPageGuard struct {
	*MmapPageGuard
	logger collector.Logger

	mu   sync.Mutex
	live int
	sigs chan os.Signal
	stop chan struct{}
}

// NewSignalPageGuard installs the signal handler and returns the guard.
// Close must be called to uninstall the handler.
func NewSignalPageGuard(logger collector.Logger) *SignalPageGuard {
	if logger == nil {
		logger = collector.NopLogger{}
	}
	g := &SignalPageGuard{
		MmapPageGuard: NewMmapPageGuard(),
		logger:        logger,
		sigs:          make(chan os.Signal, 1),
		stop:          make(chan struct{}),
	}
	signal.Notify(g.sigs, syscall.SIGSEGV, syscall.SIGBUS)
	go g.watch()
	return g
}

func (g *SignalPageGuard) watch() {
	for {
		select {
		case sig := <-g.sigs:
			g.mu.Lock()
			live := g.live
			g.mu.Unlock()
			if live > 0 {
				g.logger.Event(collector.EventShadowStackGuardFault, map[string]any{
					"signal": sig.String(),
					"note":   "fault occurred while a shadow stack guard page was active",
				})
			}
			signal.Stop(g.sigs)
			_ = syscall.Kill(syscall.Getpid(), sig.(syscall.Signal))
			return
		case <-g.stop:
			return
		}
	}
}

// Reserve delegates to the underlying MmapPageGuard and tracks the
// number of live reservations so the handler knows whether a fault is
// plausibly shadow-stack related.
func (g *SignalPageGuard) Reserve(capacity int) ([]collector.ObjectRef, error) {
	buf, err := g.MmapPageGuard.Reserve(capacity)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return buf, nil
}

// Release delegates to the underlying MmapPageGuard.
func (g *SignalPageGuard) Release(buf []collector.ObjectRef) error {
	err := g.MmapPageGuard.Release(buf)
	g.mu.Lock()
	if g.live > 0 {
		g.live--
	}
	g.mu.Unlock()
	return err
}

// Close uninstalls the signal handler.
func (g *SignalPageGuard) Close() {
	close(g.stop)
	signal.Stop(g.sigs)
}
