// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package platform

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/quasiconcurrent/qcgc/collector"
)

// MmapPageGuard backs a shadow stack with an mmap'd buffer immediately
// followed by a PROT_NONE trap page, the technique the core's shadow
// stack design notes call out by name. Writing past the buffer's
// capacity faults on the trap page instead of corrupting adjacent
// memory.
type MmapPageGuard struct {
	pageSize uintptr
	mu       allocTable
}

// allocTable is deliberately a plain map guarded by the single-mutator
// assumption the whole collector package documents; a PageGuard is
// exercised from the same thread as every other collector call.
type allocTable map[uintptr][]byte

// NewMmapPageGuard constructs a guard using the platform's page size.
func NewMmapPageGuard() *MmapPageGuard {
	return &MmapPageGuard{pageSize: uintptr(os.Getpagesize()), mu: make(allocTable)}
}

func roundUpPages(n, pageSize uintptr) uintptr {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// Reserve allocates capacity ObjectRef slots plus a trailing guard page.
func (g *MmapPageGuard) Reserve(capacity int) ([]collector.ObjectRef, error) {
	var zero collector.ObjectRef
	dataBytes := uintptr(capacity) * unsafe.Sizeof(zero)
	dataPages := roundUpPages(dataBytes, g.pageSize)
	total := dataPages + g.pageSize

	full, err := unix.Mmap(-1, 0, int(total), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "platform: mmap shadow stack")
	}

	guardPage := full[dataPages:]
	if err := unix.Mprotect(guardPage, unix.PROT_NONE); err != nil {
		_ = unix.Munmap(full)
		return nil, errors.Wrap(err, "platform: mprotect shadow stack guard page")
	}

	dataPtr := (*collector.ObjectRef)(unsafe.Pointer(&full[0]))
	buf := unsafe.Slice(dataPtr, capacity)

	base := uintptr(unsafe.Pointer(&full[0]))
	g.mu[base] = full
	return buf, nil
}

// Release unmaps the buffer and its guard page.
func (g *MmapPageGuard) Release(buf []collector.ObjectRef) error {
	if len(buf) == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(&buf[0]))
	full, ok := g.mu[base]
	if !ok {
		return errors.New("platform: Release: unknown shadow stack buffer")
	}
	delete(g.mu, base)
	if err := unix.Munmap(full); err != nil {
		return errors.Wrap(err, "platform: munmap shadow stack")
	}
	return nil
}

// GuardRange reports the trap page's address range for buf, if buf is a
// live allocation from this guard. SignalPageGuard uses this to decide
// whether a fault fell inside a shadow stack's guard page.
func (g *MmapPageGuard) GuardRange(buf []collector.ObjectRef) (start, end uintptr, ok bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	base := uintptr(unsafe.Pointer(&buf[0]))
	full, exists := g.mu[base]
	if !exists {
		return 0, 0, false
	}
	var zero collector.ObjectRef
	dataBytes := uintptr(len(buf)) * unsafe.Sizeof(zero)
	dataPages := roundUpPages(dataBytes, g.pageSize)
	return base + dataPages, base + uintptr(len(full)), true
}
