// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package platform

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapArenaPager implements collector.ArenaPager by requesting anonymous,
// page-backed memory from the OS with mmap and returning it with munmap.
// It is the concrete analogue of the teacher runtime's sysAlloc/sysFree
// pair: a thin OS-memory source the policy engine above it never touches
// directly.
type MmapArenaPager struct {
	// regions maps each live region's base to its mapping. It is not
	// guarded by a lock: NewRegion and FreeRegion must be called from
	// one goroutine at a time, as the single-threaded collector does.
	regions map[uintptr][]byte
}

// NewMmapArenaPager constructs an empty pager. No memory is reserved
// until the first NewRegion call.
func NewMmapArenaPager() *MmapArenaPager {
	return &MmapArenaPager{regions: make(map[uintptr][]byte)}
}

// NewRegion requests size bytes aligned to align, align a power of two.
// mmap only guarantees page alignment, so it over-maps by align bytes
// and trims the unaligned head and the unused tail back to the OS.
func (p *MmapArenaPager) NewRegion(size, align uintptr) (uintptr, error) {
	raw, err := unix.Mmap(-1, 0, int(size+align), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, errors.Wrap(err, "platform: mmap arena region")
	}

	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + align - 1) &^ (align - 1)
	headTrim := aligned - base

	if headTrim > 0 {
		if err := unix.Munmap(raw[:headTrim]); err != nil {
			_ = unix.Munmap(raw)
			return 0, errors.Wrap(err, "platform: trim arena region head")
		}
	}
	body := raw[headTrim : headTrim+size]
	tail := raw[headTrim+size:]
	if len(tail) > 0 {
		if err := unix.Munmap(tail); err != nil {
			_ = unix.Munmap(body)
			return 0, errors.Wrap(err, "platform: trim arena region tail")
		}
	}

	p.regions[aligned] = body
	return aligned, nil
}

// FreeRegion releases the region previously returned at base.
func (p *MmapArenaPager) FreeRegion(base, size uintptr) error {
	region, ok := p.regions[base]
	if !ok {
		return errors.Errorf("platform: FreeRegion: unknown base %#x", base)
	}
	delete(p.regions, base)
	if err := unix.Munmap(region); err != nil {
		return errors.Wrap(err, "platform: munmap arena region")
	}
	return nil
}
