// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import "strconv"

// Compiled-in defaults, used whenever the environment does not
// override them or overrides them with an unparsable value.
const (
	DefaultCellSize            uintptr = 16
	DefaultArenaSize           uintptr = 1 << 16 // 64 KiB, 4096 cells at DefaultCellSize
	DefaultLargeAllocExp       uint    = 12       // 2^12 = 4096 bytes
	DefaultIncMarkMin          int     = 8
	DefaultMajorCollectionSize uintptr = 1 << 20 // 1 MiB
	DefaultIncMarkSize         uintptr = 1 << 16 // 64 KiB
	DefaultShadowStackCapacity int     = 4096

	envMajorCollection = "MAJOR_COLLECTION"
	envIncMark         = "INCMARK"
)

// Config carries every threshold and tunable the controller needs.
// Zero-value fields are filled in with compiled defaults by
// resolveConfig.
type Config struct {
	CellSize      uintptr
	ArenaSize     uintptr
	LargeAllocExp uint
	IncMarkMin    int

	MajorCollectionBytes uintptr
	IncMarkBytes         uintptr

	// ShadowStackCapacity bounds the number of roots the mutator may
	// have pushed at once.
	ShadowStackCapacity int

	// Debug enables InvariantError assertions. Production
	// configurations should leave this false.
	Debug bool
}

func resolveConfig(cfg Config) Config {
	if cfg.CellSize == 0 {
		cfg.CellSize = DefaultCellSize
	}
	if cfg.ArenaSize == 0 {
		cfg.ArenaSize = DefaultArenaSize
	}
	if cfg.LargeAllocExp == 0 {
		cfg.LargeAllocExp = DefaultLargeAllocExp
	}
	if cfg.IncMarkMin == 0 {
		cfg.IncMarkMin = DefaultIncMarkMin
	}
	if cfg.MajorCollectionBytes == 0 {
		cfg.MajorCollectionBytes = DefaultMajorCollectionSize
	}
	if cfg.IncMarkBytes == 0 {
		cfg.IncMarkBytes = DefaultIncMarkSize
	}
	if cfg.ShadowStackCapacity == 0 {
		cfg.ShadowStackCapacity = DefaultShadowStackCapacity
	}
	return cfg
}

// largeAllocThreshold returns 2^LargeAllocExp, the largest byte size
// that allocation serves from the fit/bump path; anything larger goes
// to the huge-block allocator.
func (cfg Config) largeAllocThreshold() uintptr {
	return 1 << cfg.LargeAllocExp
}

// applyEnv overrides MajorCollectionBytes and IncMarkBytes from src, per
// the core specification's environment-configurable thresholds.
// Invalid values are silently ignored, falling back to whatever the
// Config already carried (and from there to the compiled default) --
// this treats the environment variables as effective, per the spec's
// documented correction of the source's dead `while(0)` wrapper.
func (cfg Config) applyEnv(src ConfigSource) Config {
	if src == nil {
		return cfg
	}
	if v, ok := src.Lookup(envMajorCollection); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MajorCollectionBytes = uintptr(n)
		}
	}
	if v, ok := src.Lookup(envIncMark); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.IncMarkBytes = uintptr(n)
		}
	}
	return cfg
}
