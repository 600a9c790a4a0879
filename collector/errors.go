// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import "fmt"

// ErrAllocationFailed is returned by Allocate when both the fit/bump
// path and the huge-block path are exhausted. It is the only
// recoverable error the collector surfaces; the mutator decides how to
// respond.
var ErrAllocationFailed = fmt.Errorf("collector: allocation failed")

// ErrShadowStackOverflow is reported (via Logger, then treated as
// fatal by the caller) when a ShadowStackPush would exceed capacity.
var ErrShadowStackOverflow = fmt.Errorf("collector: shadow stack overflow")

// ErrShadowStackUnderflow is returned by ShadowStackPop when the stack
// is already empty.
var ErrShadowStackUnderflow = fmt.Errorf("collector: shadow stack underflow")

// ErrInvalidWeakref is returned by RegisterWeakref when its
// precondition (the slot currently points at a valid, non-prebuilt
// object) does not hold.
var ErrInvalidWeakref = fmt.Errorf("collector: invalid weakref registration")

// ErrNilTracer and ErrNilArenaPager are returned by New when a
// mandatory collaborator is missing.
var (
	ErrNilTracer     = fmt.Errorf("collector: Dependencies.Tracer is required")
	ErrNilArenaPager = fmt.Errorf("collector: Dependencies.ArenaPager is required")
)

// InvariantError reports a debug-mode invariant violation. It is only
// ever produced when Config.Debug is set; production configurations
// elide these checks entirely, matching the source's debug-build-only
// assertions.
type InvariantError struct {
	Predicate string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("collector: invariant violated: %s", e.Predicate)
}

func (c *Collector) assert(cond bool, predicate string) {
	if !c.cfg.Debug {
		return
	}
	if !cond {
		panic(&InvariantError{Predicate: predicate})
	}
}
