// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// Event names emitted through Logger, mirroring the fixed record kinds
// the core specification assigns to the out-of-scope event log.
const (
	EventAllocateStart = "ALLOCATE_START"
	EventAllocateDone  = "ALLOCATE_DONE"
	EventMarkStart     = "MARK_START"
	EventMarkDone      = "MARK_DONE"
	EventSweepStart    = "SWEEP_START"
	EventSweepDone     = "SWEEP_DONE"

	// EventShadowStackGuardFault is emitted by a platform PageGuard
	// collaborator, not by the core engine, when it detects a fault
	// consistent with shadow stack overflow.
	EventShadowStackGuardFault = "SHADOW_STACK_GUARD_FAULT"
)

func (c *Collector) logEvent(name string, fields map[string]any) {
	if c.deps.Logger == nil {
		return
	}
	c.deps.Logger.Event(name, fields)
}
