// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import "github.com/quasiconcurrent/qcgc/collector"

// CheckedPageGuard is the portable, pure-Go PageGuard: a plain slice with
// no trap page. Overflow is still caught, synchronously, by the shadow
// stack's own depth check before every push; this collaborator exists
// for hosts that cannot or do not want to spend a guard page per shadow
// stack, at the cost of losing the hard fault on out-of-bounds writes
// that bypass the shadow stack API entirely.
type CheckedPageGuard struct{}

// NewCheckedPageGuard returns a guard with no OS-level backing.
func NewCheckedPageGuard() CheckedPageGuard { return CheckedPageGuard{} }

func (CheckedPageGuard) Reserve(capacity int) ([]collector.ObjectRef, error) {
	return make([]collector.ObjectRef, capacity), nil
}

func (CheckedPageGuard) Release([]collector.ObjectRef) error { return nil }
