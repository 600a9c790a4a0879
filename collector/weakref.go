// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// weakrefRecord pairs a weakref holder with the address of the slot
// holding its target. At registration time the slot must point at a
// valid, non-prebuilt object.
type weakrefRecord struct {
	holder ObjectRef
	slot   *ObjectRef
}

// weakrefBag is an unordered multiset of weakrefRecord.
type weakrefBag struct {
	records []weakrefRecord
}

func (b *weakrefBag) add(holder ObjectRef, slot *ObjectRef) {
	b.records = append(b.records, weakrefRecord{holder: holder, slot: slot})
}

func (b *weakrefBag) len() int {
	return len(b.records)
}
