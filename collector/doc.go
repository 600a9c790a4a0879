// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collector implements a quasi-concurrent incremental tri-color
// mark-and-sweep garbage collector for a single cooperative mutator
// thread.
//
// The collector is a policy engine: it tracks reachability, color, and
// cell bookkeeping for addresses the host (mutator) supplies, but it
// never dereferences or lays out the objects themselves. Outgoing
// references are discovered exclusively through the host-supplied
// Tracer. This keeps the engine free of unsafe pointer arithmetic and
// lets it run inside a Go process without fighting the host Go
// runtime's own garbage collector.
//
// A Collector is not safe for concurrent use. Exactly one mutator
// thread is expected to call its methods, matching the cooperative,
// single-threaded scheduling model it was designed for.
package collector
