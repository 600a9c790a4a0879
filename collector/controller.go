// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// Phase is the collector's coarse-grained state, driving which actions
// the write barrier and the allocator take.
type Phase int

const (
	// PhasePause: no cycle in progress. Every live object is WHITE or
	// FREE. The write barrier may still shade an object GRAY here, but
	// takes no further action until a cycle starts.
	PhasePause Phase = iota
	// PhaseMark: a cycle is in progress; the gray stacks may hold
	// outstanding work.
	PhaseMark
	// PhaseCollect: marking has drained to a fixed point. Sweep has not
	// yet run.
	PhaseCollect
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhaseMark:
		return "mark"
	case PhaseCollect:
		return "collect"
	default:
		return "unknown"
	}
}

// Dependencies bundles every external collaborator the collector needs.
// Tracer and ArenaPager are mandatory; the rest default to no-ops when
// nil.
type Dependencies struct {
	Tracer       Tracer
	Logger       Logger
	PageGuard    PageGuard
	ArenaPager   ArenaPager
	ConfigSource ConfigSource
	Stats        StatsSink
}

// Collector is the tri-color incremental collector. It manipulates only
// addresses and the bookkeeping described in the data model; it never
// lays out or dereferences mutator object memory itself. A Collector is
// not safe for concurrent use -- every method must be called from the
// single cooperative thread that also runs the mutator.
type Collector struct {
	cfg  Config
	deps Dependencies

	phase Phase

	al   *allocator
	huge *hugeTable

	gp            grayStack
	grayStackSize int

	shadow *ShadowStack

	weakrefs weakrefBag

	prebuilt     map[ObjectRef]*prebuiltInfo
	prebuiltList []ObjectRef

	bytesSinceCollection uintptr
	bytesSinceIncMark    uintptr
}

// New constructs a Collector. deps.Tracer and deps.ArenaPager must be
// non-nil; every other field of deps is optional.
func New(cfg Config, deps Dependencies) (*Collector, error) {
	if deps.Tracer == nil {
		return nil, ErrNilTracer
	}
	if deps.ArenaPager == nil {
		return nil, ErrNilArenaPager
	}

	cfg = resolveConfig(cfg)
	cfg = cfg.applyEnv(deps.ConfigSource)

	if deps.Logger == nil {
		deps.Logger = NopLogger{}
	}

	c := &Collector{
		cfg:      cfg,
		deps:     deps,
		phase:    PhasePause,
		al:       newAllocator(cfg, deps.ArenaPager),
		huge:     newHugeTable(),
		prebuilt: make(map[ObjectRef]*prebuiltInfo),
	}

	guard := deps.PageGuard
	if guard == nil {
		guard = nopPageGuard{}
	}
	shadow, err := newShadowStack(cfg.ShadowStackCapacity, guard)
	if err != nil {
		return nil, err
	}
	c.shadow = shadow

	return c, nil
}

// Phase reports the collector's current coarse-grained state, for hosts
// that want to surface it (logging, metrics, a demo's own output)
// without reaching into unexported fields.
func (c *Collector) Phase() Phase {
	return c.phase
}

// Close releases the shadow stack's backing buffer and guard page. It
// does not release arenas; the host is expected to tear down the whole
// process address space instead of recycling a Collector.
func (c *Collector) Close() error {
	return c.shadow.close()
}

// nopPageGuard backs the shadow stack with a plain slice and relies
// entirely on ShadowStack's own capacity check, for hosts that supply
// no PageGuard.
type nopPageGuard struct{}

func (nopPageGuard) Reserve(capacity int) ([]ObjectRef, error) {
	return make([]ObjectRef, capacity), nil
}

func (nopPageGuard) Release([]ObjectRef) error { return nil }

// roundUp rounds size up to the next multiple of align, align a power
// of two.
func roundUp(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}

// Allocate reserves size bytes and returns the new object's address.
// New objects are always WHITE with GRAY clear, per the data model --
// safe to return during an in-progress mark because the write barrier
// covers any reference the mutator subsequently stores into it.
func (c *Collector) Allocate(size uintptr) (ObjectRef, error) {
	c.logEvent(EventAllocateStart, map[string]any{"size": size})

	if c.bytesSinceCollection > c.cfg.MajorCollectionBytes {
		c.Collect()
	} else if c.bytesSinceIncMark > c.cfg.IncMarkBytes {
		c.mark(true)
	}

	var obj ObjectRef
	var err error
	if size <= c.cfg.largeAllocThreshold() {
		obj, err = c.al.allocNormal(size)
	} else {
		obj, err = c.allocHuge(size)
	}
	if err != nil {
		c.logEvent(EventAllocateDone, map[string]any{"ok": false})
		return 0, err
	}

	c.bytesSinceCollection += size
	c.bytesSinceIncMark += size
	if c.deps.Stats != nil {
		c.deps.Stats.AddBytesAllocated(size)
	}
	c.logEvent(EventAllocateDone, map[string]any{"object": uintptr(obj), "size": size})
	return obj, nil
}

// allocHuge requests an arena-aligned region sized to hold size bytes
// and registers it in the huge table. Huge regions are always
// arena-sized multiples so their base address never collides with a
// normal arena's reserved cell-0 address.
func (c *Collector) allocHuge(size uintptr) (ObjectRef, error) {
	rounded := roundUp(size, c.cfg.ArenaSize)
	base, err := c.al.pager.NewRegion(rounded, c.cfg.ArenaSize)
	if err != nil {
		return 0, ErrAllocationFailed
	}
	obj := ObjectRef(base)
	c.huge.add(obj, rounded)
	return obj, nil
}

// Collect runs a full mark to completion, immediately followed by a
// sweep. Unlike Allocate's incremental path, this call always returns
// with the collector back in PhasePause.
func (c *Collector) Collect() {
	c.mark(false)
	c.sweep()
	c.bytesSinceCollection = 0
	if c.deps.Stats != nil {
		c.deps.Stats.IncCollections()
	}
}

// RegisterWeakref records that slot currently points at obj and should
// be cleared once obj is determined unreachable. obj must be a live,
// non-prebuilt object; prebuilt objects are always reachable so a
// weakref to one would never clear.
func (c *Collector) RegisterWeakref(holder ObjectRef, slot *ObjectRef) error {
	if slot == nil || !(*slot).Valid() {
		return ErrInvalidWeakref
	}
	if c.classify(*slot) == catPrebuilt {
		return ErrInvalidWeakref
	}
	c.weakrefs.add(holder, slot)
	return nil
}

// ShadowStackPush pushes a new root. If a cycle is in progress, the
// collector returns to PhaseMark and the pushed object goes through
// pushObject, the same enqueue the mark engine applies to a newly
// discovered reference, since the mutator is handing the collector a
// pointer it did not previously know about.
func (c *Collector) ShadowStackPush(obj ObjectRef) error {
	if err := c.shadow.push(obj); err != nil {
		c.logEvent(EventAllocateDone, map[string]any{"shadow_stack_overflow": true})
		return err
	}
	if c.phase != PhasePause {
		c.phase = PhaseMark
		c.pushObject(obj)
	}
	return nil
}

// ShadowStackPop removes and returns the top root.
func (c *Collector) ShadowStackPop() (ObjectRef, error) {
	return c.shadow.pop()
}
