package ecs

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

// World owns the full collection of archetypes, the entity index, and the
// structural-change protocol moving entities between archetypes.
//
// Multiple goroutines may query a World concurrently; the runtime borrow
// tracker arbitrates column access. Structural changes (Spawn, Despawn,
// Insert, Remove) take a coarse write lock and are REJECTED with a
// BorrowConflictError when the affected archetype has outstanding borrow
// guards from an active query; they never block. Buffer such changes through
// Commands to apply them after iteration.
type World struct {
	mu       sync.RWMutex
	registry *registry
	index    entityIndex

	// archetypes in creation order; queries iterate matches in this order,
	// which keeps repeated query results deterministic.
	archetypes []*Archetype
	byMask     map[mask.Mask]uint32

	// edges caches single-component add/remove transitions between
	// archetypes so repeated structural changes skip the directory lookup.
	edges *intmap.Map[uint64, uint32]

	// generation increments on every archetype creation; queries cache
	// their match set against it.
	generation atomic.Uint32

	resources resourceMap
}

// NewWorld creates an empty world: no archetypes, empty entity index.
func NewWorld() *World {
	return &World{
		registry: newRegistry(),
		byMask:   make(map[mask.Mask]uint32),
		edges:    intmap.New[uint64, uint32](64),
		resources: resourceMap{
			values: make(map[reflect.Type]any),
		},
	}
}

// Len returns the count of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.index.len()
}

// Contains reports whether the entity handle is live.
func (w *World) Contains(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.index.contains(e)
}

// Spawn creates a new entity holding the given component values and returns
// its handle. Unseen component types are registered lazily. Fails with a
// BorrowConflictError if the destination archetype is pinned by an active
// query.
func (w *World) Spawn(components ...any) (Entity, error) {
	if len(components) == 0 {
		panic("ecs: cannot spawn entity without components")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	b := makeBundle(w.registry, components)
	arch := w.archetypeFor(b.mask, b.types)
	if arch.pinned() {
		return Entity{}, BorrowConflictError{}
	}

	e := w.index.allocate()
	row := arch.insertRow(e, b)
	w.index.relocate(e, entityLocation{archetype: arch.id, row: row})
	return e, nil
}

// SpawnBatch creates n entities each holding a copy of the given component
// values, amortizing archetype resolution across the batch.
func (w *World) SpawnBatch(n int, components ...any) ([]Entity, error) {
	if len(components) == 0 {
		panic("ecs: cannot spawn entity without components")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	b := makeBundle(w.registry, components)
	arch := w.archetypeFor(b.mask, b.types)
	if arch.pinned() {
		return nil, BorrowConflictError{}
	}

	entities := make([]Entity, n)
	for i := range entities {
		e := w.index.allocate()
		row := arch.insertRow(e, b)
		w.index.relocate(e, entityLocation{archetype: arch.id, row: row})
		entities[i] = e
	}
	return entities, nil
}

// Despawn destroys an entity, dropping all its component values and freeing
// its index slot for reuse under a bumped generation.
func (w *World) Despawn(e Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	loc, err := w.index.resolve(e)
	if err != nil {
		return err
	}

	arch := w.archetypes[loc.archetype]
	if arch.pinned() {
		return BorrowConflictError{}
	}

	moved, displaced := arch.removeRow(loc.row)
	if displaced {
		w.index.relocate(moved, loc)
	}
	return w.index.release(e)
}

// Insert attaches the given component values to an entity. Values for types
// the entity already has overwrite in place; new types relocate the entity
// to the archetype for the union type-set, moving its remaining values.
func (w *World) Insert(e Entity, components ...any) error {
	if len(components) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	loc, err := w.index.resolve(e)
	if err != nil {
		return err
	}

	b := makeBundle(w.registry, components)
	old := w.archetypes[loc.archetype]

	target := old.mask
	for _, ct := range b.types {
		target.Mark(uint32(ct.id))
	}

	if target == old.mask {
		// No structural move, but overwriting values still conflicts with
		// outstanding column borrows.
		if old.pinned() {
			return BorrowConflictError{}
		}
		for i, ct := range b.types {
			old.columns[old.columnIndex(ct.id)].set(loc.row, b.values[i])
		}
		return nil
	}

	// Reject before resolving the target: a pinned source must not leave a
	// freshly created destination archetype behind.
	if old.pinned() {
		return BorrowConflictError{}
	}
	dest := w.transitionTarget(old, target, b)
	if dest.pinned() {
		return BorrowConflictError{}
	}

	// Build the new row: bundle values for inserted/overwritten types,
	// erased moves from the old row for everything else.
	for i, ct := range dest.types {
		if j := b.indexOf(ct.id); j >= 0 {
			dest.columns[i].push(b.values[j])
			continue
		}
		dest.columns[i].pushFrom(old.columns[old.columnIndex(ct.id)], loc.row)
	}
	row := len(dest.entities)
	dest.entities = append(dest.entities, e)

	moved, displaced := old.removeRow(loc.row)
	if displaced {
		w.index.relocate(moved, loc)
	}
	w.index.relocate(e, entityLocation{archetype: dest.id, row: row})
	return nil
}

// Remove detaches the given component types from an entity, dropping their
// values and relocating the entity to the archetype for the difference
// type-set. Types the entity doesn't have (or that were never registered)
// are ignored.
func (w *World) Remove(e Entity, types ...reflect.Type) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	loc, err := w.index.resolve(e)
	if err != nil {
		return err
	}

	old := w.archetypes[loc.archetype]

	target := old.mask
	var removed []*componentType
	for _, t := range types {
		ct, ok := w.registry.lookup(t)
		if !ok || old.columnIndex(ct.id) < 0 {
			continue
		}
		target.Unmark(uint32(ct.id))
		removed = append(removed, ct)
	}
	if len(removed) == 0 {
		return nil
	}

	if old.pinned() {
		return BorrowConflictError{}
	}
	dest := w.removalTarget(old, target, removed)
	if dest.pinned() {
		return BorrowConflictError{}
	}

	for i, ct := range dest.types {
		dest.columns[i].pushFrom(old.columns[old.columnIndex(ct.id)], loc.row)
	}
	row := len(dest.entities)
	dest.entities = append(dest.entities, e)

	moved, displaced := old.removeRow(loc.row)
	if displaced {
		w.index.relocate(moved, loc)
	}
	w.index.relocate(e, entityLocation{archetype: dest.id, row: row})
	return nil
}

// ComponentType returns the type registered under id.
func (w *World) ComponentType(id ComponentID) (reflect.Type, error) {
	ct, err := w.registry.descriptor(id)
	if err != nil {
		return nil, err
	}
	return ct.typ, nil
}

// Clear removes all entities, keeping archetypes and registrations. Fails
// if any archetype is pinned by an active query. Entity handles from before
// the call must be discarded; slot generations restart.
func (w *World) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, a := range w.archetypes {
		if a.pinned() {
			return BorrowConflictError{}
		}
	}
	for _, a := range w.archetypes {
		a.reset()
	}
	w.index.clear()
	return nil
}

// archetypeFor resolves the archetype for an exact type-set, creating and
// registering it on first use. Caller holds the write lock.
func (w *World) archetypeFor(m mask.Mask, types []*componentType) *Archetype {
	if id, ok := w.byMask[m]; ok {
		return w.archetypes[id]
	}

	id := uint32(len(w.archetypes))
	arch := newArchetype(id, m, types)
	w.archetypes = append(w.archetypes, arch)
	w.byMask[m] = id
	w.generation.Add(1)
	return arch
}

// transitionTarget resolves the destination archetype for an insert,
// consulting the edge cache for the common single-component case.
func (w *World) transitionTarget(old *Archetype, target mask.Mask, b bundle) *Archetype {
	if len(b.types) == 1 {
		key := edgeKey(old.id, b.types[0].id, true)
		if id, ok := w.edges.Get(key); ok {
			return w.archetypes[id]
		}
		dest := w.archetypeFor(target, mergeTypes(old.types, b.types))
		w.edges.Put(key, dest.id)
		return dest
	}
	return w.archetypeFor(target, mergeTypes(old.types, b.types))
}

// removalTarget resolves the destination archetype for a remove, consulting
// the edge cache for the single-component case.
func (w *World) removalTarget(old *Archetype, target mask.Mask, removed []*componentType) *Archetype {
	if len(removed) == 1 {
		key := edgeKey(old.id, removed[0].id, false)
		if id, ok := w.edges.Get(key); ok {
			return w.archetypes[id]
		}
		dest := w.archetypeFor(target, subtractTypes(old.types, removed))
		w.edges.Put(key, dest.id)
		return dest
	}
	return w.archetypeFor(target, subtractTypes(old.types, removed))
}

// edgeKey packs one add/remove transition into an edge-cache key.
func edgeKey(from uint32, c ComponentID, add bool) uint64 {
	key := uint64(from)<<33 | uint64(c)<<1
	if add {
		key |= 1
	}
	return key
}

// mergeTypes unions two id-sorted descriptor lists; entries of b win on
// overlap (they carry the same descriptor anyway).
func mergeTypes(a, b []*componentType) []*componentType {
	out := make([]*componentType, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].id < b[j].id:
			out = append(out, a[i])
			i++
		case a[i].id > b[j].id:
			out = append(out, b[j])
			j++
		default:
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// subtractTypes removes the given descriptors from an id-sorted list.
func subtractTypes(a, removed []*componentType) []*componentType {
	out := make([]*componentType, 0, len(a))
outer:
	for _, ct := range a {
		for _, r := range removed {
			if r.id == ct.id {
				continue outer
			}
		}
		out = append(out, ct)
	}
	return out
}

// GetComponent returns a pointer to entity e's component of type T, or nil
// if the entity doesn't have one. The pointer is valid until the next
// structural change affecting the entity; access through it is not tracked
// by query borrow guards.
func GetComponent[T any](w *World, e Entity) (*T, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	loc, err := w.index.resolve(e)
	if err != nil {
		return nil, err
	}

	ct, ok := w.registry.lookup(reflect.TypeFor[T]())
	if !ok {
		return nil, nil
	}
	arch := w.archetypes[loc.archetype]
	col := arch.columnIndex(ct.id)
	if col < 0 {
		return nil, nil
	}
	return arch.columns[col].get(loc.row).(*T), nil
}

// HasComponent reports whether a live entity has a component of type T.
func HasComponent[T any](w *World, e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	loc, err := w.index.resolve(e)
	if err != nil {
		return false
	}
	ct, ok := w.registry.lookup(reflect.TypeFor[T]())
	if !ok {
		return false
	}
	return w.archetypes[loc.archetype].columnIndex(ct.id) >= 0
}
