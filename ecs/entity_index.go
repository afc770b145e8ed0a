package ecs

import "container/heap"

// entityIndex is the generational slot allocator mapping live entities to
// their storage location. Freed slots are reused smallest-index-first with
// the generation bumped, so stale handles to previous occupants stay
// distinguishable from the live entity.
type entityIndex struct {
	slots []entitySlot
	free  minIndexHeap
	live  int
}

type entitySlot struct {
	generation uint32
	alive      bool
	loc        entityLocation
}

// allocate returns a fresh entity, preferring the smallest freed slot over
// growing the slot table.
func (ix *entityIndex) allocate() Entity {
	ix.live++

	if ix.free.Len() > 0 {
		index := heap.Pop(&ix.free).(uint32)
		slot := &ix.slots[index]
		slot.alive = true
		slot.loc = entityLocation{}
		return Entity{index: index, generation: slot.generation}
	}

	index := uint32(len(ix.slots))
	ix.slots = append(ix.slots, entitySlot{alive: true})
	return Entity{index: index}
}

// release frees the entity's slot for reuse under a bumped generation.
// The generation bump happens here, not on reuse, so a freed-but-unreused
// slot already rejects its old handle.
func (ix *entityIndex) release(e Entity) error {
	if _, err := ix.resolve(e); err != nil {
		return err
	}

	slot := &ix.slots[e.index]
	slot.generation++
	slot.alive = false
	slot.loc = entityLocation{}
	heap.Push(&ix.free, e.index)
	ix.live--
	return nil
}

// resolve returns the location of a live entity, or classifies why the
// handle is dead.
func (ix *entityIndex) resolve(e Entity) (entityLocation, error) {
	if int(e.index) >= len(ix.slots) {
		return entityLocation{}, EntityNotFoundError{Entity: e}
	}

	slot := &ix.slots[e.index]
	if slot.alive && slot.generation == e.generation {
		return slot.loc, nil
	}

	// A despawned handle stays recognizable until its slot is reused: the
	// slot holds exactly one more generation than the handle.
	if !slot.alive && slot.generation == e.generation+1 {
		return entityLocation{}, AlreadyDespawnedError{Entity: e}
	}
	return entityLocation{}, EntityNotFoundError{Entity: e}
}

// relocate overwrites the stored location of a live entity. Called after
// every structural move, including swap-remove displacement fix-ups.
func (ix *entityIndex) relocate(e Entity, loc entityLocation) {
	slot := &ix.slots[e.index]
	if !slot.alive || slot.generation != e.generation {
		panic("ecs: relocate of dead entity " + e.String())
	}
	slot.loc = loc
}

func (ix *entityIndex) contains(e Entity) bool {
	_, err := ix.resolve(e)
	return err == nil
}

func (ix *entityIndex) len() int {
	return ix.live
}

func (ix *entityIndex) clear() {
	ix.slots = ix.slots[:0]
	ix.free = ix.free[:0]
	ix.live = 0
}

// minIndexHeap yields freed slot indices smallest-first.
type minIndexHeap []uint32

func (h minIndexHeap) Len() int           { return len(h) }
func (h minIndexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minIndexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minIndexHeap) Push(x any)        { *h = append(*h, x.(uint32)) }

func (h *minIndexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
