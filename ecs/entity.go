package ecs

import "fmt"

// Entity identifies one logical record in a World. The index addresses a
// reusable slot; the generation distinguishes the current occupant of that
// slot from stale handles to earlier occupants of the same slot.
type Entity struct {
	index      uint32
	generation uint32
}

// Index returns the slot index of the entity.
func (e Entity) Index() uint32 {
	return e.index
}

// Generation returns the generation of the entity.
func (e Entity) Generation() uint32 {
	return e.generation
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.index, e.generation)
}

// entityLocation records where an entity's row currently lives.
type entityLocation struct {
	archetype uint32
	row       int
}
