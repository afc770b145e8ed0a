package ecs

import (
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
)

// Archetype is the dense columnar storage for all entities sharing one exact
// component type-set: one column per member type plus a parallel list of the
// owning entities. Every column and the entity list always have the same
// length, and row i across all columns belongs to entities[i].
type Archetype struct {
	id       uint32
	mask     mask.Mask
	types    []*componentType // sorted by id, parallel to columns
	columns  []column
	entities []Entity
	borrows  []borrowCell // parallel to columns

	// activeGuards counts query guard sets currently pinning this archetype.
	// A pinned archetype rejects structural changes.
	activeGuards atomic.Int32
}

var _ mask.Maskable = &Archetype{}

func newArchetype(id uint32, m mask.Mask, types []*componentType) *Archetype {
	a := &Archetype{
		id:      id,
		mask:    m,
		types:   types,
		columns: make([]column, len(types)),
		borrows: make([]borrowCell, len(types)),
	}
	for i, ct := range types {
		a.columns[i] = ct.newColumn()
	}
	return a
}

// Mask returns the archetype's type-set mask.
func (a *Archetype) Mask() mask.Mask {
	return a.mask
}

func (a *Archetype) len() int {
	return len(a.entities)
}

// columnIndex returns the column position of a component id within this
// archetype, or -1 if the type-set doesn't contain it.
func (a *Archetype) columnIndex(id ComponentID) int {
	for i, ct := range a.types {
		if ct.id == id {
			return i
		}
		if ct.id > id {
			break
		}
	}
	return -1
}

// insertRow appends one row holding the bundle's values. The bundle's
// type-set must exactly equal the archetype's; only the graph calls this and
// it guarantees the match, so a mismatch is corruption.
func (a *Archetype) insertRow(e Entity, b bundle) int {
	if b.mask != a.mask {
		panic("ecs: bundle type-set does not match archetype")
	}
	row := len(a.entities)
	for i, col := range a.columns {
		col.push(b.values[i])
	}
	a.entities = append(a.entities, e)
	return row
}

// removeRow swap-removes a row: the last row's data and entity move into the
// vacated position and the reported entity lets the caller fix up its
// recorded location. Reports false when the removed row was already last.
func (a *Archetype) removeRow(row int) (Entity, bool) {
	last := len(a.entities) - 1
	if row < 0 || row > last {
		panic("ecs: archetype row out of range")
	}

	for _, col := range a.columns {
		col.swapRemove(row)
	}

	var moved Entity
	displaced := row != last
	if displaced {
		moved = a.entities[last]
		a.entities[row] = moved
	}
	a.entities = a.entities[:last]
	return moved, displaced
}

func (a *Archetype) pinned() bool {
	return a.activeGuards.Load() != 0
}

func (a *Archetype) reset() {
	for _, col := range a.columns {
		col.reset()
	}
	a.entities = a.entities[:0]
}
