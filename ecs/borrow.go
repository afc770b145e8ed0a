package ecs

import "sync/atomic"

// borrowCell is a runtime-checked single-writer/many-reader permission for
// one column: 0 is free, a positive count is outstanding shared borrows,
// borrowExclusive is one exclusive borrow.
type borrowCell struct {
	state atomic.Int32
}

const borrowExclusive = -1

func (b *borrowCell) acquireShared() bool {
	for {
		s := b.state.Load()
		if s < 0 {
			return false
		}
		if b.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

func (b *borrowCell) acquireExclusive() bool {
	return b.state.CompareAndSwap(0, borrowExclusive)
}

func (b *borrowCell) release(exclusive bool) {
	if exclusive {
		b.state.Store(0)
		return
	}
	b.state.Add(-1)
}

// archetypeGuard holds the acquired borrow cells of one matched archetype
// for the duration of a query's pass over it.
type archetypeGuard struct {
	arch *Archetype
	// columns holds the column index of each accessed component within the
	// archetype, in query field order.
	columns   []int
	exclusive []bool
	released  bool
}

// acquireArchetypeGuard takes the borrow cells for the accessed columns of
// arch, all or nothing. On conflict it rolls back and reports the component
// whose cell was contested.
func acquireArchetypeGuard(arch *Archetype, access []queryAccess) (*archetypeGuard, error) {
	g := &archetypeGuard{
		arch:      arch,
		columns:   make([]int, len(access)),
		exclusive: make([]bool, len(access)),
	}

	for i, a := range access {
		col := arch.columnIndex(a.id)
		if col < 0 {
			panic("ecs: matched archetype missing accessed component")
		}
		cell := &arch.borrows[col]

		ok := false
		if a.shared {
			ok = cell.acquireShared()
		} else {
			ok = cell.acquireExclusive()
		}
		if !ok {
			for j := 0; j < i; j++ {
				arch.borrows[g.columns[j]].release(g.exclusive[j])
			}
			return nil, BorrowConflictError{Type: a.typ}
		}
		g.columns[i] = col
		g.exclusive[i] = !a.shared
	}

	arch.activeGuards.Add(1)
	return g, nil
}

func (g *archetypeGuard) release() {
	if g.released {
		return
	}
	g.released = true
	for i, col := range g.columns {
		g.arch.borrows[col].release(g.exclusive[i])
	}
	g.arch.activeGuards.Add(-1)
}
