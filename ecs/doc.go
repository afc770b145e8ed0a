/*
Package ecs is an in-process, archetype-based entity-component store.

Entities are generational handles. Component values attached to an entity are
stored column-wise, grouped by the entity's exact set of component types (its
archetype), so iteration over entities sharing a shape is a dense array walk.

Basic usage:

	type Position struct{ X, Y float32 }
	type Velocity struct{ DX, DY float32 }

	w := ecs.NewWorld()
	ecs.Register[Position](w)
	ecs.Register[Velocity](w)

	e, _ := w.Spawn(Position{X: 1}, Velocity{DX: 2})

	type moving struct {
		Pos *Position
		Vel *Velocity `ecs:"read"`
	}
	q, _ := ecs.NewQuery[moving](w)

	rows, _ := q.Rows()
	defer rows.Close()
	for _, m := range rows.All() {
		m.Pos.X += m.Vel.DX
	}

	_ = w.Despawn(e)

Queries declare shared (`ecs:"read"`) or exclusive access per component and
are checked at runtime: conflicting concurrent iterations fail with a
BorrowConflictError instead of racing. Structural changes against an
archetype a query is currently iterating are rejected the same way; buffer
them through Commands and flush after the iteration.
*/
package ecs
