package ecs_test

import (
	"iter"
	"reflect"
	"testing"

	"github.com/plus3/strata/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type posVel struct {
	Pos *Position
	Vel *Velocity `ecs:"read"`
}

type posOnly struct {
	Pos *Position `ecs:"read"`
}

type nameOnly struct {
	Name *Name `ecs:"read"`
}

func TestQueryIteratesMatchingRows(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{X: 1}, Velocity{DX: 10})
	require.NoError(t, err)
	_, err = w.Spawn(Position{X: 2}, Velocity{DX: 20})
	require.NoError(t, err)
	_, err = w.Spawn(Position{X: 3}) // no velocity, must not match
	require.NoError(t, err)

	q, err := ecs.NewQuery[posVel](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	defer rows.Close()

	var sum float32
	count := 0
	for _, v := range rows.All() {
		sum += v.Pos.X + v.Vel.DX
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, float32(33), sum)
}

func TestQueryWithoutFilterTermsMatches(t *testing.T) {
	w := newTestWorld()

	a, err := w.Spawn(Health{Current: 3})
	require.NoError(t, err)
	b, err := w.Spawn(Health{Current: 4})
	require.NoError(t, err)
	_, err = w.Spawn(Health{Current: 5}, Frozen{})
	require.NoError(t, err)

	// A query with no With/Without terms must match every archetype
	// containing the accessed set, supersets included.
	type healthOnly struct {
		Health *Health `ecs:"read"`
	}
	q, err := ecs.NewQuery[healthOnly](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	total := 0
	count := 0
	for _, v := range rows.All() {
		total += v.Health.Current
		count++
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, 12, total)

	// Sanity: the same data is reachable directly.
	ha, err := ecs.GetComponent[Health](w, a)
	require.NoError(t, err)
	hb, err := ecs.GetComponent[Health](w, b)
	require.NoError(t, err)
	assert.Equal(t, 7, ha.Current+hb.Current)

	// Adding an exclusion term narrows the match set back down.
	qf, err := ecs.NewQuery[healthOnly](w, ecs.Without[Frozen]())
	require.NoError(t, err)
	rows, err = qf.Rows()
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Count())
}

func TestQueryWritesThroughExclusiveFields(t *testing.T) {
	w := newTestWorld()

	e, err := w.Spawn(Position{X: 1}, Velocity{DX: 5})
	require.NoError(t, err)

	q, err := ecs.NewQuery[posVel](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	for _, v := range rows.All() {
		v.Pos.X += v.Vel.DX
	}

	pos, err := ecs.GetComponent[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, float32(6), pos.X)
}

func TestQueryDeterministicOrder(t *testing.T) {
	w := newTestWorld()

	// Entities across several archetypes.
	for i := 0; i < 5; i++ {
		_, err := w.Spawn(Position{X: float32(i)})
		require.NoError(t, err)
		_, err = w.Spawn(Position{X: float32(i + 100)}, Velocity{})
		require.NoError(t, err)
		_, err = w.Spawn(Position{X: float32(i + 200)}, Health{})
		require.NoError(t, err)
	}

	q, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)

	collect := func() []ecs.Entity {
		rows, err := q.Rows()
		require.NoError(t, err)
		defer rows.Close()

		var order []ecs.Entity
		for e := range rows.All() {
			order = append(order, e)
		}
		return order
	}

	first := collect()
	second := collect()
	assert.Equal(t, first, second)
	assert.Len(t, first, 15)
}

func TestQueryMatchesArchetypesCreatedLater(t *testing.T) {
	w := newTestWorld()

	q, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	assert.Equal(t, 0, rows.Count())

	_, err = w.Spawn(Position{}, Tag("late"))
	require.NoError(t, err)

	rows, err = q.Rows()
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Count())
}

func TestQueryWithFilter(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{X: 1}, Person{})
	require.NoError(t, err)
	_, err = w.Spawn(Position{X: 2}, Dog{})
	require.NoError(t, err)

	q, err := ecs.NewQuery[posOnly](w, ecs.With[Person]())
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for _, v := range rows.All() {
		assert.Equal(t, float32(1), v.Pos.X)
		count++
	}
	assert.Equal(t, 1, count)
}

func TestQueryWithoutFilterAfterRemove(t *testing.T) {
	w := newTestWorld()

	// Spawn {Health, Position}, remove Health: a query requiring Position
	// without Health must now see the entity, one requiring Health must not.
	e, err := w.Spawn(Health{Current: 1}, Position{X: 7})
	require.NoError(t, err)
	require.NoError(t, w.Remove(e, reflect.TypeFor[Health]()))

	without, err := ecs.NewQuery[posOnly](w, ecs.Without[Health]())
	require.NoError(t, err)
	rows, err := without.Rows()
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Count())

	type healthOnly struct {
		Health *Health `ecs:"read"`
	}
	withHealth, err := ecs.NewQuery[healthOnly](w)
	require.NoError(t, err)
	rows2, err := withHealth.Rows()
	require.NoError(t, err)
	assert.Equal(t, 0, rows2.Count())
}

func TestQueryAcrossHeterogeneousArchetypes(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Person{}, Name{Value: "Alexandra"})
	require.NoError(t, err)
	_, err = w.Spawn(Dog{}, Name{Value: "Hiro"})
	require.NoError(t, err)

	q, err := ecs.NewQuery[nameOnly](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for v := range rows.Values() {
		names = append(names, v.Name.Value)
	}
	assert.ElementsMatch(t, []string{"Alexandra", "Hiro"}, names)
}

func TestQueryConflictingAccess(t *testing.T) {
	w := newTestWorld()

	type doubleWrite struct {
		A *Position
		B *Position
	}
	_, err := ecs.NewQuery[doubleWrite](w)
	assert.ErrorAs(t, err, &ecs.ConflictingAccessError{})

	type readWrite struct {
		A *Position `ecs:"read"`
		B *Position
	}
	_, err = ecs.NewQuery[readWrite](w)
	assert.ErrorAs(t, err, &ecs.ConflictingAccessError{})

	type doubleRead struct {
		A *Position `ecs:"read"`
		B *Position `ecs:"read"`
	}
	_, err = ecs.NewQuery[doubleRead](w)
	assert.NoError(t, err, "two shared accesses to one type are compatible")
}

func TestQueryUnregisteredType(t *testing.T) {
	w := ecs.NewWorld()

	type never struct{ N int }
	type view struct {
		N *never
	}
	_, err := ecs.NewQuery[view](w)
	assert.ErrorAs(t, err, &ecs.UnregisteredError{})

	ecs.Register[Position](w)
	_, err = ecs.NewQuery[posOnly](w, ecs.With[never]())
	assert.ErrorAs(t, err, &ecs.UnregisteredError{})
}

func TestConcurrentSharedQueriesSucceed(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{X: 1})
	require.NoError(t, err)

	q1, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)
	q2, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)

	rows1, err := q1.Rows()
	require.NoError(t, err)
	defer rows1.Close()

	rows2, err := q2.Rows()
	require.NoError(t, err, "shared borrows of the same column are compatible")
	defer rows2.Close()

	assert.Equal(t, 1, rows1.Count())
	assert.Equal(t, 1, rows2.Count())
}

func TestExclusiveQueryConflicts(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{X: 1}, Velocity{})
	require.NoError(t, err)

	type posWrite struct {
		Pos *Position
	}
	writer, err := ecs.NewQuery[posWrite](w)
	require.NoError(t, err)
	reader, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)

	rows, err := writer.Rows()
	require.NoError(t, err)

	_, err = reader.Rows()
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	_, err = writer.Rows()
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{}, "two exclusive borrows conflict")

	rows.Close()

	rows2, err := reader.Rows()
	require.NoError(t, err, "guards released on Close")
	rows2.Close()
}

func TestGuardsReleasePerArchetypeDuringIteration(t *testing.T) {
	w := newTestWorld()

	// Two archetypes matched by the writer; once iteration passes the first
	// archetype its guards are gone, so a reader scoped to it succeeds while
	// the writer still pins the second.
	_, err := w.Spawn(Position{X: 1}, Person{})
	require.NoError(t, err)
	_, err = w.Spawn(Position{X: 2}, Dog{})
	require.NoError(t, err)

	type posWrite struct {
		Pos *Position
	}
	writer, err := ecs.NewQuery[posWrite](w)
	require.NoError(t, err)
	firstOnly, err := ecs.NewQuery[posOnly](w, ecs.With[Person]())
	require.NoError(t, err)
	secondOnly, err := ecs.NewQuery[posOnly](w, ecs.With[Dog]())
	require.NoError(t, err)

	rows, err := writer.Rows()
	require.NoError(t, err)

	next, stop := iter.Pull2(rows.All())
	defer stop()

	// Paused on the first archetype's row: both archetypes still pinned.
	_, _, ok := next()
	require.True(t, ok)
	_, err = firstOnly.Rows()
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	// Advancing into the second archetype releases the first's guards.
	_, _, ok = next()
	require.True(t, ok)
	r1, err := firstOnly.Rows()
	require.NoError(t, err)
	r1.Close()
	_, err = secondOnly.Rows()
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	// Dropping the iteration early releases the rest.
	stop()
	r2, err := secondOnly.Rows()
	require.NoError(t, err)
	r2.Close()
}

func TestStructuralChangeRejectedWhileQueryActive(t *testing.T) {
	w := newTestWorld()

	e, err := w.Spawn(Position{X: 1})
	require.NoError(t, err)

	q, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)
	rows, err := q.Rows()
	require.NoError(t, err)

	// All structural changes touching the pinned archetype are rejected,
	// not blocked.
	err = w.Despawn(e)
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	err = w.Insert(e, Velocity{})
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	_, err = w.Spawn(Position{X: 2})
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	err = w.Clear()
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})

	// An unrelated archetype is fair game.
	_, err = w.Spawn(Velocity{DX: 1})
	assert.NoError(t, err)

	rows.Close()
	assert.NoError(t, w.Despawn(e))
}

func TestRejectedChangeLeavesNoNewArchetype(t *testing.T) {
	w := newTestWorld()

	e, err := w.Spawn(Position{X: 1})
	require.NoError(t, err)

	q, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)
	rows, err := q.Rows()
	require.NoError(t, err)
	defer rows.Close()

	before := w.Stats().Archetypes

	// Both would relocate e into an archetype that does not exist yet; the
	// rejection must fire before that archetype is created.
	err = w.Insert(e, Velocity{DX: 1})
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})
	assert.Equal(t, before, w.Stats().Archetypes)

	err = w.Remove(e, reflect.TypeFor[Position]())
	assert.ErrorAs(t, err, &ecs.BorrowConflictError{})
	assert.Equal(t, before, w.Stats().Archetypes)
}

func TestQueryRestartsAfterMutation(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{X: 1})
	require.NoError(t, err)

	q, err := ecs.NewQuery[posOnly](w)
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Count())

	_, err = w.Spawn(Position{X: 2})
	require.NoError(t, err)

	rows, err = q.Rows()
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Count())
}

func TestFilterOnlyQuery(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Person{}, Name{Value: "a"})
	require.NoError(t, err)
	_, err = w.Spawn(Dog{}, Name{Value: "b"})
	require.NoError(t, err)

	type unit struct{}
	q, err := ecs.NewQuery[unit](w, ecs.With[Person]())
	require.NoError(t, err)

	rows, err := q.Rows()
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Count())
}
