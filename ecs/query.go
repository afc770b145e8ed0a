package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// QueryTerm is a data-less filter added to a query: a required-present or
// required-absent component type.
type QueryTerm struct {
	typ     reflect.Type
	without bool
}

// With requires matched archetypes to contain component type T without
// accessing its data.
func With[T any]() QueryTerm {
	return QueryTerm{typ: reflect.TypeFor[T]()}
}

// Without excludes archetypes containing component type T.
func Without[T any]() QueryTerm {
	return QueryTerm{typ: reflect.TypeFor[T](), without: true}
}

// queryAccess is one declared column access of a query.
type queryAccess struct {
	id     ComponentID
	typ    reflect.Type
	shared bool
	offset uintptr
}

// Query matches archetypes against a type filter and yields borrow-checked
// column-wise iteration over the matching rows.
//
// The view type V must be a struct whose pointer fields name the accessed
// component types. A field tagged `ecs:"read"` declares shared access;
// untagged (or `ecs:"write"`) fields declare exclusive access. Shared access
// still yields a pointer, but writing through it is a data race; the tag is
// the contract the borrow tracker enforces.
//
// A Query caches its matched archetypes against the world's archetype
// generation, so repeated Rows calls re-resolve in constant time until a new
// archetype appears. A Query is not safe for concurrent use; concurrent
// iterations should each construct their own.
type Query[V any] struct {
	world    *World
	access   []queryAccess
	required mask.Mask
	excluded mask.Mask

	matched    []*Archetype
	matchedGen uint32
	haveMatch  bool
}

// NewQuery builds a query over world for the view struct V plus any With or
// Without filter terms. Construction fails with a ConflictingAccessError if
// V declares contradictory access to one type, and with an UnregisteredError
// if any referenced type was never registered.
func NewQuery[V any](w *World, terms ...QueryTerm) (*Query[V], error) {
	var zero V
	structType := reflect.TypeOf(zero)
	if structType == nil || structType.Kind() != reflect.Struct {
		panic("ecs: query view type must be a struct")
	}

	q := &Query[V]{world: w}

	sharedSeen := make(map[reflect.Type]bool)
	exclusiveSeen := make(map[reflect.Type]bool)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Ptr {
			panic("ecs: query view fields must be pointer types")
		}
		compType := field.Type.Elem()

		shared := false
		switch tag := field.Tag.Get("ecs"); tag {
		case "", "write":
		case "read":
			shared = true
		default:
			panic("ecs: invalid ecs tag value: \"" + tag + "\"")
		}

		if exclusiveSeen[compType] || (!shared && sharedSeen[compType]) {
			return nil, ConflictingAccessError{Type: compType}
		}
		if shared {
			sharedSeen[compType] = true
		} else {
			exclusiveSeen[compType] = true
		}

		ct, ok := w.registry.lookup(compType)
		if !ok {
			return nil, UnregisteredError{Type: compType}
		}
		q.access = append(q.access, queryAccess{
			id:     ct.id,
			typ:    compType,
			shared: shared,
			offset: field.Offset,
		})
		q.required.Mark(uint32(ct.id))
	}

	for _, term := range terms {
		ct, ok := w.registry.lookup(term.typ)
		if !ok {
			return nil, UnregisteredError{Type: term.typ}
		}
		if term.without {
			q.excluded.Mark(uint32(ct.id))
		} else {
			q.required.Mark(uint32(ct.id))
		}
	}
	return q, nil
}

// ensureMatched refreshes the cached match set when the world has grown a
// new archetype since the last resolution. Caller holds the world read lock.
func (q *Query[V]) ensureMatched() {
	gen := q.world.generation.Load()
	if q.haveMatch && gen == q.matchedGen {
		return
	}

	// ContainsNone reports false for an empty argument mask, so it is only
	// consulted when a Without term actually marked a bit.
	q.matched = q.matched[:0]
	for _, a := range q.world.archetypes {
		if !a.mask.ContainsAll(q.required) {
			continue
		}
		if !q.excluded.IsEmpty() && !a.mask.ContainsNone(q.excluded) {
			continue
		}
		q.matched = append(q.matched, a)
	}
	q.matchedGen = gen
	q.haveMatch = true
}

// Rows begins one pass over the query's matches, acquiring a borrow guard
// for every accessed column of every matched archetype. Acquisition is all
// or nothing: a conflicting guard outstanding from another active query
// fails the call with a BorrowConflictError and leaves nothing held.
//
// Callers should defer Close; guards also release on their own as iteration
// moves past each archetype. Call Rows again to restart.
func (q *Query[V]) Rows() (*Rows[V], error) {
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()

	q.ensureMatched()

	guards := make([]*archetypeGuard, 0, len(q.matched))
	for _, a := range q.matched {
		g, err := acquireArchetypeGuard(a, q.access)
		if err != nil {
			for _, held := range guards {
				held.release()
			}
			return nil, err
		}
		guards = append(guards, g)
	}
	return &Rows[V]{query: q, guards: guards}, nil
}

// Rows is one in-flight iteration of a Query, holding the borrow guards of
// the archetypes not yet fully visited.
type Rows[V any] struct {
	query  *Query[V]
	guards []*archetypeGuard
	next   int
}

// All yields one (entity, view) pair per matching row, lazily, in archetype
// creation order then ascending row order. Breaking out early releases all
// remaining guards.
func (r *Rows[V]) All() iter.Seq2[Entity, V] {
	return func(yield func(Entity, V) bool) {
		defer r.Close()

		access := r.query.access
		for r.next < len(r.guards) {
			g := r.guards[r.next]
			a := g.arch

			var view V
			viewPtr := unsafe.Pointer(&view)

			for row := 0; row < len(a.entities); row++ {
				for i := range access {
					comp := a.columns[g.columns[i]].get(row)
					fieldPtr := unsafe.Pointer(uintptr(viewPtr) + access[i].offset)
					*(*unsafe.Pointer)(fieldPtr) = (*iface)(unsafe.Pointer(&comp)).data
				}
				if !yield(a.entities[row], view) {
					return
				}
			}

			g.release()
			r.next++
		}
	}
}

// Values yields the view structs without entity handles.
func (r *Rows[V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, view := range r.All() {
			if !yield(view) {
				return
			}
		}
	}
}

// Count consumes the remaining rows and returns how many there were.
func (r *Rows[V]) Count() int {
	n := 0
	for range r.All() {
		n++
	}
	return n
}

// Close releases all guards still held. Safe to call more than once.
func (r *Rows[V]) Close() {
	for _, g := range r.guards {
		g.release()
	}
	r.next = len(r.guards)
}

// iface is the internal memory layout of an interface{} value.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}
