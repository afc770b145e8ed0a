package ecs

import (
	"reflect"
	"sync"
)

// ComponentID identifies a registered component type. It doubles as the
// type's bit in archetype type-set masks.
type ComponentID uint32

// maxComponentTypes bounds registration to the width of the type-set mask.
const maxComponentTypes = 256

// componentType is the per-type descriptor: identity, layout, and the
// factory producing columns that store values of the type.
type componentType struct {
	id        ComponentID
	typ       reflect.Type
	size      uintptr
	newColumn func() column
}

// registry holds the component descriptors of one World. Registration is
// idempotent per type and safe to race with query construction from other
// goroutines.
type registry struct {
	mu    sync.RWMutex
	ids   map[reflect.Type]ComponentID
	types []*componentType
}

func newRegistry() *registry {
	return &registry{
		ids: make(map[reflect.Type]ComponentID),
	}
}

// Register registers component type T with the world's registry and returns
// its id. Repeated calls for the same type return the same id. Components
// first seen as values by Spawn or Insert are registered lazily; calling
// Register ahead of time gives the type a reflection-free column.
func Register[T any](w *World) ComponentID {
	t := reflect.TypeFor[T]()
	return w.registry.register(t, func() column { return &typedColumn[T]{} })
}

// register adds a descriptor for t unless one already exists. The first
// registration's column factory wins so every column of a type shares one
// concrete storage implementation.
func (r *registry) register(t reflect.Type, factory func() column) ComponentID {
	r.mu.RLock()
	id, ok := r.ids[t]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[t]; ok {
		return id
	}
	if len(r.types) >= maxComponentTypes {
		panic("ecs: component type limit exceeded")
	}

	id = ComponentID(len(r.types))
	r.ids[t] = id
	r.types = append(r.types, &componentType{
		id:        id,
		typ:       t,
		size:      t.Size(),
		newColumn: factory,
	})
	return id
}

// registerValueType registers t with a reflection-backed column factory.
func (r *registry) registerValueType(t reflect.Type) ComponentID {
	return r.register(t, func() column { return newReflectColumn(t) })
}

// lookup returns the descriptor for a type previously registered.
func (r *registry) lookup(t reflect.Type) (*componentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[t]
	if !ok {
		return nil, false
	}
	return r.types[id], true
}

// descriptor returns the descriptor for an id, failing for ids never handed
// out by this registry.
func (r *registry) descriptor(id ComponentID) (*componentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(id) >= len(r.types) {
		return nil, UnregisteredError{ID: id}
	}
	return r.types[id], nil
}

// componentTypeOf normalizes a component value's type: single pointers are
// dereferenced, non-storable kinds are rejected.
func componentTypeOf(v any) reflect.Type {
	if v == nil {
		panic("ecs: nil component")
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
		panic("ecs: components cannot be pointers, maps, channels, or functions")
	}
	return t
}
