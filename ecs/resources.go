package ecs

import (
	"reflect"
	"sync"
)

// resourceMap stores world-scoped singleton values keyed by type.
type resourceMap struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// SetResource stores a world-scoped singleton value of type T, replacing any
// previous value of that type.
func SetResource[T any](w *World, value T) {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	w.resources.values[reflect.TypeFor[T]()] = &value
}

// Resource returns the world's singleton of type T. The pointer is stable
// until the resource is replaced or removed.
func Resource[T any](w *World) (*T, bool) {
	w.resources.mu.RLock()
	defer w.resources.mu.RUnlock()

	v, ok := w.resources.values[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// RemoveResource drops the world's singleton of type T, reporting whether
// one existed.
func RemoveResource[T any](w *World) bool {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()

	t := reflect.TypeFor[T]()
	if _, ok := w.resources.values[t]; !ok {
		return false
	}
	delete(w.resources.values, t)
	return true
}
