package ecs

import (
	"errors"
	"reflect"
)

// Commands buffers structural changes for later application. Systems that
// discover changes while iterating a query record them here and flush once
// the iteration's borrow guards are released, since the World rejects
// structural changes against pinned archetypes.
type Commands struct {
	spawns   [][]any
	despawns []Entity
	inserts  []insertCommand
	removes  []removeCommand
	defers   []func(*World)
}

type insertCommand struct {
	entity     Entity
	components []any
}

type removeCommand struct {
	entity Entity
	types  []reflect.Type
}

// NewCommands creates an empty command buffer.
func NewCommands() *Commands {
	return &Commands{}
}

// Spawn queues an entity spawn with the given component values.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, components)
}

// Despawn queues an entity destruction.
func (c *Commands) Despawn(e Entity) {
	c.despawns = append(c.despawns, e)
}

// Insert queues a component insertion.
func (c *Commands) Insert(e Entity, components ...any) {
	c.inserts = append(c.inserts, insertCommand{entity: e, components: components})
}

// Remove queues a component removal.
func (c *Commands) Remove(e Entity, types ...reflect.Type) {
	c.removes = append(c.removes, removeCommand{entity: e, types: types})
}

// Defer queues an arbitrary function to run against the world after all
// buffered structural changes.
func (c *Commands) Defer(fn func(*World)) {
	c.defers = append(c.defers, fn)
}

// Flush applies all buffered operations to the world and resets the buffer.
// Despawns apply first; later buffered operations on a despawned entity are
// skipped. Failures don't stop the flush; the joined errors are returned.
func (c *Commands) Flush(w *World) error {
	var errs []error

	despawned := make(map[Entity]bool, len(c.despawns))
	for _, e := range c.despawns {
		if err := w.Despawn(e); err != nil {
			errs = append(errs, err)
			continue
		}
		despawned[e] = true
	}

	for _, cmd := range c.removes {
		if despawned[cmd.entity] {
			continue
		}
		if err := w.Remove(cmd.entity, cmd.types...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cmd := range c.inserts {
		if despawned[cmd.entity] {
			continue
		}
		if err := w.Insert(cmd.entity, cmd.components...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, components := range c.spawns {
		if _, err := w.Spawn(components...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, fn := range c.defers {
		fn(w)
	}

	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.inserts = c.inserts[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]

	return errors.Join(errs...)
}
