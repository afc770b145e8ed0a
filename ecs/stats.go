package ecs

import "reflect"

// WorldStats is a point-in-time snapshot of a world's shape, for debugging
// and profiling tools.
type WorldStats struct {
	Entities     int
	Archetypes   int
	PerArchetype []ArchetypeStats
}

// ArchetypeStats describes one archetype's type-set and row count.
type ArchetypeStats struct {
	Types []reflect.Type
	Rows  int
}

// Stats snapshots the world under its read lock.
func (w *World) Stats() WorldStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := WorldStats{
		Entities:   w.index.len(),
		Archetypes: len(w.archetypes),
	}
	for _, a := range w.archetypes {
		types := make([]reflect.Type, len(a.types))
		for i, ct := range a.types {
			types[i] = ct.typ
		}
		stats.PerArchetype = append(stats.PerArchetype, ArchetypeStats{
			Types: types,
			Rows:  a.len(),
		})
	}
	return stats
}
