package ecs

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

// bundle is the resolved, id-ordered form of the component values supplied
// to one spawn or insert call. It is transient; nothing stores bundles.
type bundle struct {
	mask   mask.Mask
	types  []*componentType
	values []any
}

// makeBundle resolves component values against the registry, registering
// unseen types lazily. Duplicate types within one call keep the last value.
func makeBundle(r *registry, components []any) bundle {
	b := bundle{
		types:  make([]*componentType, 0, len(components)),
		values: make([]any, 0, len(components)),
	}

	for _, comp := range components {
		t := componentTypeOf(comp)
		r.registerValueType(t)
		ct, _ := r.lookup(t)

		if i := b.indexOf(ct.id); i >= 0 {
			b.values[i] = comp
			continue
		}
		b.mask.Mark(uint32(ct.id))
		b.types = append(b.types, ct)
		b.values = append(b.values, comp)
	}

	sort.Sort(byComponentID{&b})
	return b
}

func (b *bundle) indexOf(id ComponentID) int {
	for i, ct := range b.types {
		if ct.id == id {
			return i
		}
	}
	return -1
}

// byComponentID orders a bundle's entries by component id, the canonical
// column order of archetypes.
type byComponentID struct {
	b *bundle
}

func (s byComponentID) Len() int { return len(s.b.types) }

func (s byComponentID) Less(i, j int) bool { return s.b.types[i].id < s.b.types[j].id }

func (s byComponentID) Swap(i, j int) {
	s.b.types[i], s.b.types[j] = s.b.types[j], s.b.types[i]
	s.b.values[i], s.b.values[j] = s.b.values[j], s.b.values[i]
}
