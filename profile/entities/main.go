// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" ./entities cpu.pprof

package main

import (
	"reflect"

	"github.com/pkg/profile"
	"github.com/plus3/strata/ecs"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

type health struct {
	Current, Max int
}

func main() {
	defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()

	rounds := 50
	entities := 100000

	for range rounds {
		run(entities)
	}
}

func run(n int) {
	w := ecs.NewWorld()
	ecs.Register[position](w)
	ecs.Register[velocity](w)
	ecs.Register[health](w)

	spawned, err := w.SpawnBatch(n, position{}, velocity{DX: 1, DY: 1})
	if err != nil {
		panic(err)
	}

	healthType := reflect.TypeFor[health]()
	for i, e := range spawned {
		if i%2 == 0 {
			if err := w.Insert(e, health{Current: 100, Max: 100}); err != nil {
				panic(err)
			}
		}
	}
	for i, e := range spawned {
		switch i % 4 {
		case 0:
			if err := w.Remove(e, healthType); err != nil {
				panic(err)
			}
		case 1:
			if err := w.Despawn(e); err != nil {
				panic(err)
			}
		}
	}
}
