// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"github.com/pkg/profile"
	"github.com/plus3/strata/ecs"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

type moving struct {
	Pos *position
	Vel *velocity `ecs:"read"`
}

func main() {
	defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()

	iters := 1000
	entities := 100000

	w := ecs.NewWorld()
	ecs.Register[position](w)
	ecs.Register[velocity](w)

	if _, err := w.SpawnBatch(entities, position{}, velocity{DX: 1, DY: 2}); err != nil {
		panic(err)
	}

	q, err := ecs.NewQuery[moving](w)
	if err != nil {
		panic(err)
	}

	for range iters {
		rows, err := q.Rows()
		if err != nil {
			panic(err)
		}
		for _, m := range rows.All() {
			m.Pos.X += m.Vel.DX
			m.Pos.Y += m.Vel.DY
		}
	}
}
