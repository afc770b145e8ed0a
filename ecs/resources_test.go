package ecs_test

import (
	"testing"

	"github.com/plus3/strata/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gameClock struct {
	Tick uint64
}

func TestResourceRoundTrip(t *testing.T) {
	w := ecs.NewWorld()

	_, ok := ecs.Resource[gameClock](w)
	assert.False(t, ok)

	ecs.SetResource(w, gameClock{Tick: 5})

	clock, ok := ecs.Resource[gameClock](w)
	require.True(t, ok)
	assert.Equal(t, uint64(5), clock.Tick)

	// The pointer is stable: mutations stick.
	clock.Tick = 6
	again, ok := ecs.Resource[gameClock](w)
	require.True(t, ok)
	assert.Equal(t, uint64(6), again.Tick)
}

func TestSetResourceReplaces(t *testing.T) {
	w := ecs.NewWorld()

	ecs.SetResource(w, gameClock{Tick: 1})
	ecs.SetResource(w, gameClock{Tick: 2})

	clock, ok := ecs.Resource[gameClock](w)
	require.True(t, ok)
	assert.Equal(t, uint64(2), clock.Tick)
}

func TestRemoveResource(t *testing.T) {
	w := ecs.NewWorld()

	assert.False(t, ecs.RemoveResource[gameClock](w))

	ecs.SetResource(w, gameClock{Tick: 1})
	assert.True(t, ecs.RemoveResource[gameClock](w))

	_, ok := ecs.Resource[gameClock](w)
	assert.False(t, ok)
}
