package world

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pyrelight/pyrelight/internal/core/assets"
)

type velocity struct {
	DX, DY float64
}

type modelRef struct {
	Model assets.Handle
	LOD   int
}

func init() {
	assets.Register[velocity]("world.Velocity")
	assets.Register[modelRef]("world.ModelRef")
}

func TestWorld_SpawnAndClear(t *testing.T) {
	w := New()
	require.Equal(t, 0, w.Len())

	idx := w.Spawn(velocity{DX: 1}, "enemy")
	require.Equal(t, 0, idx)
	require.Equal(t, 1, w.Len())
	require.Len(t, w.Entities[0].Components, 2)

	w.Spawn(velocity{DY: -2})
	require.Equal(t, 2, w.Len())

	w.Clear()
	require.Equal(t, 0, w.Len())
}

func TestWorld_YAMLRoundTrip(t *testing.T) {
	w := New()
	w.Spawn(
		velocity{DX: 0.5, DY: -1.5},
		modelRef{Model: assets.Handle{Slot: 2, Generation: 1}, LOD: 3},
	)
	w.Spawn("checkpoint", 42, true)

	data, err := yaml.Marshal(w)
	require.NoError(t, err)
	require.Contains(t, string(data), "world.Velocity")

	restored := New()
	require.NoError(t, yaml.Unmarshal(data, restored))
	require.Equal(t, w.Entities, restored.Entities)
}

func TestWorld_GobRoundTrip(t *testing.T) {
	w := New()
	w.Spawn(velocity{DX: 3}, modelRef{Model: assets.Handle{Slot: 0, Generation: 1}})

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(w))

	restored := New()
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))
	require.Equal(t, w.Entities, restored.Entities)
}

func TestWorld_UnregisteredComponent(t *testing.T) {
	type hidden struct{ N int }

	w := New()
	w.Spawn(hidden{N: 1})

	_, err := yaml.Marshal(w)
	require.ErrorIs(t, err, assets.ErrUnregisteredType)
}
