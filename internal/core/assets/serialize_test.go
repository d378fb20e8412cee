package assets

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// buildStore populates a store with a dead slot in the middle, so
// round-trip tests cover generation preservation, not just live assets.
func buildStore(t *testing.T) (*Store, []Handle, Handle) {
	t.Helper()
	s := NewStore()

	h0 := Insert(s, testTexture{Name: "bricks", Width: 64, Height: 64})
	removed := Insert(s, testMaterial{Shader: "discarded"})
	h2 := Insert(s, testMaterial{Shader: "pbr", Roughness: 0.5})
	h3 := Insert(s, 42)

	_, ok := Remove[testMaterial](s, removed)
	require.True(t, ok)

	return s, []Handle{h0, h2, h3}, removed
}

func requireStoresEqual(t *testing.T, want, got *Store, live []Handle, removed Handle) {
	t.Helper()

	require.Equal(t, want.ID(), got.ID())
	require.Equal(t, want.Len(), got.Len())
	require.ElementsMatch(t, want.Handles(), got.Handles())

	for _, h := range live {
		g1, err := want.GetDynamic(h)
		require.NoError(t, err)
		g2, err := got.GetDynamic(h)
		require.NoError(t, err)
		require.Equal(t, g1.Value(), g2.Value())
		g1.Release()
		g2.Release()
	}

	// Stale handles stay invalid, and slot reuse in the restored store
	// must not resurrect them.
	_, err := got.GetDynamic(removed)
	require.ErrorIs(t, err, ErrInvalidHandle)
	fresh := Insert(got, testMaterial{Shader: "fresh"})
	require.NotEqual(t, removed, fresh)
}

func TestStore_YAMLRoundTrip(t *testing.T) {
	s, live, removed := buildStore(t)

	data, err := yaml.Marshal(s)
	require.NoError(t, err)

	restored := NewStore()
	require.NoError(t, yaml.Unmarshal(data, restored))

	requireStoresEqual(t, s, restored, live, removed)
}

func TestStore_YAMLIsHumanReadable(t *testing.T) {
	s := NewStore()
	Insert(s, testTexture{Name: "bricks", Width: 64, Height: 64})

	data, err := yaml.Marshal(s)
	require.NoError(t, err)

	text := string(data)
	require.Contains(t, text, "test.Texture")
	require.Contains(t, text, "bricks")
	require.Contains(t, text, "width")
}

func TestStore_GobRoundTrip(t *testing.T) {
	s, live, removed := buildStore(t)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(s))

	restored := NewStore()
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))

	requireStoresEqual(t, s, restored, live, removed)
}

func TestStore_SnapshotUnregisteredType(t *testing.T) {
	type privateAsset struct{ X int }

	s := NewStore()
	Insert(s, privateAsset{X: 7})

	_, err := yaml.Marshal(s)
	require.ErrorIs(t, err, ErrUnregisteredType)

	_, err = s.GobEncode()
	require.ErrorIs(t, err, ErrUnregisteredType)
}

func TestStore_SnapshotBlockedCell(t *testing.T) {
	s := NewStore()
	h := Insert(s, testTexture{Name: "held"})

	g, err := GetMut[testTexture](s, h)
	require.NoError(t, err)
	defer g.Release()

	_, err = yaml.Marshal(s)
	require.ErrorIs(t, err, ErrAssetBlocked)
}

func TestStore_UnmarshalRejectsBadSnapshots(t *testing.T) {
	t.Run("unknown tag", func(t *testing.T) {
		doc := "id: \"\"\ngenerations: [1]\nassets:\n  - slot: 0\n    type: no.Such\n    data: 1\n"
		restored := NewStore()
		err := yaml.Unmarshal([]byte(doc), restored)
		require.ErrorIs(t, err, ErrUnregisteredType)
	})

	t.Run("slot out of range", func(t *testing.T) {
		doc := "id: \"\"\ngenerations: [1]\nassets:\n  - slot: 5\n    type: int\n    data: 1\n"
		restored := NewStore()
		err := yaml.Unmarshal([]byte(doc), restored)
		require.ErrorContains(t, err, "out of range")
	})
}

func TestHandle_Serialization(t *testing.T) {
	h := Handle{Slot: 11, Generation: 3}

	data, err := yaml.Marshal(h)
	require.NoError(t, err)
	var decoded Handle
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, h, decoded)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(h))
	var gobDecoded Handle
	require.NoError(t, gob.NewDecoder(&buf).Decode(&gobDecoded))
	require.Equal(t, h, gobDecoded)
}
