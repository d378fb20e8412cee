package assets

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testTexture struct {
	Name   string
	Width  int
	Height int
}

type testMaterial struct {
	Shader    string
	Roughness float64
}

func init() {
	Register[testTexture]("test.Texture")
	Register[testMaterial]("test.Material")
}

func TestStore_InsertGetRoundTrip(t *testing.T) {
	s := NewStore()

	tex := testTexture{Name: "bricks", Width: 512, Height: 512}
	h := Insert(s, tex)
	require.False(t, h.IsNil())
	require.Equal(t, 1, s.Len())

	guard, err := Get[testTexture](s, h)
	require.NoError(t, err)
	require.Equal(t, tex, *guard.Value())
	guard.Release()
	guard.Release() // releasing twice is a no-op
}

func TestStore_LifecycleScenario(t *testing.T) {
	s := NewStore()

	h0 := Insert(s, 42)

	rg, err := Get[int](s, h0)
	require.NoError(t, err)
	require.Equal(t, 42, *rg.Value())
	rg.Release()

	_, err = Get[string](s, h0)
	require.ErrorIs(t, err, ErrWrongAssetType)
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, "string", typeErr.AssetType)

	v, ok := Remove[int](s, h0)
	require.True(t, ok)
	require.Equal(t, 42, v)

	_, err = Get[int](s, h0)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = GetMut[int](s, h0)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.GetDynamic(h0)
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestStore_GetMut(t *testing.T) {
	s := NewStore()
	h := Insert(s, testMaterial{Shader: "pbr", Roughness: 0.8})

	wg, err := GetMut[testMaterial](s, h)
	require.NoError(t, err)
	wg.Value().Roughness = 0.2
	wg.Release()

	rg, err := Get[testMaterial](s, h)
	require.NoError(t, err)
	require.Equal(t, 0.2, rg.Value().Roughness)
	rg.Release()
}

func TestStore_NilAndForeignHandles(t *testing.T) {
	s := NewStore()
	Insert(s, testTexture{Name: "a"})

	_, err := Get[testTexture](s, NilHandle)
	require.ErrorIs(t, err, ErrInvalidHandle)

	_, err = Get[testTexture](s, Handle{Slot: 99, Generation: 1})
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestStore_SlotReuseAdvancesGeneration(t *testing.T) {
	s := NewStore()

	h0 := Insert(s, testTexture{Name: "old"})
	_, ok := Remove[testTexture](s, h0)
	require.True(t, ok)

	h1 := Insert(s, testTexture{Name: "new"})
	require.Equal(t, h0.Slot, h1.Slot, "freed slot should be reused")
	require.NotEqual(t, h0.Generation, h1.Generation)

	// The stale handle must never alias the new asset.
	_, err := Get[testTexture](s, h0)
	require.ErrorIs(t, err, ErrInvalidHandle)

	rg, err := Get[testTexture](s, h1)
	require.NoError(t, err)
	require.Equal(t, "new", rg.Value().Name)
	rg.Release()
}

func TestStore_FailFastOnContention(t *testing.T) {
	t.Run("writer blocks readers and writers", func(t *testing.T) {
		s := NewStore()
		h := Insert(s, testTexture{Name: "contended"})

		wg, err := GetMut[testTexture](s, h)
		require.NoError(t, err)

		_, err = Get[testTexture](s, h)
		require.ErrorIs(t, err, ErrAssetBlocked)
		_, err = GetMut[testTexture](s, h)
		require.ErrorIs(t, err, ErrAssetBlocked)
		_, err = s.GetDynamic(h)
		require.ErrorIs(t, err, ErrAssetBlocked)

		wg.Release()

		rg, err := Get[testTexture](s, h)
		require.NoError(t, err)
		rg.Release()
	})

	t.Run("readers share, writers fail", func(t *testing.T) {
		s := NewStore()
		h := Insert(s, testTexture{Name: "shared"})

		rg1, err := Get[testTexture](s, h)
		require.NoError(t, err)
		rg2, err := Get[testTexture](s, h)
		require.NoError(t, err)

		_, err = GetMut[testTexture](s, h)
		require.ErrorIs(t, err, ErrAssetBlocked)

		rg1.Release()
		rg2.Release()
	})
}

func TestStore_GuardOutlivesMapMutation(t *testing.T) {
	s := NewStore()
	h := Insert(s, testTexture{Name: "stable"})

	rg, err := Get[testTexture](s, h)
	require.NoError(t, err)

	// Grow and shrink the map while the guard is live.
	var handles []Handle
	for i := 0; i < 256; i++ {
		handles = append(handles, Insert(s, testMaterial{Shader: "tmp"}))
	}
	for _, th := range handles {
		_, ok := Remove[testMaterial](s, th)
		require.True(t, ok)
	}

	require.Equal(t, "stable", rg.Value().Name)
	rg.Release()
}

func TestStore_RemoveRequiresExclusivity(t *testing.T) {
	s := NewStore()
	h := Insert(s, testTexture{Name: "guarded"})

	rg, err := Get[testTexture](s, h)
	require.NoError(t, err)

	_, ok := Remove[testTexture](s, h)
	require.False(t, ok, "remove must fail while a guard is checked out")

	rg.Release()

	_, ok = Remove[testMaterial](s, h)
	require.False(t, ok, "remove must fail on type mismatch")
	require.Equal(t, 1, s.Len())

	v, ok := Remove[testTexture](s, h)
	require.True(t, ok)
	require.Equal(t, "guarded", v.Name)
	require.Equal(t, 0, s.Len())
}

func TestStore_IndependentConcurrency(t *testing.T) {
	s := NewStore()
	ha := Insert(s, 0)
	hb := Insert(s, 0)

	const iterations = 1000

	var wg sync.WaitGroup
	for _, h := range []Handle{ha, hb} {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				g, err := GetMut[int](s, h)
				// The other goroutine only ever touches its own handle,
				// so no attempt may observe contention.
				require.NoError(t, err)
				*g.Value()++
				g.Release()
			}
		}(h)
	}
	wg.Wait()

	for _, h := range []Handle{ha, hb} {
		rg, err := Get[int](s, h)
		require.NoError(t, err)
		require.Equal(t, iterations, *rg.Value())
		rg.Release()
	}
}

func TestStore_SameHandleExclusion(t *testing.T) {
	s := NewStore()
	h := Insert(s, 0)

	const iterations = 500

	var wg sync.WaitGroup
	succeeded := make([]int, 2)
	for worker := 0; worker < 2; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				g, err := GetMut[int](s, h)
				if err != nil {
					require.ErrorIs(t, err, ErrAssetBlocked)
					continue
				}
				*g.Value()++
				succeeded[worker]++
				g.Release()
			}
		}(worker)
	}
	wg.Wait()

	rg, err := Get[int](s, h)
	require.NoError(t, err)
	require.Equal(t, succeeded[0]+succeeded[1], *rg.Value())
	rg.Release()
}

func TestStore_GetDynamic(t *testing.T) {
	s := NewStore()
	h := Insert(s, testTexture{Name: "dyn"})

	g, err := s.GetDynamic(h)
	require.NoError(t, err)
	tex, ok := g.Value().(*testTexture)
	require.True(t, ok)
	require.Equal(t, "dyn", tex.Name)
	g.Release()
}

func TestStore_Handles(t *testing.T) {
	s := NewStore()
	h0 := Insert(s, 1)
	h1 := Insert(s, 2)
	h2 := Insert(s, 3)
	_, ok := Remove[int](s, h1)
	require.True(t, ok)

	require.ElementsMatch(t, []Handle{h0, h2}, s.Handles())
}

func TestHandle_Ordering(t *testing.T) {
	a := Handle{Slot: 1, Generation: 1}
	b := Handle{Slot: 1, Generation: 2}
	c := Handle{Slot: 2, Generation: 1}

	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.False(t, c.Less(a))
	require.NotEqual(t, a.Hash(), b.Hash())
	require.Equal(t, "Handle(1.2)", b.String())
	require.Equal(t, "Handle(nil)", NilHandle.String())
}

func Benchmark_StoreGet(b *testing.B) {
	s := NewStore()
	h := Insert(s, testTexture{Name: "bench", Width: 1024, Height: 1024})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		g, err := Get[testTexture](s, h)
		if err != nil {
			b.Fatal(err)
		}
		g.Release()
	}
}
