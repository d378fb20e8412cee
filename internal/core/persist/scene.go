package persist

import (
	"bytes"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pyrelight/pyrelight/internal/core/assets"
	"github.com/pyrelight/pyrelight/internal/core/world"
)

// Scene bundles the two top-level engine states, each serialized
// independently so their schemas can evolve apart, shipped together as one
// archive the end user drags around.
type Scene struct {
	World  *world.World
	Assets *assets.Store
}

// NewScene wraps an existing world and asset store for persistence.
func NewScene(w *world.World, s *assets.Store) *Scene {
	return &Scene{World: w, Assets: s}
}

func sceneEntryNames(c Codec) (worldEntry, assetsEntry string) {
	return "world" + c.Ext(), "assets" + c.Ext()
}

// Save serializes the world and the asset store with the given codec and
// writes both as named entries of one compressed archive. The caller must
// ensure no concurrent mutation of the store during the save; a
// half-consistent snapshot has no defined recovery behavior.
func (sc *Scene) Save(path string, codec Codec) error {
	var worldBuf, assetsBuf bytes.Buffer

	// The two payloads have unrelated schemas and share no state, so they
	// encode in parallel.
	var g errgroup.Group
	g.Go(func() error { return codec.Encode(&worldBuf, sc.World) })
	g.Go(func() error { return codec.Encode(&assetsBuf, sc.Assets) })
	if err := g.Wait(); err != nil {
		return err
	}

	worldEntry, assetsEntry := sceneEntryNames(codec)
	w, err := NewArchiveWriter(path, codec.Name())
	if err != nil {
		return err
	}
	if err = w.WriteEntry(worldEntry, worldBuf.Bytes()); err != nil {
		return err
	}
	if err = w.WriteEntry(assetsEntry, assetsBuf.Bytes()); err != nil {
		return err
	}
	return w.Close()
}

// Load reads the archive at path and replaces the scene's world and asset
// store contents. Entries with unrecognized names are ignored for forward
// compatibility; a missing required entry fails the load.
func (sc *Scene) Load(path string, codec Codec) error {
	entries, manifest, err := ReadEntries(path)
	if err != nil {
		return err
	}
	if manifest != nil && manifest.Codec != codec.Name() {
		return fmt.Errorf("archive codec %q, loading with %q: %w", manifest.Codec, codec.Name(), ErrCodecMismatch)
	}

	worldEntry, assetsEntry := sceneEntryNames(codec)
	for _, required := range []string{worldEntry, assetsEntry} {
		if _, ok := entries[required]; !ok {
			return fmt.Errorf("entry %q: %w", required, ErrMissingEntry)
		}
	}

	if err = codec.Decode(bytes.NewReader(entries[worldEntry]), sc.World); err != nil {
		return err
	}
	return codec.Decode(bytes.NewReader(entries[assetsEntry]), sc.Assets)
}

// LoadScene reads an archive into a fresh world and asset store.
func LoadScene(path string, codec Codec) (*Scene, error) {
	sc := &Scene{World: world.New(), Assets: assets.NewStore()}
	if err := sc.Load(path, codec); err != nil {
		return nil, err
	}
	return sc, nil
}
