package assets

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// snapshotEntry is one live asset lifted out of its cell for persistence.
type snapshotEntry struct {
	slot  uint32
	tag   string
	boxed any
}

// snapshot captures the store's full persistent state: instance ID, the
// generation of every slot (dead slots included, so reloaded stores never
// hand out handles that alias stale serialized ones), and each live asset.
//
// Cells are probed with non-blocking read locks; a cell held by a writer
// fails the snapshot with ErrAssetBlocked. Persistence is specified as
// single-threaded relative to the store, so a blocked cell means the
// caller broke that contract.
func (s *Store) snapshot() (string, []uint32, []snapshotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	generations := make([]uint32, len(s.slots))
	entries := make([]snapshotEntry, 0, s.count)

	for i := range s.slots {
		generations[i] = s.slots[i].generation
		c := s.slots[i].cell
		if c == nil {
			continue
		}

		h := Handle{Slot: uint32(i), Generation: s.slots[i].generation}
		if !c.mu.TryRLock() {
			return "", nil, nil, fmt.Errorf("snapshot %s: %w", h, ErrAssetBlocked)
		}
		rt := reflect.TypeOf(c.value).Elem()
		tag, ok := tagOf(rt)
		if !ok {
			c.mu.RUnlock()
			return "", nil, nil, fmt.Errorf("snapshot %s: type %s: %w", h, rt, ErrUnregisteredType)
		}
		entries = append(entries, snapshotEntry{slot: uint32(i), tag: tag, boxed: c.value})
		c.mu.RUnlock()
	}

	return s.id.String(), generations, entries, nil
}

// restore replaces the store's contents with a decoded snapshot.
func (s *Store) restore(idStr string, generations []uint32, entries []snapshotEntry) error {
	id := uuid.New()
	if idStr != "" {
		parsed, err := uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("store snapshot: bad id %q: %w", idStr, err)
		}
		id = parsed
	}

	slots := make([]slot, len(generations))
	for i, gen := range generations {
		slots[i] = slot{generation: gen}
	}

	count := 0
	for _, e := range entries {
		if int(e.slot) >= len(slots) {
			return fmt.Errorf("store snapshot: asset slot %d out of range", e.slot)
		}
		if slots[e.slot].cell != nil {
			return fmt.Errorf("store snapshot: duplicate asset slot %d", e.slot)
		}
		slots[e.slot].cell = newCell(e.boxed)
		count++
	}

	var free []uint32
	for i := range slots {
		if slots[i].cell == nil {
			free = append(free, uint32(i))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.slots = slots
	s.free = free
	s.count = count
	return nil
}

// yamlStore is the text-codec shape of a store snapshot.
type yamlStore struct {
	ID          string      `yaml:"id"`
	Generations []uint32    `yaml:"generations,flow"`
	Assets      []yamlAsset `yaml:"assets"`
}

type yamlAsset struct {
	Slot uint32 `yaml:"slot"`
	Type string `yaml:"type"`
	Data any    `yaml:"data"`
}

// yamlAssetNode defers asset payload decoding until the tag is known.
type yamlAssetNode struct {
	Slot uint32    `yaml:"slot"`
	Type string    `yaml:"type"`
	Data yaml.Node `yaml:"data"`
}

var _ yaml.Marshaler = (*Store)(nil)
var _ yaml.Unmarshaler = (*Store)(nil)

// MarshalYAML renders the store as a human-readable snapshot with every
// asset wrapped in a type-tag envelope.
func (s *Store) MarshalYAML() (any, error) {
	id, generations, entries, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	doc := yamlStore{ID: id, Generations: generations, Assets: make([]yamlAsset, len(entries))}
	for i, e := range entries {
		doc.Assets[i] = yamlAsset{
			Slot: e.slot,
			Type: e.tag,
			Data: reflect.ValueOf(e.boxed).Elem().Interface(),
		}
	}
	return doc, nil
}

// UnmarshalYAML rebuilds the store from a text snapshot, dispatching each
// asset payload to the decoder registered for its tag.
func (s *Store) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		ID          string          `yaml:"id"`
		Generations []uint32        `yaml:"generations"`
		Assets      []yamlAssetNode `yaml:"assets"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}

	entries := make([]snapshotEntry, len(doc.Assets))
	for i, a := range doc.Assets {
		boxed, ok := newByTag(a.Type)
		if !ok {
			return fmt.Errorf("store snapshot: tag %q: %w", a.Type, ErrUnregisteredType)
		}
		if err := a.Data.Decode(boxed); err != nil {
			return fmt.Errorf("store snapshot: asset slot %d (%s): %w", a.Slot, a.Type, err)
		}
		entries[i] = snapshotEntry{slot: a.Slot, tag: a.Type, boxed: boxed}
	}

	return s.restore(doc.ID, doc.Generations, entries)
}

// gobStore is the binary-codec shape of a store snapshot. Asset values
// travel as interface fields; Register made their concrete types known to
// gob at startup.
type gobStore struct {
	ID          string
	Generations []uint32
	Assets      []gobAsset
}

type gobAsset struct {
	Slot  uint32
	Value any
}

var _ gob.GobEncoder = (*Store)(nil)
var _ gob.GobDecoder = (*Store)(nil)

// GobEncode renders the store as a compact binary snapshot.
func (s *Store) GobEncode() ([]byte, error) {
	id, generations, entries, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	doc := gobStore{ID: id, Generations: generations, Assets: make([]gobAsset, len(entries))}
	for i, e := range entries {
		doc.Assets[i] = gobAsset{
			Slot:  e.slot,
			Value: reflect.ValueOf(e.boxed).Elem().Interface(),
		}
	}

	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode rebuilds the store from a binary snapshot.
func (s *Store) GobDecode(data []byte) error {
	var doc gobStore
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return err
	}

	entries := make([]snapshotEntry, len(doc.Assets))
	for i, a := range doc.Assets {
		rt := reflect.TypeOf(a.Value)
		if rt == nil {
			return fmt.Errorf("store snapshot: asset slot %d has no value", a.Slot)
		}
		tag, ok := tagOf(rt)
		if !ok {
			return fmt.Errorf("store snapshot: type %s: %w", rt, ErrUnregisteredType)
		}
		boxed := reflect.New(rt)
		boxed.Elem().Set(reflect.ValueOf(a.Value))
		entries[i] = snapshotEntry{slot: a.Slot, tag: tag, boxed: boxed.Interface()}
	}

	return s.restore(doc.ID, doc.Generations, entries)
}

// Envelope wraps a concrete value in its registry tag for polymorphic
// text serialization outside the store itself (scene components embed
// assets and handles the same way).
type Envelope struct {
	Type string `yaml:"type"`
	Data any    `yaml:"data"`
}

// EncodeEnvelope resolves the registry tag for v, accepting either a
// concrete value or a pointer to one.
func EncodeEnvelope(v any) (Envelope, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return Envelope{}, fmt.Errorf("envelope: nil value: %w", ErrUnregisteredType)
	}
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	tag, ok := tagOf(rv.Type())
	if !ok {
		return Envelope{}, fmt.Errorf("envelope: type %s: %w", rv.Type(), ErrUnregisteredType)
	}
	return Envelope{Type: tag, Data: rv.Interface()}, nil
}

// DecodeEnvelope decodes a tag envelope back into its concrete value.
func DecodeEnvelope(node *yaml.Node) (any, error) {
	var env struct {
		Type string    `yaml:"type"`
		Data yaml.Node `yaml:"data"`
	}
	if err := node.Decode(&env); err != nil {
		return nil, err
	}
	boxed, ok := newByTag(env.Type)
	if !ok {
		return nil, fmt.Errorf("envelope: tag %q: %w", env.Type, ErrUnregisteredType)
	}
	if err := env.Data.Decode(boxed); err != nil {
		return nil, fmt.Errorf("envelope (%s): %w", env.Type, err)
	}
	return reflect.ValueOf(boxed).Elem().Interface(), nil
}
