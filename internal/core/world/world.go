// Package world holds the engine's serializable world state. The storage
// engine treats a World as an opaque blob: it hands the whole value to a
// codec and never inspects entities or components itself. Components are
// dynamically typed and round-trip through the asset type registry's tag
// envelopes.
package world

import (
	"gopkg.in/yaml.v3"

	"github.com/pyrelight/pyrelight/internal/core/assets"
)

// World is a flat bag of entities.
type World struct {
	Entities []Entity `yaml:"entities"`
}

// Entity is an ordered set of components of arbitrary registered types.
type Entity struct {
	Components []any
}

// New creates an empty world.
func New() *World {
	return &World{}
}

// Spawn adds an entity built from the given components and returns its
// index.
func (w *World) Spawn(components ...any) int {
	w.Entities = append(w.Entities, Entity{Components: components})
	return len(w.Entities) - 1
}

// Clear removes all entities.
func (w *World) Clear() {
	w.Entities = nil
}

// Len returns the number of entities.
func (w *World) Len() int {
	return len(w.Entities)
}

var _ yaml.Marshaler = (*Entity)(nil)
var _ yaml.Unmarshaler = (*Entity)(nil)

// MarshalYAML wraps every component in its registry tag envelope, so the
// text form stays self-describing.
func (e Entity) MarshalYAML() (any, error) {
	envelopes := make([]assets.Envelope, len(e.Components))
	for i, comp := range e.Components {
		env, err := assets.EncodeEnvelope(comp)
		if err != nil {
			return nil, err
		}
		envelopes[i] = env
	}
	return struct {
		Components []assets.Envelope `yaml:"components"`
	}{Components: envelopes}, nil
}

// UnmarshalYAML decodes each component through the registry, recovering
// concrete types.
func (e *Entity) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Components []yaml.Node `yaml:"components"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	e.Components = make([]any, len(doc.Components))
	for i := range doc.Components {
		comp, err := assets.DecodeEnvelope(&doc.Components[i])
		if err != nil {
			return err
		}
		e.Components[i] = comp
	}
	return nil
}
