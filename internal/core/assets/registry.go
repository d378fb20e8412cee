package assets

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"sort"
	sc "sync"
)

// typeRegistry maps a stable type tag to a decoder factory and back. It is
// the explicit registration table that lets a type-erased asset be written
// to disk and read back without the reader knowing the concrete type in
// advance. Registration happens once at startup; duplicate tags indicate a
// wiring bug and panic rather than silently overriding an earlier entry.
type typeRegistry struct {
	mu        sc.RWMutex
	factories map[string]func() any
	tags      map[reflect.Type]string
}

var global = &typeRegistry{
	factories: make(map[string]func() any),
	tags:      make(map[reflect.Type]string),
}

// Register declares type A storable under the given tag. The tag must be
// unique process-wide. Registration also makes A transmissible through the
// binary codec's interface-typed fields.
func Register[A any](tag string) {
	rt := reflect.TypeOf((*A)(nil)).Elem()

	global.mu.Lock()
	defer global.mu.Unlock()

	if _, exists := global.factories[tag]; exists {
		panic(fmt.Sprintf("asset registry: tag %q already registered", tag))
	}
	if prev, exists := global.tags[rt]; exists {
		panic(fmt.Sprintf("asset registry: type %s already registered as %q", rt, prev))
	}

	global.factories[tag] = func() any { return new(A) }
	global.tags[rt] = tag

	var probe A
	gob.Register(probe)
}

// RegisteredTags returns all known tags, sorted.
func RegisteredTags() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()

	tags := make([]string, 0, len(global.factories))
	for tag := range global.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// tagOf resolves the tag for a concrete (non-pointer) type.
func tagOf(rt reflect.Type) (string, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	tag, ok := global.tags[rt]
	return tag, ok
}

// newByTag allocates a fresh boxed value (*A) for a tag.
func newByTag(tag string) (any, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	factory, ok := global.factories[tag]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Builtin registrations mirror the component types every scene can rely
// on without explicit setup.
func init() {
	Register[bool]("bool")
	Register[int]("int")
	Register[int8]("int8")
	Register[int16]("int16")
	Register[int32]("int32")
	Register[int64]("int64")
	Register[uint]("uint")
	Register[uint8]("uint8")
	Register[uint16]("uint16")
	Register[uint32]("uint32")
	Register[uint64]("uint64")
	Register[float32]("float32")
	Register[float64]("float64")
	Register[string]("string")
	Register[Handle]("Handle")
}
