package assets

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Handle is an opaque reference to an asset held by a Store.
//
// A Handle combines a slot index with a generation counter, so a handle
// pointing at a removed slot can never alias an asset inserted later into
// the same slot. Handles are plain values: they are comparable, usable as
// map keys, and serializable, which makes them safe to embed in components
// or any other persisted structure.
//
// A Handle is only meaningful for the Store instance that produced it.
type Handle struct {
	Slot       uint32 `yaml:"slot"`
	Generation uint32 `yaml:"generation"`
}

// NilHandle is the zero handle. It never resolves to a live asset.
var NilHandle = Handle{}

// IsNil reports whether the handle is the zero handle.
func (h Handle) IsNil() bool {
	return h == NilHandle
}

// Less defines a total order over handles, first by slot, then by generation.
func (h Handle) Less(other Handle) bool {
	if h.Slot != other.Slot {
		return h.Slot < other.Slot
	}
	return h.Generation < other.Generation
}

// Hash returns a 64-bit hash of the handle, suitable for sharded or
// hash-indexed structures.
func (h Handle) Hash() uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], h.Slot)
	binary.BigEndian.PutUint32(buf[4:], h.Generation)
	return xxhash.Sum64(buf[:])
}

func (h Handle) String() string {
	if h.IsNil() {
		return "Handle(nil)"
	}
	return fmt.Sprintf("Handle(%d.%d)", h.Slot, h.Generation)
}
