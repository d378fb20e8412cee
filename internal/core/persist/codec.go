// Package persist is the storage engine's persistence pipeline: pluggable
// save/load codecs (human-readable text and compressed binary), a
// compressed multi-entry archive container, and scene bundling that ships
// the world and the asset store as one file.
package persist

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pyrelight/pyrelight/pkg/generic"
)

// Codec turns an arbitrary serializable value into bytes and back. The
// two strategies (text, binary) are interchangeable; callers pick one and
// hold onto it for both save and load.
type Codec interface {
	// Name identifies the codec in diagnostics and archive manifests.
	Name() string
	// Ext is the file extension the codec's payloads conventionally use,
	// including the leading dot.
	Ext() string

	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// Save encodes v into a freshly created file at path.
func Save(c Codec, path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err = c.Encode(f, v); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Load decodes the file at path into v, which must be a pointer.
func Load(c Codec, path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return c.Decode(f, v)
}

// buffers serves the codecs' staging buffers.
var buffers = generic.NewResetPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)
