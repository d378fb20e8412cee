package persist

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

var _ Codec = (*BinaryCodec)(nil)

// BinaryCodec writes compact gob encoding, optionally passed through a
// streaming lz4 compressor. The compression wrapper is transparent: with
// no level configured, bytes hit the destination unchanged.
//
// The value is staged in a buffer on both paths so decompression failures
// (truncated or corrupt input) surface as I/O-layer errors, distinct from
// decode failures, and never as a silent empty result.
type BinaryCodec struct {
	level    lz4.CompressionLevel
	compress bool
}

// NewBinaryCodec creates an uncompressed binary codec.
func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{}
}

// NewCompressedBinaryCodec creates a binary codec wrapped in lz4 at the
// given compression level.
func NewCompressedBinaryCodec(level lz4.CompressionLevel) *BinaryCodec {
	return &BinaryCodec{level: level, compress: true}
}

func (c *BinaryCodec) Name() string {
	if c.compress {
		return "binary+lz4"
	}
	return "binary"
}

func (c *BinaryCodec) Ext() string { return ".bin" }

func (c *BinaryCodec) Encode(w io.Writer, v any) error {
	buf := buffers.Get()
	defer buffers.Put(buf)

	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return &CodecError{Codec: c.Name(), Err: err}
	}

	if !c.compress {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	}

	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(c.level)); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if _, err := io.Copy(zw, buf); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	return nil
}

func (c *BinaryCodec) Decode(r io.Reader, v any) error {
	buf := buffers.Get()
	defer buffers.Put(buf)

	src := r
	if c.compress {
		src = lz4.NewReader(r)
	}
	if _, err := buf.ReadFrom(src); err != nil {
		if c.compress {
			return fmt.Errorf("decompress: %w", err)
		}
		return fmt.Errorf("read: %w", err)
	}

	if err := gob.NewDecoder(buf).Decode(v); err != nil {
		return &CodecError{Codec: c.Name(), Err: err}
	}
	return nil
}
