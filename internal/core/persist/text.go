package persist

import (
	"io"

	"gopkg.in/yaml.v3"
)

var _ Codec = (*TextCodec)(nil)

// TextCodec writes pretty-printed YAML with field names preserved. Saves
// are human-editable and diff cleanly in version control; parse errors
// come back annotated with the offending line.
type TextCodec struct {
	Indent int
}

func NewTextCodec() *TextCodec {
	return &TextCodec{Indent: 2}
}

func (c *TextCodec) Name() string { return "yaml" }
func (c *TextCodec) Ext() string  { return ".yaml" }

func (c *TextCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	if c.Indent > 0 {
		enc.SetIndent(c.Indent)
	}
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return &CodecError{Codec: c.Name(), Err: err}
	}
	if err := enc.Close(); err != nil {
		return &CodecError{Codec: c.Name(), Err: err}
	}
	return nil
}

func (c *TextCodec) Decode(r io.Reader, v any) error {
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return &CodecError{Codec: c.Name(), Err: err}
	}
	return nil
}
