package persist

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// The archive is a single lz4 stream whose decompressed contents are tar
// entries: named, length-prefixed blobs. The first entry is a YAML
// manifest describing the rest, so a reader can verify integrity and a
// human can identify a save file without loading it.

const manifestEntryName = "manifest.yaml"

const archiveCompressionLevel = lz4.Level4

// Manifest describes an archive: identity, provenance, and a checksum per
// entry.
type Manifest struct {
	ID        string          `yaml:"id"`
	CreatedAt time.Time       `yaml:"created_at"`
	Codec     string          `yaml:"codec"`
	Entries   []ManifestEntry `yaml:"entries"`
}

// ManifestEntry records one named payload.
type ManifestEntry struct {
	Name     string `yaml:"name"`
	Size     int64  `yaml:"size"`
	Checksum uint64 `yaml:"checksum"`
}

func (m *Manifest) entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// ArchiveWriter bundles named byte payloads into one compressed archive.
// Entries are staged in memory until Close, which writes the manifest
// followed by every entry in insertion order and finalizes the stream.
// There is no partial or resumable state; a crash mid-write leaves a
// corrupt file that the next load attempt rejects.
type ArchiveWriter struct {
	dst     io.WriteCloser
	codec   string
	entries []pendingEntry
	closed  bool
}

type pendingEntry struct {
	name string
	data []byte
}

// NewArchiveWriter creates the archive file at path. codecName is recorded
// in the manifest so loads can detect a strategy mismatch.
func NewArchiveWriter(path, codecName string) (*ArchiveWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &ArchiveWriter{dst: f, codec: codecName}, nil
}

// WriteEntry stages a named payload. Entry names must be unique.
func (w *ArchiveWriter) WriteEntry(name string, data []byte) error {
	if w.closed {
		return ErrArchiveClosed
	}
	for _, e := range w.entries {
		if e.name == name {
			return fmt.Errorf("entry %q: %w", name, ErrDuplicateEntry)
		}
	}
	w.entries = append(w.entries, pendingEntry{name: name, data: data})
	return nil
}

// Close writes the manifest and all staged entries through the compressor
// and closes the file. The writer is unusable afterwards.
func (w *ArchiveWriter) Close() error {
	if w.closed {
		return ErrArchiveClosed
	}
	w.closed = true

	manifest := Manifest{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Codec:     w.codec,
		Entries:   make([]ManifestEntry, len(w.entries)),
	}
	for i, e := range w.entries {
		manifest.Entries[i] = ManifestEntry{
			Name:     e.name,
			Size:     int64(len(e.data)),
			Checksum: xxhash.Sum64(e.data),
		}
	}
	manifestData, err := yaml.Marshal(&manifest)
	if err != nil {
		_ = w.dst.Close()
		return &CodecError{Codec: "yaml", Err: err}
	}

	zw := lz4.NewWriter(w.dst)
	if err = zw.Apply(lz4.CompressionLevelOption(archiveCompressionLevel)); err != nil {
		_ = w.dst.Close()
		return fmt.Errorf("compress: %w", err)
	}
	tw := tar.NewWriter(zw)

	if err = writeTarEntry(tw, manifestEntryName, manifestData, manifest.CreatedAt); err == nil {
		for _, e := range w.entries {
			if err = writeTarEntry(tw, e.name, e.data, manifest.CreatedAt); err != nil {
				break
			}
		}
	}
	if err != nil {
		_ = tw.Close()
		_ = zw.Close()
		_ = w.dst.Close()
		return err
	}

	if err = tw.Close(); err != nil {
		_ = zw.Close()
		_ = w.dst.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = zw.Close(); err != nil {
		_ = w.dst.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = w.dst.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     int64(len(data)),
		Mode:     0o644,
		ModTime:  modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	return nil
}

// ArchiveReader iterates the named payloads of an archive. When the
// archive carries a manifest, every delivered entry has been checksum
// verified.
type ArchiveReader struct {
	src      io.ReadCloser
	tr       *tar.Reader
	manifest *Manifest
	pending  *pendingEntry
}

// OpenArchive opens the archive at path and consumes its manifest, when
// present. Archives without a manifest (foreign or hand-built) still
// iterate, just without verification.
func OpenArchive(path string) (*ArchiveReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &ArchiveReader{
		src: f,
		tr:  tar.NewReader(lz4.NewReader(f)),
	}

	hdr, err := r.tr.Next()
	if errors.Is(err, io.EOF) {
		return r, nil
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	data, err := io.ReadAll(r.tr)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}

	if hdr.Name == manifestEntryName {
		var m Manifest
		if err = yaml.Unmarshal(data, &m); err != nil {
			_ = f.Close()
			return nil, &CodecError{Codec: "yaml", Err: err}
		}
		r.manifest = &m
	} else {
		r.pending = &pendingEntry{name: hdr.Name, data: data}
	}
	return r, nil
}

// Manifest returns the archive manifest, or nil when the archive has none.
func (r *ArchiveReader) Manifest() *Manifest {
	return r.manifest
}

// Next returns the next entry. It returns io.EOF once the archive is
// exhausted; a stream that ends mid-entry surfaces as an error instead.
func (r *ArchiveReader) Next() (string, []byte, error) {
	if p := r.pending; p != nil {
		r.pending = nil
		return p.name, p.data, nil
	}

	hdr, err := r.tr.Next()
	if errors.Is(err, io.EOF) {
		return "", nil, io.EOF
	}
	if err != nil {
		return "", nil, fmt.Errorf("read archive: %w", err)
	}
	data, err := io.ReadAll(r.tr)
	if err != nil {
		return "", nil, fmt.Errorf("read entry %q: %w", hdr.Name, err)
	}

	if r.manifest != nil {
		if e, ok := r.manifest.entry(hdr.Name); ok && e.Checksum != xxhash.Sum64(data) {
			return "", nil, fmt.Errorf("entry %q: %w", hdr.Name, ErrChecksum)
		}
	}
	return hdr.Name, data, nil
}

func (r *ArchiveReader) Close() error {
	return r.src.Close()
}

// ReadEntries loads every entry of the archive at path into memory.
func ReadEntries(path string) (map[string][]byte, *Manifest, error) {
	r, err := OpenArchive(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	entries := make(map[string][]byte)
	for {
		name, data, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		entries[name] = data
	}
	return entries, r.Manifest(), nil
}
