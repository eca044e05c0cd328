// Package store persists finalized indexes to a cache directory: one
// zstd-compressed entry per source file, in JSON or fixed-field binary
// form, written atomically and versioned.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"cxref/internal/paths"
	"cxref/internal/xref"
)

// Format selects the persisted encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// ErrVersionMismatch is returned when a cached entry was written by an
// incompatible format version.
var ErrVersionMismatch = errors.New("cache entry version mismatch")

func (f Format) ext() string {
	if f == FormatBinary {
		return "blob.zst"
	}
	return "json.zst"
}

// Store is a cache directory of persisted index entries.
type Store struct {
	dir    string
	format Format
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// New opens (creating if needed) the cache at dir.
func New(dir string, format Format) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, format: format, enc: enc, dec: dec}, nil
}

// jsonEnvelope wraps a JSON entry with its format version.
type jsonEnvelope struct {
	MajorVersion int             `json:"major_version"`
	MinorVersion int             `json:"minor_version"`
	Index        *xref.IndexFile `json:"index"`
}

// Save writes the entry for f.Path, replacing any previous one atomically.
func (s *Store) Save(f *xref.IndexFile) error {
	var raw []byte
	var err error
	if s.format == FormatBinary {
		raw = encodeBinary(f)
	} else {
		raw, err = json.Marshal(jsonEnvelope{
			MajorVersion: xref.MajorVersion,
			MinorVersion: xref.MinorVersion,
			Index:        f,
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Path, err)
		}
	}
	blob := s.enc.EncodeAll(raw, nil)

	tmp := filepath.Join(s.dir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, blob, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	final := paths.CachePath(s.dir, f.Path, s.format.ext())
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Load reads the entry for sourcePath. Version mismatches return
// ErrVersionMismatch; missing entries return an os.IsNotExist error.
func (s *Store) Load(sourcePath string) (*xref.IndexFile, error) {
	blob, err := os.ReadFile(paths.CachePath(s.dir, sourcePath, s.format.ext()))
	if err != nil {
		return nil, err
	}
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", sourcePath, err)
	}
	if s.format == FormatBinary {
		return decodeBinary(raw)
	}
	var env jsonEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", sourcePath, err)
	}
	if env.MajorVersion != xref.MajorVersion || env.MinorVersion != xref.MinorVersion {
		return nil, fmt.Errorf("%w: got %d.%d, want %d.%d", ErrVersionMismatch,
			env.MajorVersion, env.MinorVersion, xref.MajorVersion, xref.MinorVersion)
	}
	if env.Index == nil {
		return nil, fmt.Errorf("decode %s: empty entry", sourcePath)
	}
	return env.Index, nil
}

// Close releases the codec resources.
func (s *Store) Close() {
	s.enc.Close()
	s.dec.Close()
}
