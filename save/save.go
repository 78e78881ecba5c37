// Package save implements the persistence container the core owns
// (spec.md section 6): a flat store of (ComponentPath, version, bytes)
// tuples, one entry per component that opts into persistence via its
// Component.SaveVersion/SnapshotVersion. The bytes themselves are opaque to
// this package; only the container format is its concern.
package save

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
)

// entry is one component's persisted state.
type entry struct {
	version uint32
	data    []byte
}

// Store is a flat container of persisted component state, keyed by
// ComponentPath. A Store is used both for ordinary saves (persistent state
// only) and for snapshots (persistent + volatile state); the distinction is
// purely in what a Component chooses to write, not in the container
// itself (spec.md GLOSSARY, "Save" vs "Snapshot").
type Store struct {
	entries map[address.ComponentPath]entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[address.ComponentPath]entry)}
}

// Put records path's state at the given version, overwriting any previous
// entry for that path.
func (s *Store) Put(path address.ComponentPath, version uint32, data []byte) {
	s.entries[path] = entry{version: version, data: append([]byte(nil), data...)}
}

// Get returns the stored version and bytes for path, if present.
func (s *Store) Get(path address.ComponentPath) (version uint32, data []byte, ok bool) {
	e, found := s.entries[path]
	if !found {
		return 0, nil, false
	}
	return e.version, e.data, true
}

// RequireVersion returns path's stored bytes, failing with InvalidVersion
// if no entry exists or its version does not match want (spec.md section
// 6, "mismatched versions produce InvalidVersion and abort machine build").
func (s *Store) RequireVersion(path address.ComponentPath, want uint32) ([]byte, error) {
	e, found := s.entries[path]
	if !found {
		return nil, errors.Errorf(errors.InvalidVersion, "no persisted state for %s", path)
	}
	if e.version != want {
		return nil, errors.Errorf(errors.InvalidVersion, "persisted state for %s is version %d, component expects %d", path, e.version, want)
	}
	return e.data, nil
}

// Paths returns every path with a persisted entry, in no particular order.
func (s *Store) Paths() []address.ComponentPath {
	out := make([]address.ComponentPath, 0, len(s.entries))
	for p := range s.entries {
		out = append(out, p)
	}
	return out
}

// writeString writes a length-prefixed UTF-8 string.
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteTo serializes the store: a uint32 entry count, then for each entry
// a length-prefixed path, a uint32 version, and a length-prefixed payload.
func (s *Store) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.entries))); err != nil {
		return errors.Errorf(errors.IoFailure, "writing save container: %s", err)
	}
	for path, e := range s.entries {
		if err := writeString(w, string(path)); err != nil {
			return errors.Errorf(errors.IoFailure, "writing save container: %s", err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.version); err != nil {
			return errors.Errorf(errors.IoFailure, "writing save container: %s", err)
		}
		if err := writeBytes(w, e.data); err != nil {
			return errors.Errorf(errors.IoFailure, "writing save container: %s", err)
		}
	}
	return nil
}

// ReadFrom replaces s's contents with a container previously written by
// WriteTo.
func (s *Store) ReadFrom(r io.Reader) error {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return errors.Errorf(errors.CorruptData, "reading save container: %s", err)
	}
	entries := make(map[address.ComponentPath]entry, count)
	for i := uint32(0); i < count; i++ {
		path, err := readString(r)
		if err != nil {
			return errors.Errorf(errors.CorruptData, "reading save container: %s", err)
		}
		var version uint32
		if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
			return errors.Errorf(errors.CorruptData, "reading save container: %s", err)
		}
		data, err := readBytes(r)
		if err != nil {
			return errors.Errorf(errors.CorruptData, "reading save container: %s", err)
		}
		entries[address.ComponentPath(path)] = entry{version: version, data: data}
	}
	s.entries = entries
	return nil
}

// Bytes serializes the store to a standalone byte slice.
func (s *Store) Bytes() []byte {
	var buf bytes.Buffer
	_ = s.WriteTo(&buf)
	return buf.Bytes()
}
