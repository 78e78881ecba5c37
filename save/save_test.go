package save_test

import (
	"bytes"
	"testing"

	"github.com/kay-lambdadelta/multiemu-sub000/errors"
	"github.com/kay-lambdadelta/multiemu-sub000/save"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := save.NewStore()
	s.Put("cpu", 3, []byte{0x01, 0x02, 0x03})

	version, data, ok := s.Get("cpu")
	if !ok {
		t.Fatalf("expected entry to be present")
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if !bytes.Equal(data, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("expected round-tripped bytes, got %v", data)
	}
}

func TestRequireVersionMismatch(t *testing.T) {
	s := save.NewStore()
	s.Put("cpu", 2, []byte{0xff})

	if _, err := s.RequireVersion("cpu", 3); err == nil {
		t.Fatalf("expected a version mismatch error")
	} else if !errors.Is(err, errors.InvalidVersion) {
		t.Fatalf("expected InvalidVersion, got %s", err)
	}

	data, err := s.RequireVersion("cpu", 2)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !bytes.Equal(data, []byte{0xff}) {
		t.Fatalf("expected matching-version bytes, got %v", data)
	}
}

func TestRequireVersionMissing(t *testing.T) {
	s := save.NewStore()
	if _, err := s.RequireVersion("ppu", 1); err == nil || !errors.Is(err, errors.InvalidVersion) {
		t.Fatalf("expected InvalidVersion for a missing path, got %v", err)
	}
}

func TestWriteToReadFromRoundTrip(t *testing.T) {
	s := save.NewStore()
	s.Put("cpu", 1, []byte{0x10, 0x20})
	s.Put("ppu/sprite-ram", 4, []byte{})
	s.Put("apu", 2, bytes.Repeat([]byte{0xaa}, 128))

	var buf bytes.Buffer
	if err := s.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	loaded := save.NewStore()
	if err := loaded.ReadFrom(&buf); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	for _, path := range s.Paths() {
		wantVersion, wantData, _ := s.Get(path)
		gotVersion, gotData, ok := loaded.Get(path)
		if !ok {
			t.Fatalf("expected %s to round-trip", path)
		}
		if gotVersion != wantVersion {
			t.Fatalf("version mismatch for %s: want %d got %d", path, wantVersion, gotVersion)
		}
		if !bytes.Equal(gotData, wantData) {
			t.Fatalf("data mismatch for %s: want %v got %v", path, wantData, gotData)
		}
	}
}

func TestBytesHelper(t *testing.T) {
	s := save.NewStore()
	s.Put("cpu", 1, []byte{0x42})

	loaded := save.NewStore()
	if err := loaded.ReadFrom(bytes.NewReader(s.Bytes())); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	version, data, ok := loaded.Get("cpu")
	if !ok || version != 1 || !bytes.Equal(data, []byte{0x42}) {
		t.Fatalf("expected round-tripped entry, got version=%d data=%v ok=%v", version, data, ok)
	}
}

func TestReadFromCorruptData(t *testing.T) {
	s := save.NewStore()
	err := s.ReadFrom(bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x00}))
	if err == nil || !errors.Is(err, errors.CorruptData) {
		t.Fatalf("expected CorruptData for a truncated container, got %v", err)
	}
}
