package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/halvorsen/ledger/internal/digest"
)

func newTestStore(t *testing.T) *ObjectStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	d, framed := digest.HashFramed(digest.TypeBlob, []byte("hello world"))

	if err := s.Write(d, framed); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	typ, content, err := s.Read(d)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if typ != digest.TypeBlob {
		t.Errorf("type = %q, want blob", typ)
	}
	if string(content) != "hello world" {
		t.Errorf("content = %q, want %q", content, "hello world")
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	d, framed := digest.HashFramed(digest.TypeBlob, []byte("x"))

	has, err := s.Exists(d)
	if err != nil || has {
		t.Fatalf("Exists on empty store = (%v, %v), want (false, nil)", has, err)
	}

	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}

	has, err = s.Exists(d)
	if err != nil || !has {
		t.Fatalf("Exists after Write = (%v, %v), want (true, nil)", has, err)
	}
}

func TestDedupIsNoOp(t *testing.T) {
	s := newTestStore(t)
	d, framed := digest.HashFramed(digest.TypeBlob, []byte("same content"))

	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}
	path := s.pathFor(d)
	info1, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Writing the same digest again must be a no-op (Invariant P6).
	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info1.ModTime() != info2.ModTime() || info1.Size() != info2.Size() {
		t.Error("rewriting an existing digest modified the on-disk file")
	}
}

func TestReadNotFound(t *testing.T) {
	s := newTestStore(t)
	var d digest.Digest
	d[0] = 1
	if _, _, err := s.Read(d); err == nil {
		t.Fatal("expected error reading missing object")
	}
}

func TestReadCorrupted(t *testing.T) {
	s := newTestStore(t)
	d, framed := digest.HashFramed(digest.TypeBlob, []byte("hello"))
	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}

	path := s.pathFor(d)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Read(d); err == nil {
		t.Fatal("expected Corrupted error after flipping a byte")
	}
}

func TestWalk(t *testing.T) {
	s := newTestStore(t)
	want := map[digest.Digest]bool{}
	for _, c := range []string{"a", "b", "c"} {
		d, framed := digest.HashFramed(digest.TypeBlob, []byte(c))
		if err := s.Write(d, framed); err != nil {
			t.Fatal(err)
		}
		want[d] = true
	}

	got := map[digest.Digest]bool{}
	if err := s.Walk(func(d digest.Digest) error {
		got[d] = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if len(got) != len(want) {
		t.Fatalf("walked %d objects, want %d", len(got), len(want))
	}
	for d := range want {
		if !got[d] {
			t.Errorf("Walk missed object %s", d)
		}
	}
}
