package index

import (
	"path/filepath"
	"testing"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/objects"
)

func someDigest(b byte) digest.Digest {
	var d digest.Digest
	d[0] = b
	return d
}

func TestReadMissingIsEmpty(t *testing.T) {
	idx, err := Read(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("Read of missing file failed: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

func TestAddRemoveWriteReadRoundTrip(t *testing.T) {
	idx := New()
	if err := idx.Add("a.txt", someDigest(1), objects.ModeFile); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add("dir/b.txt", someDigest(2), objects.ModeExec); err != nil {
		t.Fatal(err)
	}
	idx.Remove("a.txt")
	idx.Add("a.txt", someDigest(3), objects.ModeFile)

	path := filepath.Join(t.TempDir(), "index")
	if err := idx.Write(path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", reloaded.Len())
	}
	e, ok := reloaded.Get("a.txt")
	if !ok || e.Digest != someDigest(3) {
		t.Errorf("a.txt entry = %+v, ok=%v", e, ok)
	}
}

func TestValidatePathRejectsTraversal(t *testing.T) {
	idx := New()
	cases := []string{"/abs", "a/../b", "./a", "a//b"}
	for _, p := range cases {
		if err := idx.Add(p, someDigest(1), objects.ModeFile); err == nil {
			t.Errorf("expected Add(%q) to fail validation", p)
		}
	}
}

func TestDedupSameDigest(t *testing.T) {
	idx := New()
	d := someDigest(9)
	idx.Add("a.txt", d, objects.ModeFile)
	idx.Add("b.txt", d, objects.ModeFile)
	if idx.Len() != 2 {
		t.Fatalf("expected 2 paths, got %d", idx.Len())
	}
	ea, _ := idx.Get("a.txt")
	eb, _ := idx.Get("b.txt")
	if ea.Digest != eb.Digest {
		t.Error("both paths should share the same blob digest")
	}
}
