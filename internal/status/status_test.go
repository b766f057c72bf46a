package status

import (
	"testing"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/objects"
)

func d(seed byte) digest.Digest {
	var out digest.Digest
	out[0] = seed
	return out
}

func TestComputeEmptyIsClean(t *testing.T) {
	r := Compute(map[string]index.Entry{}, index.New(), nil)
	if !r.Clean() {
		t.Errorf("expected a clean report, got %+v", r)
	}
}

func TestComputeStagedCategories(t *testing.T) {
	committed := map[string]index.Entry{
		"unchanged.txt": {Digest: d(1), Mode: objects.ModeFile},
		"removed.txt":   {Digest: d(2), Mode: objects.ModeFile},
		"changed.txt":   {Digest: d(3), Mode: objects.ModeFile},
	}
	idx := index.New()
	mustAdd(t, idx, "unchanged.txt", d(1))
	mustAdd(t, idx, "changed.txt", d(33))
	mustAdd(t, idx, "new.txt", d(4))

	r := Compute(committed, idx, nil)

	want := map[string]ChangeKind{
		"new.txt":     Added,
		"changed.txt": Modified,
		"removed.txt": Deleted,
	}
	if len(r.Staged) != len(want) {
		t.Fatalf("staged = %+v, want %d entries", r.Staged, len(want))
	}
	for _, c := range r.Staged {
		if want[c.Path] != c.Kind {
			t.Errorf("staged %s = %v, want %v", c.Path, c.Kind, want[c.Path])
		}
	}
}

func TestComputeUnstagedAndUntracked(t *testing.T) {
	idx := index.New()
	mustAdd(t, idx, "tracked-clean.txt", d(1))
	mustAdd(t, idx, "tracked-edited.txt", d(2))
	mustAdd(t, idx, "tracked-removed.txt", d(3))

	working := []WorkingEntry{
		{Path: "tracked-clean.txt", Digest: d(1)},
		{Path: "tracked-edited.txt", Digest: d(22)},
		{Path: "untracked.txt", Digest: d(9)},
	}

	r := Compute(map[string]index.Entry{}, idx, working)

	wantUnstaged := map[string]ChangeKind{
		"tracked-edited.txt":  Modified,
		"tracked-removed.txt": Deleted,
	}
	if len(r.Unstaged) != len(wantUnstaged) {
		t.Fatalf("unstaged = %+v, want %d entries", r.Unstaged, len(wantUnstaged))
	}
	for _, c := range r.Unstaged {
		if wantUnstaged[c.Path] != c.Kind {
			t.Errorf("unstaged %s = %v, want %v", c.Path, c.Kind, wantUnstaged[c.Path])
		}
	}

	if len(r.Untracked) != 1 || r.Untracked[0] != "untracked.txt" {
		t.Errorf("untracked = %v, want [untracked.txt]", r.Untracked)
	}
}

func mustAdd(t *testing.T, idx *index.Index, p string, dg digest.Digest) {
	t.Helper()
	if err := idx.Add(p, dg, objects.ModeFile); err != nil {
		t.Fatal(err)
	}
}
