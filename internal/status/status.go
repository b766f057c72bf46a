// Package status implements the L5 status engine (§4.12): a three-way
// comparison between the committed tree, the index, and the working
// directory, split into staged, unstaged, and untracked categories.
// Glob-pattern ignore matching and directory walking are an external
// collaborator's concern (§4 Non-goals); this package consumes an
// already-filtered path list and never touches the filesystem itself.
package status

import (
	"sort"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/index"
)

// ChangeKind classifies one path's delta in a category.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one path's classified delta.
type Change struct {
	Path string
	Kind ChangeKind
}

// Report is the full three-way comparison result (§4.12).
type Report struct {
	Staged    []Change
	Unstaged  []Change
	Untracked []string
}

// WorkingEntry describes one path present in the working directory, as
// reported by a caller-supplied listing (already filtered of
// engine-internal and ignored paths).
type WorkingEntry struct {
	Path   string
	Digest digest.Digest
}

// Compute builds a Report from the committed flat map (HEAD's tree,
// empty for a repository with no commits yet), the current index, and
// a pre-filtered listing of the working directory (§4.12).
func Compute(committed map[string]index.Entry, idx *index.Index, working []WorkingEntry) Report {
	idxMap := idx.Map()

	var staged []Change
	for p, e := range idxMap {
		c, ok := committed[p]
		switch {
		case !ok:
			staged = append(staged, Change{Path: p, Kind: Added})
		case c.Digest != e.Digest:
			staged = append(staged, Change{Path: p, Kind: Modified})
		}
	}
	for p := range committed {
		if _, ok := idxMap[p]; !ok {
			staged = append(staged, Change{Path: p, Kind: Deleted})
		}
	}
	sortChanges(staged)

	workingDigests := make(map[string]digest.Digest, len(working))
	for _, w := range working {
		workingDigests[w.Path] = w.Digest
	}

	var unstaged []Change
	for p, e := range idxMap {
		d, present := workingDigests[p]
		switch {
		case !present:
			unstaged = append(unstaged, Change{Path: p, Kind: Deleted})
		case d != e.Digest:
			unstaged = append(unstaged, Change{Path: p, Kind: Modified})
		}
	}
	sortChanges(unstaged)

	var untracked []string
	for _, w := range working {
		if _, ok := idxMap[w.Path]; !ok {
			untracked = append(untracked, w.Path)
		}
	}
	sort.Strings(untracked)

	return Report{Staged: staged, Unstaged: unstaged, Untracked: untracked}
}

func sortChanges(c []Change) {
	sort.Slice(c, func(i, j int) bool { return c[i].Path < c[j].Path })
}

// Clean reports whether the report has nothing to show: no staged or
// unstaged changes and no untracked paths.
func (r Report) Clean() bool {
	return len(r.Staged) == 0 && len(r.Unstaged) == 0 && len(r.Untracked) == 0
}
