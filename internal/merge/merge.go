// Package merge implements the L4 merge engine (§4.11): the
// already-up-to-date / fast-forward / three-way decision tree, the
// per-path base/ours/theirs resolution table, and conflict-marker
// synthesis for irreconcilable edits.
package merge

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/history"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/treebuilder"
	"github.com/halvorsen/ledger/internal/vcserr"
	"github.com/halvorsen/ledger/internal/worktree"
)

// Status classifies the outcome of a Merge call.
type Status int

const (
	UpToDate Status = iota
	FastForward
	ThreeWay
)

// Result describes what a Merge call did.
type Result struct {
	Status    Status
	NewHead   digest.Digest // valid when Status is FastForward or ThreeWay
	Conflicts []string      // never set: a conflicted merge returns a nil Result and reports its paths via vcserr.PathsOf on the MergeConflict error
}

// Merge runs the decision tree of §4.11 against the current branch tip
// ours and a target commit theirs, named targetName for conflict
// markers and the merge commit message. On a clean three-way merge it
// builds and stores a merge commit with parents [ours, theirs] in that
// order (Invariant C1) using merger/now for its authorship. It never
// updates any ref itself — the caller applies Result.NewHead to the
// branch once Merge returns successfully.
//
// On MergeConflict the returned index and error both describe the
// conflicted state: the index holds the merged map (conflicted paths
// pointing at synthesized marker blobs), the working tree has already
// been materialized with those contents, and no commit was written.
func Merge(s *store.ObjectStore, wt *worktree.Materializer, currentIdx *index.Index, ours, theirs digest.Digest, targetName string, merger objects.Ident, now time.Time) (*Result, *index.Index, error) {
	if ours == theirs {
		return &Result{Status: UpToDate}, currentIdx, nil
	}
	if ok, err := history.IsAncestor(s, theirs, ours); err != nil {
		return nil, nil, err
	} else if ok {
		return &Result{Status: UpToDate}, currentIdx, nil
	}
	if ok, err := history.IsAncestor(s, ours, theirs); err != nil {
		return nil, nil, err
	} else if ok {
		theirsCommit, err := history.ReadCommit(s, theirs)
		if err != nil {
			return nil, nil, err
		}
		newIdx, err := wt.Materialize(theirsCommit.Tree, currentIdx)
		if err != nil {
			return nil, nil, err
		}
		return &Result{Status: FastForward, NewHead: theirs}, newIdx, nil
	}

	return threeWay(s, wt, currentIdx, ours, theirs, targetName, merger, now)
}

func threeWay(s *store.ObjectStore, wt *worktree.Materializer, currentIdx *index.Index, ours, theirs digest.Digest, targetName string, merger objects.Ident, now time.Time) (*Result, *index.Index, error) {
	baseDigest, found, err := history.MergeBase(s, ours, theirs)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, vcserr.New(vcserr.UnrelatedHistory, "merge: %s and the current branch share no common history", targetName)
	}

	oursCommit, err := history.ReadCommit(s, ours)
	if err != nil {
		return nil, nil, err
	}
	theirsCommit, err := history.ReadCommit(s, theirs)
	if err != nil {
		return nil, nil, err
	}
	baseCommit, err := history.ReadCommit(s, baseDigest)
	if err != nil {
		return nil, nil, err
	}

	baseFlat, err := treebuilder.Flatten(s, baseCommit.Tree)
	if err != nil {
		return nil, nil, err
	}
	oursFlat, err := treebuilder.Flatten(s, oursCommit.Tree)
	if err != nil {
		return nil, nil, err
	}
	theirsFlat, err := treebuilder.Flatten(s, theirsCommit.Tree)
	if err != nil {
		return nil, nil, err
	}

	paths := unionPaths(baseFlat, oursFlat, theirsFlat)
	merged := map[string]index.Entry{}
	var conflicts []string

	for _, p := range paths {
		baseE, baseOK := baseFlat[p]
		oursE, oursOK := oursFlat[p]
		theirsE, theirsOK := theirsFlat[p]

		e, present, conflict, err := decide(s, baseOK, baseE, oursOK, oursE, theirsOK, theirsE, targetName)
		if err != nil {
			return nil, nil, err
		}
		if conflict {
			conflicts = append(conflicts, p)
		}
		if present {
			merged[p] = e
		}
	}
	sort.Strings(conflicts)

	mergedTree, err := treebuilder.Build(s, merged)
	if err != nil {
		return nil, nil, err
	}

	newIdx := index.New()
	for p, e := range merged {
		if err := newIdx.Add(p, e.Digest, e.Mode); err != nil {
			return nil, nil, err
		}
	}

	if len(conflicts) > 0 {
		if _, err := wt.Materialize(mergedTree, currentIdx); err != nil {
			return nil, nil, err
		}
		return nil, newIdx, vcserr.WithPaths(vcserr.MergeConflict, "merge: conflicts in "+targetName, conflicts)
	}

	commitDigest, framed, err := objects.BuildCommit(objects.Commit{
		Tree:       mergedTree,
		Parents:    []digest.Digest{ours, theirs},
		Author:     merger,
		AuthorTime: now,
		Committer:  merger,
		CommitTime: now,
		Message:    fmt.Sprintf("Merge %s", targetName),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.Write(commitDigest, framed); err != nil {
		return nil, nil, err
	}

	finalIdx, err := wt.Materialize(mergedTree, currentIdx)
	if err != nil {
		return nil, nil, err
	}
	return &Result{Status: ThreeWay, NewHead: commitDigest}, finalIdx, nil
}

func unionPaths(maps ...map[string]index.Entry) []string {
	seen := map[string]bool{}
	var paths []string
	for _, m := range maps {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// decide applies the per-path resolution table of §4.11. present
// reports whether the path survives into the merged map; conflict
// reports whether it was added to the conflict list (in which case the
// returned entry is a synthesized marker blob, not either side's
// original content).
//
// The spec's table does not enumerate a deleted-on-one-side,
// modified-on-the-other case (base X, one side absent, other side Y≠X);
// that combination is treated as a conflict here, the same way a
// delete/modify collision is handled for every other cell in the table.
func decide(s *store.ObjectStore, baseOK bool, base index.Entry, oursOK bool, ours index.Entry, theirsOK bool, theirs index.Entry, targetName string) (index.Entry, bool, bool, error) {
	if oursOK && theirsOK && ours == theirs {
		return ours, true, false, nil
	}
	if !oursOK && !theirsOK {
		return index.Entry{}, false, false, nil
	}

	if !baseOK {
		switch {
		case oursOK && !theirsOK:
			return ours, true, false, nil
		case !oursOK && theirsOK:
			return theirs, true, false, nil
		default:
			e, err := conflictEntry(s, ours, theirs, targetName)
			return e, true, true, err
		}
	}

	switch {
	case oursOK && ours == base && theirsOK:
		return theirs, true, false, nil
	case theirsOK && theirs == base && oursOK:
		return ours, true, false, nil
	case !oursOK && theirsOK && theirs == base:
		return index.Entry{}, false, false, nil
	case oursOK && ours == base && !theirsOK:
		return index.Entry{}, false, false, nil
	default:
		e, err := conflictEntry(s, ours, theirs, targetName)
		return e, true, true, err
	}
}

func conflictEntry(s *store.ObjectStore, ours, theirs index.Entry, targetName string) (index.Entry, error) {
	oursContent, err := readBlob(s, ours.Digest)
	if err != nil {
		return index.Entry{}, err
	}
	theirsContent, err := readBlob(s, theirs.Digest)
	if err != nil {
		return index.Entry{}, err
	}

	var buf bytes.Buffer
	buf.WriteString("<<<<<<< HEAD\n")
	buf.Write(oursContent)
	buf.WriteString("=======\n")
	buf.Write(theirsContent)
	buf.WriteString(">>>>>>> ")
	buf.WriteString(targetName)
	buf.WriteString("\n")

	d, framed := objects.HashBlob(buf.Bytes())
	if err := s.Write(d, framed); err != nil {
		return index.Entry{}, err
	}
	mode := ours.Mode
	if mode == "" {
		mode = theirs.Mode
	}
	return index.Entry{Digest: d, Mode: mode}, nil
}

func readBlob(s *store.ObjectStore, d digest.Digest) ([]byte, error) {
	if d.IsZero() {
		return nil, nil
	}
	typ, content, err := s.Read(d)
	if err != nil {
		return nil, err
	}
	if typ != digest.TypeBlob {
		return nil, vcserr.New(vcserr.Corrupted, "merge: object %s is a %s, not a blob", d, typ)
	}
	return content, nil
}
