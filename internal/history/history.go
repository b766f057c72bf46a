// Package history implements the L4 ancestry algorithms (§4.10):
// is_ancestor and merge_base. Both use an explicit worklist rather than
// recursion, per §5's "implementations must either explicitly bound
// depth or convert to an explicit worklist to avoid stack overflow on
// pathological repositories", and both guard against cycles with a
// visited set — a cycle can only be the result of corruption, since the
// object graph is acyclic by construction (§9 "Cyclic references").
package history

import (
	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// MaxDepth is the recommended depth cap from §5: walks longer than this
// surface TooDeep rather than spinning forever on a pathological or
// corrupted repository.
const MaxDepth = 1000

// ReadCommit loads and parses the commit object at d.
func ReadCommit(s *store.ObjectStore, d digest.Digest) (*objects.Commit, error) {
	typ, content, err := s.Read(d)
	if err != nil {
		return nil, err
	}
	if typ != digest.TypeCommit {
		return nil, vcserr.New(vcserr.Corrupted, "history: object %s is a %s, not a commit", d, typ)
	}
	return objects.ParseCommit(content)
}

// Ancestors returns the full set of commits reachable from start by
// following every parent link (the "full DAG, all parents" walk
// merge_base needs, §4.11), including start itself. It is also used as
// the all-ancestors interpretation of is_ancestor (§9 "First-parent vs
// full-parent ancestor walk": "Implementations may follow all parents").
func Ancestors(s *store.ObjectStore, start digest.Digest) (map[digest.Digest]bool, error) {
	visited := map[digest.Digest]bool{}
	depth := map[digest.Digest]int{start: 0}
	worklist := []digest.Digest{start}

	for len(worklist) > 0 {
		d := worklist[0]
		worklist = worklist[1:]
		if visited[d] {
			continue
		}
		if depth[d] > MaxDepth {
			return nil, vcserr.New(vcserr.TooDeep, "history: ancestor walk exceeded depth %d", MaxDepth)
		}
		visited[d] = true

		c, err := ReadCommit(s, d)
		if err != nil {
			return nil, err
		}
		for _, p := range c.Parents {
			if !visited[p] {
				depth[p] = depth[d] + 1
				worklist = append(worklist, p)
			}
		}
	}
	return visited, nil
}

// IsAncestor reports whether a is an ancestor of (or equal to) b, by
// walking b's full ancestor set and checking membership (§4.10
// "is_ancestor").
func IsAncestor(s *store.ObjectStore, a, b digest.Digest) (bool, error) {
	if a == b {
		return true, nil
	}
	ancestors, err := Ancestors(s, b)
	if err != nil {
		return false, err
	}
	return ancestors[a], nil
}

// MergeBase returns the most recent common ancestor of a and b: collect
// all ancestors of a, then walk b's ancestors breadth-first and return
// the first one present in a's set (§4.10 "merge_base"). Returns
// (zero, false, nil) for unrelated histories.
func MergeBase(s *store.ObjectStore, a, b digest.Digest) (digest.Digest, bool, error) {
	aAncestors, err := Ancestors(s, a)
	if err != nil {
		return digest.Digest{}, false, err
	}

	visited := map[digest.Digest]bool{}
	depth := map[digest.Digest]int{b: 0}
	worklist := []digest.Digest{b}

	for len(worklist) > 0 {
		d := worklist[0]
		worklist = worklist[1:]
		if visited[d] {
			continue
		}
		if depth[d] > MaxDepth {
			return digest.Digest{}, false, vcserr.New(vcserr.TooDeep, "history: merge-base walk exceeded depth %d", MaxDepth)
		}
		visited[d] = true

		if aAncestors[d] {
			return d, true, nil
		}

		c, err := ReadCommit(s, d)
		if err != nil {
			return digest.Digest{}, false, err
		}
		for _, p := range c.Parents {
			if !visited[p] {
				depth[p] = depth[d] + 1
				worklist = append(worklist, p)
			}
		}
	}
	return digest.Digest{}, false, nil
}
