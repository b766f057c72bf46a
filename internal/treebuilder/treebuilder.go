// Package treebuilder implements §4.8: translating the index's flat
// {path -> entry} map into the nested tree objects a commit actually
// references, writing every subtree bottom-up as it goes.
package treebuilder

import (
	"sort"
	"strings"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// MaxDepth bounds directory nesting the same way internal/history
// bounds commit-ancestor depth (§5): a tree nested (or, for Flatten, a
// stored tree graph descended) deeper than this surfaces TooDeep rather
// than recursing indefinitely on a pathological or corrupted repository.
const MaxDepth = 1000

// node is the in-memory trie used to regroup a flat path map into
// per-directory entry lists before each level is sorted and framed by
// objects.BuildTree.
type node struct {
	files map[string]index.Entry // leaf name -> entry
	dirs  map[string]*node       // immediate subdirectory name -> subtree
}

func newNode() *node {
	return &node{files: map[string]index.Entry{}, dirs: map[string]*node{}}
}

// Build partitions the index map by path segment, recursively builds
// and stores every subtree bottom-up, and returns the root tree's digest
// (§4.8 "Build"). The same map always yields the same root digest
// regardless of Go's randomized map iteration order, because
// objects.BuildTree re-sorts each level's entries before hashing
// (Invariant B1).
func Build(s *store.ObjectStore, flat map[string]index.Entry) (digest.Digest, error) {
	root := newNode()
	for p, e := range flat {
		segments := strings.Split(p, "/")
		if len(segments) > MaxDepth {
			return digest.Digest{}, vcserr.New(vcserr.TooDeep, "treebuilder: path %q exceeds depth %d", p, MaxDepth)
		}
		insert(root, segments, e)
	}
	return buildNode(s, root, 0)
}

// insert walks segments iteratively (no recursion, so path depth alone
// can never exhaust the stack) creating intermediate directory nodes as
// needed, and records e at the final segment.
func insert(root *node, segments []string, e index.Entry) {
	n := root
	for i, seg := range segments {
		if i == len(segments)-1 {
			n.files[seg] = e
			return
		}
		sub, ok := n.dirs[seg]
		if !ok {
			sub = newNode()
			n.dirs[seg] = sub
		}
		n = sub
	}
}

func buildNode(s *store.ObjectStore, n *node, depth int) (digest.Digest, error) {
	if depth > MaxDepth {
		return digest.Digest{}, vcserr.New(vcserr.TooDeep, "treebuilder: tree nesting exceeded depth %d", MaxDepth)
	}

	entries := make([]objects.Entry, 0, len(n.files)+len(n.dirs))

	for name, e := range n.files {
		entries = append(entries, objects.Entry{Mode: e.Mode, Name: name, Hash: e.Digest})
	}

	// Sort subdirectory names before recursing so Build's traversal is
	// itself deterministic, even though objects.BuildTree would also
	// sort the resulting entries — this keeps error messages and any
	// future instrumentation stable across runs.
	dirNames := make([]string, 0, len(n.dirs))
	for name := range n.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)

	for _, name := range dirNames {
		subDigest, err := buildNode(s, n.dirs[name], depth+1)
		if err != nil {
			return digest.Digest{}, err
		}
		entries = append(entries, objects.Entry{Mode: objects.ModeDir, Name: name, Hash: subDigest})
	}

	treeDigest, framed, err := objects.BuildTree(entries)
	if err != nil {
		return digest.Digest{}, err
	}
	if err := s.Write(treeDigest, framed); err != nil {
		return digest.Digest{}, err
	}
	return treeDigest, nil
}

// Flatten is Build's inverse (§4.9 "materialize", Invariant P10): given a
// root tree digest, it recursively descends every "040000" entry and
// returns the full path -> entry map the tree encodes.
func Flatten(s *store.ObjectStore, root digest.Digest) (map[string]index.Entry, error) {
	out := make(map[string]index.Entry)
	if err := flattenInto(s, root, "", out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// flattenInto descends a stored tree's directory entries, unlike
// buildNode's in-memory trie this walks data read back off disk, so a
// corrupted or (by construction, impossible but not to be trusted)
// cyclic tree graph is bounded the same way as internal/history's
// worklists: exceeding MaxDepth surfaces TooDeep instead of recursing
// forever.
func flattenInto(s *store.ObjectStore, treeDigest digest.Digest, prefix string, out map[string]index.Entry, depth int) error {
	if depth > MaxDepth {
		return vcserr.New(vcserr.TooDeep, "treebuilder: tree walk exceeded depth %d", MaxDepth)
	}
	typ, content, err := s.Read(treeDigest)
	if err != nil {
		return err
	}
	if typ != digest.TypeTree {
		return vcserr.New(vcserr.Corrupted, "treebuilder: object %s is a %s, not a tree", treeDigest, typ)
	}
	entries, err := objects.ParseTree(content)
	if err != nil {
		return err
	}
	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.Mode == objects.ModeDir {
			if err := flattenInto(s, e.Hash, full, out, depth+1); err != nil {
				return err
			}
			continue
		}
		out[full] = index.Entry{Digest: e.Hash, Mode: e.Mode}
	}
	return nil
}
