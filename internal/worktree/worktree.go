// Package worktree implements the L3 working-tree sync (§4.9):
// flattening a tree object onto the filesystem, and the dirty-working-
// tree guard that protects destructive operations (checkout, merge,
// fast-forward) from silently discarding uncommitted edits.
package worktree

import (
	"os"
	"path/filepath"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/treebuilder"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// Materializer applies tree state onto a working directory.
type Materializer struct {
	Store *store.ObjectStore
	Root  string
}

// New builds a Materializer rooted at workDir, reading/writing objects
// through s.
func New(s *store.ObjectStore, workDir string) *Materializer {
	return &Materializer{Store: s, Root: workDir}
}

// CheckDirty re-hashes every indexed path whose file still exists and
// fails DirtyWorkingTree, listing the offending paths, if any digest
// doesn't match what the index recorded (§4.9 "Dirty-guard"). Indexed
// paths whose file has already been deleted are not considered dirty by
// this check — that's an unstaged deletion, not an unstaged edit that a
// destructive operation would clobber differently than it already will.
func (m *Materializer) CheckDirty(idx *index.Index) error {
	var offending []string
	for _, p := range idx.Paths() {
		e, _ := idx.Get(p)
		full := filepath.Join(m.Root, filepath.FromSlash(p))
		data, err := os.ReadFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return vcserr.Wrap(vcserr.IOError, err, "worktree: read %s", p)
		}
		d, _ := objects.HashBlob(data)
		if d != e.Digest {
			offending = append(offending, p)
		}
	}
	if len(offending) > 0 {
		return vcserr.WithPaths(vcserr.DirtyWorkingTree, "worktree: uncommitted changes would be lost", offending)
	}
	return nil
}

// Materialize flattens treeDigest and applies it to the working
// directory against the current index (§4.9, steps 1-3): delete paths
// dropped from the tree (cleaning empty parent directories upward),
// write every path the tree now contains, and return a new index whose
// entries mirror the flattened tree. It runs the dirty-guard first and
// performs no mutation if it fails.
func (m *Materializer) Materialize(treeDigest digest.Digest, currentIdx *index.Index) (*index.Index, error) {
	if err := m.CheckDirty(currentIdx); err != nil {
		return nil, err
	}

	flat, err := treebuilder.Flatten(m.Store, treeDigest)
	if err != nil {
		return nil, err
	}

	for _, p := range currentIdx.Paths() {
		if _, ok := flat[p]; ok {
			continue
		}
		full := filepath.Join(m.Root, filepath.FromSlash(p))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return nil, vcserr.Wrap(vcserr.IOError, err, "worktree: remove %s", p)
		}
		cleanEmptyParents(m.Root, filepath.Dir(full))
	}

	for p, e := range flat {
		full := filepath.Join(m.Root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return nil, vcserr.Wrap(vcserr.IOError, err, "worktree: create parent dirs for %s", p)
		}
		_, content, err := m.Store.Read(e.Digest)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(full, content, fsMode(e.Mode)); err != nil {
			return nil, vcserr.Wrap(vcserr.IOError, err, "worktree: write %s", p)
		}
		// WriteFile's perm only applies when it creates the file.
		if err := os.Chmod(full, fsMode(e.Mode)); err != nil {
			return nil, vcserr.Wrap(vcserr.IOError, err, "worktree: chmod %s", p)
		}
	}

	newIdx := index.New()
	for p, e := range flat {
		if err := newIdx.Add(p, e.Digest, e.Mode); err != nil {
			return nil, err
		}
	}
	return newIdx, nil
}

// fsMode maps a tree entry mode onto a filesystem permission bit set,
// restoring the executable bit on materialize (§9 "Executable bit").
func fsMode(mode objects.FileMode) os.FileMode {
	if mode == objects.ModeExec {
		return 0755
	}
	return 0644
}

// cleanEmptyParents removes dir and any now-empty ancestors, stopping at
// (and never removing) root (§4.9 step 1).
func cleanEmptyParents(root, dir string) {
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
