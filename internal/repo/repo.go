// Package repo is the wiring glue that turns internal/store,
// internal/refs, internal/index, internal/treebuilder,
// internal/worktree, internal/history, internal/merge, and
// internal/status into the repository-level operations a collaborator
// (the cli package, or any other embedder) actually calls: init,
// stage, commit, branch management, checkout, merge, status, and fsck.
// Repository root discovery is a boundary helper, not engine state
// (§9 "Global state") — Discover just walks the filesystem and hands
// back an opened Repo.
package repo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/history"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/integrity"
	"github.com/halvorsen/ledger/internal/merge"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/refs"
	"github.com/halvorsen/ledger/internal/status"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/treebuilder"
	"github.com/halvorsen/ledger/internal/vcserr"
	"github.com/halvorsen/ledger/internal/worktree"
)

// MetaDirName is the per-repository metadata directory, generalized
// from the teacher's ".ivaldi" convention (§C.1).
const MetaDirName = ".ledger"

// Repo is an opened repository: its working directory, its metadata
// directory, and the engine collaborators wired to operate on it.
type Repo struct {
	WorkDir  string
	MetaDir  string
	Store    *store.ObjectStore
	Refs     *refs.Store
	Worktree *worktree.Materializer
}

// Init creates a new repository rooted at workDir with initialBranch
// as the first (uncommitted) branch (Invariant R1).
func Init(workDir, initialBranch string) (*Repo, error) {
	meta := filepath.Join(workDir, MetaDirName)
	if _, err := os.Stat(meta); err == nil {
		return nil, vcserr.New(vcserr.InvalidRef, "repo: %s is already a repository", workDir)
	}
	if err := os.MkdirAll(meta, 0755); err != nil {
		return nil, vcserr.Wrap(vcserr.IOError, err, "repo: create %s", meta)
	}

	s, err := store.Open(filepath.Join(meta, "objects"))
	if err != nil {
		return nil, err
	}
	refStore := refs.Open(meta)
	if err := refStore.Init(initialBranch); err != nil {
		s.Close()
		return nil, err
	}
	return &Repo{
		WorkDir:  workDir,
		MetaDir:  meta,
		Store:    s,
		Refs:     refStore,
		Worktree: worktree.New(s, workDir),
	}, nil
}

// Open wires engine collaborators to an existing repository rooted at
// workDir (i.e. workDir/MetaDirName already exists).
func Open(workDir string) (*Repo, error) {
	meta := filepath.Join(workDir, MetaDirName)
	if _, err := os.Stat(filepath.Join(meta, "HEAD")); err != nil {
		return nil, vcserr.New(vcserr.NotARepository, "repo: %s is not a repository", workDir)
	}
	s, err := store.Open(filepath.Join(meta, "objects"))
	if err != nil {
		return nil, err
	}
	return &Repo{
		WorkDir:  workDir,
		MetaDir:  meta,
		Store:    s,
		Refs:     refs.Open(meta),
		Worktree: worktree.New(s, workDir),
	}, nil
}

// Discover walks upward from startDir looking for a directory whose
// MetaDirName subdirectory contains both "objects" and "HEAD" (§C.1),
// and opens the repository rooted there.
func Discover(startDir string) (*Repo, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, vcserr.Wrap(vcserr.IOError, err, "repo: resolve %s", startDir)
	}
	for {
		objectsDir := filepath.Join(dir, MetaDirName, "objects")
		headPath := filepath.Join(dir, MetaDirName, "HEAD")
		if _, err := os.Stat(objectsDir); err == nil {
			if _, err := os.Stat(headPath); err == nil {
				return Open(dir)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, vcserr.New(vcserr.NotARepository, "repo: no repository found above %s", startDir)
		}
		dir = parent
	}
}

// Close releases any resources the repository holds open.
func (r *Repo) Close() error {
	return r.Store.Close()
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.MetaDir, "index")
}

// ReadIndex loads the current staging area.
func (r *Repo) ReadIndex() (*index.Index, error) {
	return index.Read(r.indexPath())
}

func (r *Repo) writeIndex(idx *index.Index) error {
	return idx.Write(r.indexPath())
}

// Stage hashes each given working-directory path (relative to
// WorkDir), stores it as a blob, and records it in the index (§4.6
// "add_entry" driven from the filesystem rather than from an
// already-known digest).
func (r *Repo) Stage(paths []string) error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	for _, p := range paths {
		full := filepath.Join(r.WorkDir, filepath.FromSlash(p))
		info, err := os.Stat(full)
		if err != nil {
			return vcserr.Wrap(vcserr.IOError, err, "repo: stat %s", p)
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return vcserr.Wrap(vcserr.IOError, err, "repo: read %s", p)
		}
		d, framed := objects.HashBlob(content)
		if err := r.Store.Write(d, framed); err != nil {
			return err
		}
		if err := idx.Add(filepath.ToSlash(p), d, modeOf(info)); err != nil {
			return err
		}
	}
	return r.writeIndex(idx)
}

func modeOf(info os.FileInfo) objects.FileMode {
	if info.Mode()&0111 != 0 {
		return objects.ModeExec
	}
	return objects.ModeFile
}

// Commit builds a tree from the current index, writes a commit object
// whose sole parent is the current HEAD (absent for the first commit
// on a branch), and advances the current branch ref to it.
func (r *Repo) Commit(message string, author objects.Ident, now time.Time) (digest.Digest, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return digest.Digest{}, err
	}
	tree, err := treebuilder.Build(r.Store, idx.Map())
	if err != nil {
		return digest.Digest{}, err
	}

	head, err := r.Refs.GetHead()
	if err != nil {
		return digest.Digest{}, err
	}
	var parents []digest.Digest
	if head.Resolved {
		parents = []digest.Digest{head.Digest}
	}

	d, framed, err := objects.BuildCommit(objects.Commit{
		Tree:       tree,
		Parents:    parents,
		Author:     author,
		AuthorTime: now,
		Committer:  author,
		CommitTime: now,
		Message:    message,
	})
	if err != nil {
		return digest.Digest{}, err
	}
	if err := r.Store.Write(d, framed); err != nil {
		return digest.Digest{}, err
	}

	if err := r.advanceHead(d); err != nil {
		return digest.Digest{}, err
	}
	return d, nil
}

// advanceHead moves the current branch ref (or detached HEAD) to d.
func (r *Repo) advanceHead(d digest.Digest) error {
	head, err := r.Refs.GetHead()
	if err != nil {
		return err
	}
	if head.Kind == refs.Branch {
		return r.Refs.UpdateRef(filepath.Join("refs", "heads", head.RefName), d)
	}
	return r.Refs.SetHeadDetached(d)
}

// CreateBranch creates a new branch at the current HEAD commit.
func (r *Repo) CreateBranch(name string) error {
	head, err := r.Refs.GetHead()
	if err != nil {
		return err
	}
	if !head.Resolved {
		return vcserr.New(vcserr.InvalidRef, "repo: cannot branch before the first commit")
	}
	return r.Refs.CreateBranch(name, head.Digest)
}

// ListBranches lists every branch name.
func (r *Repo) ListBranches() ([]string, error) {
	return r.Refs.ListBranches()
}

// DeleteBranch removes a branch (refused if currently checked out).
func (r *Repo) DeleteBranch(name string) error {
	return r.Refs.DeleteBranch(name)
}

// Checkout switches the working directory and HEAD to branch, running
// the dirty-guard via Materialize first (§4.9).
func (r *Repo) Checkout(branch string) error {
	d, resolved, err := r.Refs.ResolveRef(filepath.Join("refs", "heads", branch))
	if err != nil {
		return err
	}
	if !resolved {
		return vcserr.New(vcserr.InvalidRef, "repo: branch %q has no commits yet", branch)
	}
	c, err := history.ReadCommit(r.Store, d)
	if err != nil {
		return err
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	newIdx, err := r.Worktree.Materialize(c.Tree, idx)
	if err != nil {
		return err
	}
	if err := r.writeIndex(newIdx); err != nil {
		return err
	}
	return r.Refs.SetHeadSymbolic(branch)
}

// CheckoutDetached materializes commit d directly without updating any
// branch ref (§3 "Detached HEAD").
func (r *Repo) CheckoutDetached(d digest.Digest) error {
	c, err := history.ReadCommit(r.Store, d)
	if err != nil {
		return err
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	newIdx, err := r.Worktree.Materialize(c.Tree, idx)
	if err != nil {
		return err
	}
	if err := r.writeIndex(newIdx); err != nil {
		return err
	}
	return r.Refs.SetHeadDetached(d)
}

// Merge runs the L4 decision tree (§4.11) merging targetBranch into
// the current branch. On a clean merge or fast-forward it advances the
// current branch ref to Result.NewHead and persists the new index; on
// MergeConflict it still persists the conflicted index and leaves the
// branch ref untouched, per §7's "only MergeConflict leaves the
// repository in a non-terminal state".
func (r *Repo) Merge(targetBranch string, merger objects.Ident, now time.Time) (*merge.Result, error) {
	head, err := r.Refs.GetHead()
	if err != nil {
		return nil, err
	}
	if !head.Resolved {
		return nil, vcserr.New(vcserr.InvalidRef, "repo: cannot merge before the first commit")
	}
	theirs, resolved, err := r.Refs.ResolveRef(filepath.Join("refs", "heads", targetBranch))
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, vcserr.New(vcserr.InvalidRef, "repo: branch %q has no commits yet", targetBranch)
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}

	result, newIdx, mergeErr := merge.Merge(r.Store, r.Worktree, idx, head.Digest, theirs, targetBranch, merger, now)
	if mergeErr != nil && vcserr.KindOf(mergeErr) != vcserr.MergeConflict {
		return nil, mergeErr
	}
	if newIdx != nil {
		if err := r.writeIndex(newIdx); err != nil {
			return nil, err
		}
	}
	if mergeErr != nil {
		return nil, mergeErr
	}

	if result.Status != merge.UpToDate {
		if err := r.advanceHead(result.NewHead); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Status computes the three-way status report (§4.12). working is a
// pre-filtered working-directory listing (glob-ignore matching and
// directory walking are a collaborator's job, not the engine's).
func (r *Repo) Status(working []status.WorkingEntry) (status.Report, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return status.Report{}, err
	}
	committed := map[string]index.Entry{}
	head, err := r.Refs.GetHead()
	if err != nil {
		return status.Report{}, err
	}
	if head.Resolved {
		c, err := history.ReadCommit(r.Store, head.Digest)
		if err != nil {
			return status.Report{}, err
		}
		committed, err = treebuilder.Flatten(r.Store, c.Tree)
		if err != nil {
			return status.Report{}, err
		}
	}
	return status.Compute(committed, idx, working), nil
}

// Fsck runs a whole-repository integrity scan (§C.2).
func (r *Repo) Fsck() (integrity.Report, error) {
	return integrity.Scan(r.Store)
}

// Log returns every commit reachable from HEAD through any parent, in
// topoOrder's order: newest to oldest for linear history (§C.3).
func (r *Repo) Log() ([]*objects.Commit, error) {
	head, err := r.Refs.GetHead()
	if err != nil {
		return nil, err
	}
	if !head.Resolved {
		return nil, nil
	}
	ancestors, err := history.Ancestors(r.Store, head.Digest)
	if err != nil {
		return nil, err
	}

	digests := make([]digest.Digest, 0, len(ancestors))
	for d := range ancestors {
		digests = append(digests, d)
	}
	commits := make([]*objects.Commit, 0, len(digests))
	byDigest := make(map[digest.Digest]*objects.Commit, len(digests))
	for _, d := range digests {
		c, err := history.ReadCommit(r.Store, d)
		if err != nil {
			return nil, err
		}
		byDigest[d] = c
		commits = append(commits, c)
	}

	order := topoOrder(head.Digest, byDigest)
	return order, nil
}

// topoOrder lists every commit of byDigest reachable from start exactly
// once, beginning with start. After emitting a commit it first descends,
// depth-first, into its second and later parents, then continues along
// its first parent. Linear history therefore comes out newest first;
// across a merge, the merged-in side is listed (down to a commit already
// listed or a root commit) before the rest of the first-parent chain.
func topoOrder(start digest.Digest, byDigest map[digest.Digest]*objects.Commit) []*objects.Commit {
	visited := map[digest.Digest]bool{}
	var out []*objects.Commit

	var walk func(d digest.Digest)
	walk = func(d digest.Digest) {
		for !d.IsZero() && !visited[d] {
			c, ok := byDigest[d]
			if !ok {
				return
			}
			visited[d] = true
			out = append(out, c)
			if len(c.Parents) == 0 {
				return
			}
			for _, p := range c.Parents[1:] {
				walk(p)
			}
			d = c.Parents[0]
		}
	}
	walk(start)
	return out
}
