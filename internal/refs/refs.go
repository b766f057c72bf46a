// Package refs implements the L2 reference layer (§4.7): HEAD, either
// symbolic to a branch or detached to a raw digest, and named branches
// under refs/heads/<name>. Layout matches §6 byte-exact: each ref file
// holds "<64-hex>\n"; HEAD holds "ref: refs/heads/<name>\n" or
// "<64-hex>\n".
package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// Kind distinguishes a symbolic HEAD from a detached one.
type Kind int

const (
	Branch Kind = iota
	Detached
)

// Head is the parsed form of the HEAD file.
type Head struct {
	Kind     Kind
	RefName  string        // branch short name, set when Kind == Branch
	Digest   digest.Digest // valid when Resolved is true
	Resolved bool          // false only for Branch before its first commit (Invariant R1)
}

// Store is the reference layer rooted at a repository directory
// (the directory containing "objects/", "refs/", and "HEAD").
type Store struct {
	root string
}

// Open wraps an existing repository root; it does not create anything,
// mirroring the object store's and index's "caller already ran init"
// assumption.
func Open(root string) *Store {
	return &Store{root: root}
}

// Init creates the refs/heads directory and a symbolic HEAD pointing at
// the given initial branch name, with no backing file yet — the legal
// pre-first-commit state described in Invariant R1.
func (s *Store) Init(initialBranch string) error {
	if err := os.MkdirAll(filepath.Join(s.root, "refs", "heads"), 0755); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "refs: create refs/heads")
	}
	return s.SetHeadSymbolic(initialBranch)
}

func (s *Store) headPath() string { return filepath.Join(s.root, "HEAD") }

func (s *Store) branchPath(name string) string {
	safe := strings.ReplaceAll(name, "/", string(filepath.Separator))
	return filepath.Join(s.root, "refs", "heads", safe)
}

// GetHead reads and interprets the HEAD file (§4.7 "get_head").
func (s *Store) GetHead() (Head, error) {
	data, err := os.ReadFile(s.headPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Head{}, vcserr.New(vcserr.InvalidRef, "refs: HEAD does not exist")
		}
		return Head{}, vcserr.Wrap(vcserr.IOError, err, "refs: read HEAD")
	}
	content := strings.TrimRight(string(data), "\n")

	if name, ok := strings.CutPrefix(content, "ref: refs/heads/"); ok {
		d, resolved, err := s.ResolveRef(filepath.Join("refs", "heads", name))
		if err != nil {
			return Head{}, err
		}
		return Head{Kind: Branch, RefName: name, Digest: d, Resolved: resolved}, nil
	}

	d, err := digest.Parse(content)
	if err != nil {
		return Head{}, vcserr.Wrap(vcserr.InvalidRef, err, "refs: malformed HEAD content %q", content)
	}
	return Head{Kind: Detached, Digest: d, Resolved: true}, nil
}

// SetHeadSymbolic points HEAD at refs/heads/<branch> (§4.7).
func (s *Store) SetHeadSymbolic(branch string) error {
	content := fmt.Sprintf("ref: refs/heads/%s\n", branch)
	if err := os.WriteFile(s.headPath(), []byte(content), 0644); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "refs: write HEAD")
	}
	return nil
}

// SetHeadDetached points HEAD directly at a commit digest (§4.7, §3
// "Detached HEAD").
func (s *Store) SetHeadDetached(d digest.Digest) error {
	content := d.String() + "\n"
	if err := os.WriteFile(s.headPath(), []byte(content), 0644); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "refs: write detached HEAD")
	}
	return nil
}

// UpdateRef writes digest d to refPath (e.g. "refs/heads/main"),
// creating intermediate directories as needed (§4.7).
func (s *Store) UpdateRef(refPath string, d digest.Digest) error {
	full := filepath.Join(s.root, refPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "refs: create parent dir for %s", refPath)
	}
	if err := os.WriteFile(full, []byte(d.String()+"\n"), 0644); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "refs: write ref %s", refPath)
	}
	return nil
}

// ResolveRef reads refPath and returns (digest, true) if it exists, or
// (zero, false) if it doesn't — the latter is not an error, since a
// branch may legally exist (be listed) with no commit yet (Invariant
// R1).
func (s *Store) ResolveRef(refPath string) (digest.Digest, bool, error) {
	full := filepath.Join(s.root, refPath)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return digest.Digest{}, false, nil
		}
		return digest.Digest{}, false, vcserr.Wrap(vcserr.IOError, err, "refs: read %s", refPath)
	}
	d, err := digest.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return digest.Digest{}, false, vcserr.Wrap(vcserr.Corrupted, err, "refs: malformed ref %s", refPath)
	}
	return d, true, nil
}

// CreateBranch creates refs/heads/<name> pointing at d. It fails
// BranchAlreadyExists if the branch file is already present.
func (s *Store) CreateBranch(name string, d digest.Digest) error {
	if _, err := os.Stat(s.branchPath(name)); err == nil {
		return vcserr.New(vcserr.BranchExists, "refs: branch %q already exists", name)
	}
	return s.UpdateRef(filepath.Join("refs", "heads", name), d)
}

// ListBranches lists all branch names under refs/heads, sorted.
func (s *Store) ListBranches() ([]string, error) {
	dir := filepath.Join(s.root, "refs", "heads")
	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, vcserr.Wrap(vcserr.IOError, err, "refs: list refs/heads")
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch HEAD symbolically points to, if any.
func (s *Store) CurrentBranch() (string, bool, error) {
	head, err := s.GetHead()
	if err != nil {
		return "", false, err
	}
	if head.Kind != Branch {
		return "", false, nil
	}
	return head.RefName, true, nil
}

// DeleteBranch removes refs/heads/<name>. It refuses (BranchInUse) if
// the branch is currently checked out.
func (s *Store) DeleteBranch(name string) error {
	current, onBranch, err := s.CurrentBranch()
	if err != nil {
		return err
	}
	if onBranch && current == name {
		return vcserr.New(vcserr.BranchInUse, "refs: cannot delete checked-out branch %q", name)
	}
	path := s.branchPath(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return vcserr.New(vcserr.NotFound, "refs: branch %q not found", name)
		}
		return vcserr.Wrap(vcserr.IOError, err, "refs: delete branch %q", name)
	}
	return nil
}
