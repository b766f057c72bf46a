package merge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/index"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/treebuilder"
	"github.com/halvorsen/ledger/internal/vcserr"
	"github.com/halvorsen/ledger/internal/worktree"
)

var testMerger = objects.Ident{Name: "M", Email: "m@example.com"}
var testTime = time.Unix(1700000000, 0).UTC()

func newTestSetup(t *testing.T) (*store.ObjectStore, *worktree.Materializer, string) {
	t.Helper()
	workDir := t.TempDir()
	s, err := store.Open(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, worktree.New(s, workDir), workDir
}

func blob(t *testing.T, s *store.ObjectStore, content string) index.Entry {
	t.Helper()
	d, framed := objects.HashBlob([]byte(content))
	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}
	return index.Entry{Digest: d, Mode: objects.ModeFile}
}

func commit(t *testing.T, s *store.ObjectStore, flat map[string]index.Entry, parents ...digest.Digest) digest.Digest {
	t.Helper()
	tree, err := treebuilder.Build(s, flat)
	if err != nil {
		t.Fatal(err)
	}
	d, framed, err := objects.BuildCommit(objects.Commit{
		Tree:       tree,
		Parents:    parents,
		Author:     testMerger,
		AuthorTime: testTime,
		Committer:  testMerger,
		CommitTime: testTime,
		Message:    "msg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(d, framed); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMergeUpToDate(t *testing.T) {
	s, wt, _ := newTestSetup(t)
	c1 := commit(t, s, map[string]index.Entry{"a.txt": blob(t, s, "a")})
	c2 := commit(t, s, map[string]index.Entry{"a.txt": blob(t, s, "a2")}, c1)

	res, _, err := Merge(s, wt, index.New(), c2, c1, "feature", testMerger, testTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != UpToDate {
		t.Errorf("status = %v, want UpToDate", res.Status)
	}
}

func TestMergeFastForward(t *testing.T) {
	s, wt, workDir := newTestSetup(t)
	c1 := commit(t, s, map[string]index.Entry{"base.txt": blob(t, s, "base")})
	idx, err := wt.Materialize(readTree(t, s, c1), index.New())
	if err != nil {
		t.Fatal(err)
	}
	c2 := commit(t, s, map[string]index.Entry{
		"base.txt":    blob(t, s, "base"),
		"feature.txt": blob(t, s, "feature work"),
	}, c1)

	res, newIdx, err := Merge(s, wt, idx, c1, c2, "feature", testMerger, testTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != FastForward {
		t.Fatalf("status = %v, want FastForward", res.Status)
	}
	if res.NewHead != c2 {
		t.Errorf("NewHead = %s, want %s", res.NewHead, c2)
	}
	data, err := os.ReadFile(filepath.Join(workDir, "feature.txt"))
	if err != nil || string(data) != "feature work" {
		t.Errorf("feature.txt = %q, err=%v", data, err)
	}
	if newIdx.Len() != 2 {
		t.Errorf("new index has %d entries, want 2", newIdx.Len())
	}
}

func TestMergeThreeWayClean(t *testing.T) {
	s, wt, _ := newTestSetup(t)
	base := commit(t, s, map[string]index.Entry{
		"shared.txt": blob(t, s, "shared"),
		"a.txt":      blob(t, s, "a-base"),
	})
	ours := commit(t, s, map[string]index.Entry{
		"shared.txt": blob(t, s, "shared"),
		"a.txt":      blob(t, s, "a-changed-by-ours"),
	}, base)
	theirs := commit(t, s, map[string]index.Entry{
		"shared.txt": blob(t, s, "shared"),
		"a.txt":      blob(t, s, "a-base"),
		"b.txt":      blob(t, s, "b-added-by-theirs"),
	}, base)

	res, newIdx, err := Merge(s, wt, index.New(), ours, theirs, "feature", testMerger, testTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != ThreeWay {
		t.Fatalf("status = %v, want ThreeWay", res.Status)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", res.Conflicts)
	}
	if e, ok := newIdx.Get("a.txt"); !ok {
		t.Error("a.txt missing from merged index")
	} else {
		_, content, err := s.Read(e.Digest)
		if err != nil || string(content) != "a-changed-by-ours" {
			t.Errorf("a.txt content = %q, want a-changed-by-ours", content)
		}
	}
	if _, ok := newIdx.Get("b.txt"); !ok {
		t.Error("b.txt (added by theirs) missing from merged index")
	}

	c, err := objects.ParseCommit(mustRead(t, s, res.NewHead))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Parents) != 2 || c.Parents[0] != ours || c.Parents[1] != theirs {
		t.Errorf("merge commit parents = %v, want [ours, theirs] = [%s, %s]", c.Parents, ours, theirs)
	}
}

func TestMergeThreeWayConflict(t *testing.T) {
	s, wt, workDir := newTestSetup(t)
	base := commit(t, s, map[string]index.Entry{"x.txt": blob(t, s, "A\n")})
	ours := commit(t, s, map[string]index.Entry{"x.txt": blob(t, s, "B\n")}, base)
	theirs := commit(t, s, map[string]index.Entry{"x.txt": blob(t, s, "C\n")}, base)

	res, newIdx, err := Merge(s, wt, index.New(), ours, theirs, "feat", testMerger, testTime)
	if err == nil {
		t.Fatal("expected MergeConflict error")
	}
	if vcserr.KindOf(err) != vcserr.MergeConflict {
		t.Fatalf("error kind = %v, want MergeConflict", vcserr.KindOf(err))
	}
	if vcserr.PathsOf(err) == nil || vcserr.PathsOf(err)[0] != "x.txt" {
		t.Errorf("conflict paths = %v, want [x.txt]", vcserr.PathsOf(err))
	}
	if res != nil {
		t.Error("expected a nil Result on conflict")
	}

	data, err := os.ReadFile(filepath.Join(workDir, "x.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "<<<<<<< HEAD\nB\n=======\nC\n>>>>>>> feat\n"
	if string(data) != want {
		t.Errorf("x.txt = %q, want %q", data, want)
	}

	e, ok := newIdx.Get("x.txt")
	if !ok {
		t.Fatal("x.txt missing from post-conflict index")
	}
	_, content, err := s.Read(e.Digest)
	if err != nil || string(content) != want {
		t.Errorf("indexed conflict blob = %q, want %q", content, want)
	}
}

func TestMergeUnrelatedHistories(t *testing.T) {
	s, wt, _ := newTestSetup(t)
	a := commit(t, s, map[string]index.Entry{"a.txt": blob(t, s, "a")})
	b := commit(t, s, map[string]index.Entry{"b.txt": blob(t, s, "b")})

	_, _, err := Merge(s, wt, index.New(), a, b, "other", testMerger, testTime)
	if err == nil {
		t.Fatal("expected UnrelatedHistory error")
	}
	if vcserr.KindOf(err) != vcserr.UnrelatedHistory {
		t.Errorf("error kind = %v, want UnrelatedHistory", vcserr.KindOf(err))
	}
}

func readTree(t *testing.T, s *store.ObjectStore, c digest.Digest) digest.Digest {
	t.Helper()
	_, content, err := s.Read(c)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := objects.ParseCommit(content)
	if err != nil {
		t.Fatal(err)
	}
	return parsed.Tree
}

func mustRead(t *testing.T, s *store.ObjectStore, d digest.Digest) []byte {
	t.Helper()
	_, content, err := s.Read(d)
	if err != nil {
		t.Fatal(err)
	}
	return content
}
