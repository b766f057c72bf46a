package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/status"
	"github.com/halvorsen/ledger/internal/vcserr"
)

var testAuthor = objects.Ident{Name: "Tester", Email: "tester@example.com"}
var testTime = time.Unix(1700000000, 0).UTC()

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := Init(dir, "main")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestFastForwardMergeScenario(t *testing.T) {
	r := newRepo(t)

	writeFile(t, r.WorkDir, "base.txt", "base")
	if err := r.Stage([]string{"base.txt"}); err != nil {
		t.Fatal(err)
	}
	c1, err := r.Commit("base commit", testAuthor, testTime)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.CreateBranch("feature"); err != nil {
		t.Fatal(err)
	}
	if err := r.Checkout("feature"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, r.WorkDir, "feature.txt", "feature work")
	if err := r.Stage([]string{"feature.txt"}); err != nil {
		t.Fatal(err)
	}
	c2, err := r.Commit("feature commit", testAuthor, testTime)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Checkout("main"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(r.WorkDir, "feature.txt")); !os.IsNotExist(err) {
		t.Fatalf("feature.txt should be gone on main, stat err=%v", err)
	}

	result, err := r.Merge("feature", testAuthor, testTime)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	if result.NewHead != c2 {
		t.Errorf("NewHead = %s, want %s (c1=%s)", result.NewHead, c2, c1)
	}

	head, err := r.Refs.GetHead()
	if err != nil {
		t.Fatal(err)
	}
	if head.RefName != "main" || head.Digest != c2 {
		t.Errorf("main ref = %+v, want digest %s", head, c2)
	}

	data, err := os.ReadFile(filepath.Join(r.WorkDir, "feature.txt"))
	if err != nil || string(data) != "feature work" {
		t.Errorf("feature.txt = %q, err=%v", data, err)
	}
}

func TestThreeWayConflictScenario(t *testing.T) {
	r := newRepo(t)

	writeFile(t, r.WorkDir, "x.txt", "A\n")
	if err := r.Stage([]string{"x.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("base", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateBranch("feat"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, r.WorkDir, "x.txt", "B\n")
	if err := r.Stage([]string{"x.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("main change", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}

	if err := r.Checkout("feat"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, r.WorkDir, "x.txt", "C\n")
	if err := r.Stage([]string{"x.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("feat change", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}

	if err := r.Checkout("main"); err != nil {
		t.Fatal(err)
	}

	_, err := r.Merge("feat", testAuthor, testTime)
	if err == nil {
		t.Fatal("expected a MergeConflict error")
	}
	if vcserr.KindOf(err) != vcserr.MergeConflict {
		t.Fatalf("error kind = %v, want MergeConflict", vcserr.KindOf(err))
	}
	if paths := vcserr.PathsOf(err); len(paths) != 1 || paths[0] != "x.txt" {
		t.Errorf("conflict paths = %v, want [x.txt]", paths)
	}

	data, err := os.ReadFile(filepath.Join(r.WorkDir, "x.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "<<<<<<< HEAD\nB\n=======\nC\n>>>>>>> feat\n"
	if string(data) != want {
		t.Errorf("x.txt = %q, want %q", data, want)
	}

	head, err := r.Refs.GetHead()
	if err != nil {
		t.Fatal(err)
	}
	c, err := r.Store.Exists(head.Digest)
	if err != nil || !c {
		t.Fatal("main ref's commit must still exist unchanged after a conflicted merge")
	}
}

func TestStatusReflectsStagedAndUntracked(t *testing.T) {
	r := newRepo(t)

	writeFile(t, r.WorkDir, "a.txt", "a")
	if err := r.Stage([]string{"a.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("initial", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}

	writeFile(t, r.WorkDir, "b.txt", "b")
	if err := r.Stage([]string{"b.txt"}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, r.WorkDir, "c.txt", "untracked")

	var working []status.WorkingEntry
	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		data, err := os.ReadFile(filepath.Join(r.WorkDir, p))
		if err != nil {
			t.Fatal(err)
		}
		d, _ := objects.HashBlob(data)
		working = append(working, status.WorkingEntry{Path: p, Digest: d})
	}

	report, err := r.Status(working)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Untracked) != 1 || report.Untracked[0] != "c.txt" {
		t.Errorf("untracked = %v, want [c.txt]", report.Untracked)
	}
	found := false
	for _, c := range report.Staged {
		if c.Path == "b.txt" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected b.txt staged as added, got %+v", report.Staged)
	}
}

func TestFsckCleanRepo(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r.WorkDir, "a.txt", "a")
	if err := r.Stage([]string{"a.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("c1", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}

	report, err := r.Fsck()
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Errorf("expected clean fsck, got %+v", report.Problems)
	}
}

func TestLogReturnsCommitsNewestFirst(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r.WorkDir, "a.txt", "1")
	if err := r.Stage([]string{"a.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("first", testAuthor, testTime); err != nil {
		t.Fatal(err)
	}
	writeFile(t, r.WorkDir, "a.txt", "2")
	if err := r.Stage([]string{"a.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit("second", testAuthor, testTime.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	commits, err := r.Log()
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("log has %d commits, want 2", len(commits))
	}
	if commits[0].Message != "second" || commits[1].Message != "first" {
		t.Errorf("log order = [%q, %q], want [second, first]", commits[0].Message, commits[1].Message)
	}
}

func TestDiscoverWalksUpward(t *testing.T) {
	r := newRepo(t)
	nested := filepath.Join(r.WorkDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(nested)
	if err != nil {
		t.Fatal(err)
	}
	defer found.Close()
	if found.WorkDir != r.WorkDir {
		t.Errorf("discovered WorkDir = %s, want %s", found.WorkDir, r.WorkDir)
	}
}
