package objects

import (
	"errors"
	"testing"
	"time"

	"github.com/halvorsen/ledger/internal/digest"
)

func hashOf(s string) digest.Digest {
	d, _ := digest.HashFramed(digest.TypeBlob, []byte(s))
	return d
}

func TestBuildTreeCanonicalOrder(t *testing.T) {
	ha, hb := hashOf("a"), hashOf("b")
	forward := []Entry{
		{Mode: ModeFile, Name: "a.js", Hash: ha},
		{Mode: ModeFile, Name: "b.js", Hash: hb},
	}
	reversed := []Entry{
		{Mode: ModeFile, Name: "b.js", Hash: hb},
		{Mode: ModeFile, Name: "a.js", Hash: ha},
	}

	d1, f1, err := BuildTree(forward)
	if err != nil {
		t.Fatal(err)
	}
	d2, _, err := BuildTree(reversed)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("BuildTree must be order-independent (Invariant T1/P7)")
	}

	content, err := extractContent(f1)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := ParseTree(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "a.js" || entries[1].Name != "b.js" {
		t.Errorf("expected sorted [a.js, b.js], got %+v", entries)
	}
}

func TestTreeRoundTrip(t *testing.T) {
	entries := []Entry{
		{Mode: ModeDir, Name: "src", Hash: hashOf("src")},
		{Mode: ModeExec, Name: "run.sh", Hash: hashOf("run")},
		{Mode: ModeFile, Name: "README.md", Hash: hashOf("readme")},
	}
	_, framed, err := BuildTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	content, err := extractContent(framed)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseTree(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
}

func TestCommitRoundTrip(t *testing.T) {
	loc := time.FixedZone("", -5*3600)
	when := time.Unix(1700000000, 0).In(loc)
	c := Commit{
		Tree:       hashOf("tree"),
		Parents:    []digest.Digest{hashOf("p1"), hashOf("p2")},
		Author:     Ident{Name: "Ada Lovelace", Email: "ada@example.com"},
		AuthorTime: when,
		Committer:  Ident{Name: "Ada Lovelace", Email: "ada@example.com"},
		CommitTime: when,
		Message:    "Merge feature into main",
	}

	_, framed, err := BuildCommit(c)
	if err != nil {
		t.Fatal(err)
	}
	content, err := extractContent(framed)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseCommit(content)
	if err != nil {
		t.Fatal(err)
	}

	if got.Tree != c.Tree {
		t.Error("tree mismatch after round trip")
	}
	if len(got.Parents) != 2 || got.Parents[0] != c.Parents[0] || got.Parents[1] != c.Parents[1] {
		t.Errorf("parent order/multiplicity not preserved: %+v", got.Parents)
	}
	if got.Author != c.Author {
		t.Errorf("author mismatch: got %+v want %+v", got.Author, c.Author)
	}
	if got.AuthorTime.Unix() != c.AuthorTime.Unix() {
		t.Errorf("author time mismatch: got %d want %d", got.AuthorTime.Unix(), c.AuthorTime.Unix())
	}
	if got.Message != c.Message {
		t.Errorf("message mismatch: got %q want %q", got.Message, c.Message)
	}
}

func TestFormatTZConvention(t *testing.T) {
	utc := time.Unix(0, 0).UTC()
	if got := formatTZ(utc); got != "+0000" {
		t.Errorf("UTC should format as +0000, got %s", got)
	}
	behind := time.Unix(0, 0).In(time.FixedZone("", -5*3600))
	if got := formatTZ(behind); got != "-0500" {
		t.Errorf("5 hours behind UTC should format as -0500, got %s", got)
	}
	ahead := time.Unix(0, 0).In(time.FixedZone("", 5*3600+30*60))
	if got := formatTZ(ahead); got != "+0530" {
		t.Errorf("5:30 ahead of UTC should format as +0530, got %s", got)
	}
}

// extractContent strips the framed envelope's header to recover raw
// content, mirroring what the object store does on read.
func extractContent(framed []byte) ([]byte, error) {
	for i, b := range framed {
		if b == 0 {
			return framed[i+1:], nil
		}
	}
	return nil, errors.New("no NUL in framed buffer")
}
