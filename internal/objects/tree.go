package objects

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// FileMode mirrors the ASCII octal-style mode strings defined in §3
// "Tree": regular file, executable file, or directory.
type FileMode string

const (
	ModeFile FileMode = "100644"
	ModeExec FileMode = "100755"
	ModeDir  FileMode = "040000"
)

// Entry is one line of a tree object: a mode, a name with no NUL or '/',
// and the referent's digest (§3 "Tree").
type Entry struct {
	Mode FileMode
	Name string
	Hash digest.Digest
}

// BuildTree sorts entries ascending by Name under byte-wise ordering
// (Invariant T1), serializes them, and frames+hashes the result as a
// tree object. The input slice is not mutated; BuildTree sorts a copy,
// so build_tree(E) and build_tree(reverse(E)) always produce the same
// digest (Invariant T1/P7).
func BuildTree(entries []Entry) (digest.Digest, []byte, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		if err := validateEntry(e); err != nil {
			return digest.Digest{}, nil, err
		}
		buf.WriteString(string(e.Mode))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}

	d, framed := digest.HashFramed(digest.TypeTree, buf.Bytes())
	return d, framed, nil
}

func validateEntry(e Entry) error {
	if e.Mode != ModeFile && e.Mode != ModeExec && e.Mode != ModeDir {
		return fmt.Errorf("objects: invalid tree entry mode %q", e.Mode)
	}
	if bytes.ContainsAny([]byte(e.Name), "/\x00") {
		return fmt.Errorf("objects: invalid tree entry name %q", e.Name)
	}
	return nil
}

// ParseTree reverses BuildTree's serialization (§4.4 "Parse"): it reads
// mode, name, and a 32-byte binary digest for each entry until the
// buffer is exhausted, and returns them in the sorted order in which
// they were stored (Invariant P8).
func ParseTree(content []byte) ([]Entry, error) {
	var entries []Entry
	off := 0
	for off < len(content) {
		spaceIdx := bytes.IndexByte(content[off:], ' ')
		if spaceIdx < 0 {
			return nil, vcserr.New(vcserr.Corrupted, "objects: tree entry truncated before mode separator at offset %d", off)
		}
		mode := FileMode(content[off : off+spaceIdx])
		off += spaceIdx + 1

		nulIdx := bytes.IndexByte(content[off:], 0)
		if nulIdx < 0 {
			return nil, vcserr.New(vcserr.Corrupted, "objects: tree entry truncated before name terminator at offset %d", off)
		}
		name := string(content[off : off+nulIdx])
		off += nulIdx + 1

		if off+digest.Size > len(content) {
			return nil, vcserr.New(vcserr.Corrupted, "objects: tree entry truncated before digest at offset %d", off)
		}
		hash, err := digest.FromBytes(content[off : off+digest.Size])
		if err != nil {
			return nil, vcserr.Wrap(vcserr.Corrupted, err, "objects: invalid tree entry digest")
		}
		off += digest.Size

		entries = append(entries, Entry{Mode: mode, Name: name, Hash: hash})
	}
	return entries, nil
}
