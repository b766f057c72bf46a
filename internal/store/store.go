// Package store implements the L2 content-addressed object store (§4.3):
// a two-char fan-out directory of deflate-compressed framed objects, plus
// an optional rebuildable existence cache (see cache.go) that accelerates
// repeated Exists/Write calls without ever becoming the source of truth.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/halvorsen/ledger/internal/codec"
	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// ObjectStore is the persistent content-addressed key-value store
// described in §4.3: layout "<repo>/objects/<hex[0:2]>/<hex[2:64]>".
type ObjectStore struct {
	root  string
	cache *existenceCache // nil if unavailable; purely an accelerator
}

// Open opens (creating if necessary) the object store rooted at dir,
// which should be "<repo>/objects". It also opens the existence cache
// at "<repo>/objects.cache.db" beside it; if the cache cannot be opened
// (missing, corrupt, or disabled) the store still works correctly, just
// without the fast path, since the cache is never authoritative.
func Open(dir string) (*ObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, vcserr.Wrap(vcserr.IOError, err, "store: create objects dir")
	}
	cachePath := filepath.Join(filepath.Dir(dir), "objects.cache.db")
	cache, err := openExistenceCache(cachePath)
	if err != nil {
		cache = nil // degrade silently; correctness does not depend on it
	}
	return &ObjectStore{root: dir, cache: cache}, nil
}

// Close releases the existence cache, if one is open.
func (s *ObjectStore) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

func (s *ObjectStore) pathFor(d digest.Digest) string {
	hexStr := d.String()
	return filepath.Join(s.root, hexStr[:2], hexStr[2:])
}

// Write stores a framed object buffer under its digest. If the target
// file already exists the call is a no-op — the sole deduplication
// mechanism (§4.3, Invariant P6). The buffer is compressed and written
// to a temp sibling then renamed, so a crash leaves either no file or a
// complete valid one (Invariant W1).
func (s *ObjectStore) Write(d digest.Digest, framed []byte) error {
	path := s.pathFor(d)

	if _, err := os.Stat(path); err == nil {
		s.noteExists(d)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "store: create fan-out dir for %s", d)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return vcserr.Wrap(vcserr.IOError, err, "store: create temp file for %s", d)
	}
	tmpPath := tmp.Name()

	compressed := codec.Compress(framed)
	_, writeErr := tmp.Write(compressed)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, writeErr, "store: write object %s", d)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, closeErr, "store: close temp file for %s", d)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return vcserr.Wrap(vcserr.IOError, err, "store: rename into place for %s", d)
	}

	s.noteExists(d)
	return nil
}

// Read fetches and decompresses the object stored under d, parsing its
// framed header into (type, content) (§4.3 "read"). It fails NotFound if
// the file is missing, and Corrupted if the header is malformed or the
// declared size doesn't match the actual content length.
func (s *ObjectStore) Read(d digest.Digest) (digest.ObjectType, []byte, error) {
	path := s.pathFor(d)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, vcserr.New(vcserr.NotFound, "store: object %s not found", d)
		}
		return "", nil, vcserr.Wrap(vcserr.IOError, err, "store: read object %s", d)
	}

	framed, err := codec.Decompress(raw)
	if err != nil {
		return "", nil, vcserr.Wrap(vcserr.Corrupted, err, "store: object %s", d)
	}

	nul := bytes.IndexByte(framed, 0)
	if nul < 0 {
		return "", nil, vcserr.New(vcserr.Corrupted, "store: object %s missing NUL separator", d)
	}
	header := string(framed[:nul])
	content := framed[nul+1:]

	var typ string
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &typ, &size); err != nil {
		return "", nil, vcserr.Wrap(vcserr.Corrupted, err, "store: object %s malformed header %q", d, header)
	}
	if size != len(content) {
		return "", nil, vcserr.New(vcserr.Corrupted, "store: object %s size mismatch: header says %d, got %d", d, size, len(content))
	}

	s.noteExists(d)
	return digest.ObjectType(typ), content, nil
}

// Exists is a pure existence probe (§4.3 "exists"). It consults the
// cache first; a cache hit is trusted (the cache is only ever populated
// alongside an actual Write/Read), but a cache miss always falls back to
// a real filesystem stat, so the cache can never produce a false
// negative, only skip a redundant syscall on a true positive.
func (s *ObjectStore) Exists(d digest.Digest) (bool, error) {
	if s.cache != nil {
		if hit, ok := s.cache.has(d); ok && hit {
			return true, nil
		}
	}
	_, err := os.Stat(s.pathFor(d))
	if err == nil {
		s.noteExists(d)
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, vcserr.Wrap(vcserr.IOError, err, "store: stat object %s", d)
}

func (s *ObjectStore) noteExists(d digest.Digest) {
	if s.cache != nil {
		s.cache.put(d)
	}
}

// Walk invokes fn once per object currently stored, in no particular
// order. Used by the integrity scanner (internal/integrity).
func (s *ObjectStore) Walk(fn func(d digest.Digest) error) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return vcserr.Wrap(vcserr.IOError, err, "store: list fan-out dirs")
	}
	for _, fanout := range entries {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		sub := filepath.Join(s.root, fanout.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			return vcserr.Wrap(vcserr.IOError, err, "store: list fan-out dir %s", fanout.Name())
		}
		for _, f := range files {
			if f.IsDir() || len(f.Name()) != digest.Size*2-2 {
				continue
			}
			d, err := digest.Parse(fanout.Name() + f.Name())
			if err != nil {
				continue
			}
			if err := fn(d); err != nil {
				return err
			}
		}
	}
	return nil
}
