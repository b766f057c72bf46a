// Package integrity implements the repository fsck scan and a
// BLAKE3-based fast fingerprint used as a cheap first pass before the
// authoritative SHA-256 recheck. BLAKE3 is never the object identity —
// that stays the framed SHA-256 digest from internal/digest — it is
// only ever a secondary, disposable fingerprint, mirroring how the
// teacher's dual-hash CAS layer used BLAKE3 alongside, never instead
// of, its primary hash.
package integrity

import (
	"lukechampine.com/blake3"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/store"
)

// Fingerprint is a BLAKE3-256 sum of an object's decompressed content
// (the bytes after the framed header), used only to cheaply notice that something changed; it is
// never compared across stores or persisted as object identity.
type Fingerprint [32]byte

// Fingerprint32 computes a fast BLAKE3 fingerprint of b.
func Fingerprint32(b []byte) Fingerprint {
	return blake3.Sum256(b)
}

// Problem describes one object that failed verification.
type Problem struct {
	Digest digest.Digest
	Reason string
}

// Report is the outcome of a full fsck scan.
type Report struct {
	Scanned  int
	Problems []Problem
}

// OK reports whether the scan found no problems.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// Scan walks every object in s, decompresses it, and verifies that
// reframing and rehashing its content reproduces the digest it's
// stored under (§C.2 "fsck integrity scan"). A mismatch is recorded as
// a Problem rather than aborting the scan, so a single corrupted
// object doesn't prevent reporting the rest.
func Scan(s *store.ObjectStore) (Report, error) {
	report := Report{}
	err := s.Walk(func(d digest.Digest) error {
		report.Scanned++
		typ, content, err := s.Read(d)
		if err != nil {
			report.Problems = append(report.Problems, Problem{Digest: d, Reason: err.Error()})
			return nil
		}
		recomputed, _ := digest.HashFramed(typ, content)
		if recomputed != d {
			report.Problems = append(report.Problems, Problem{
				Digest: d,
				Reason: "stored digest does not match recomputed SHA-256 of its framed content",
			})
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// QuickCheck reads the object at d and compares a BLAKE3 fingerprint of
// its decompressed content (header stripped, not re-framed) against want. It's meant as a
// cheap pre-filter: a mismatch here is worth investigating with the
// authoritative Scan, but a match is not itself a correctness proof
// since BLAKE3 collisions, however unlikely, are never the basis for
// an acceptance decision in this engine.
func QuickCheck(s *store.ObjectStore, d digest.Digest, want Fingerprint) (bool, error) {
	_, content, err := s.Read(d)
	if err != nil {
		return false, err
	}
	return Fingerprint32(content) == want, nil
}
