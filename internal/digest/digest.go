// Package digest implements the framed content-hashing primitive (§4.1):
// every stored object is identified by the SHA-256 digest of its framed
// envelope, "TYPE SP SIZE NUL CONTENT".
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a digest.
const Size = sha256.Size

// Digest is a 32-byte SHA-256 value. The zero Digest never arises from
// hashing and is used as a sentinel "absent" value by callers that need
// one (e.g. a commit with no parent).
type Digest [Size]byte

// String returns the lowercase 64-char hex form, the canonical string
// representation (§3 "Digest").
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the all-zero sentinel.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Parse decodes a lowercase 64-char hex string into a Digest.
func Parse(hexStr string) (Digest, error) {
	var d Digest
	if len(hexStr) != Size*2 {
		return d, fmt.Errorf("digest: invalid hex length %d, want %d", len(hexStr), Size*2)
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return d, fmt.Errorf("digest: invalid hex: %w", err)
	}
	copy(d[:], b)
	return d, nil
}

// FromBytes copies 32 raw bytes (as found inside a tree entry, §3 "Tree")
// into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("digest: invalid binary length %d, want %d", len(b), Size)
	}
	copy(d[:], b)
	return d, nil
}

// ObjectType enumerates the three framed object kinds (§3).
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Frame builds the "TYPE SP SIZE NUL CONTENT" envelope described in §3 and
// §6. SIZE is the decimal ASCII byte length of content, never the
// character length (Invariant P3: "café" is 4 characters but 5 bytes).
func Frame(t ObjectType, content []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(content))
	framed := make([]byte, 0, len(header)+len(content))
	framed = append(framed, header...)
	framed = append(framed, content...)
	return framed
}

// HashFramed computes the digest of the framed envelope for (t, content)
// and returns both the digest and the framed buffer, so the caller can
// write the framed buffer to the object store without recomputing it
// (§4.1). Pure function; no error conditions.
func HashFramed(t ObjectType, content []byte) (Digest, []byte) {
	framed := Frame(t, content)
	return Sum(framed), framed
}

// Sum returns the SHA-256 digest of an arbitrary byte sequence. HashFramed
// uses it to hash the already-framed buffer; the integrity scanner and
// the working-tree dirty-guard go through HashFramed (or objects.HashBlob)
// rather than calling Sum on raw content.
func Sum(b []byte) Digest {
	return sha256.Sum256(b)
}
