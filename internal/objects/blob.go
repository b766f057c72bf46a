// Package objects implements the three-object data model (§3, §4.4,
// §4.5): blobs are opaque bytes, trees are sorted entry lists, commits
// are header+message text. All three share the digest.Frame envelope;
// this file holds the blob side, which needs no build/parse beyond
// framing since a blob carries no structure of its own (§3 "Blob").
package objects

import "github.com/halvorsen/ledger/internal/digest"

// HashBlob frames and hashes raw file content as a blob object, the
// sole operation blobs support (§4.1, §3 "Blob": "no filename, no mode,
// no metadata").
func HashBlob(content []byte) (digest.Digest, []byte) {
	return digest.HashFramed(digest.TypeBlob, content)
}
