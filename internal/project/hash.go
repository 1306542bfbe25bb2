package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

// HashBytes digests raw content.
func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// HashStrings digests a list of strings with length framing, so
// ["ab","c"] and ["a","bc"] produce different digests.
func HashStrings(items []string) Digest {
	h := sha256.New()
	for _, s := range items {
		var n [4]byte
		n[0] = byte(len(s))
		n[1] = byte(len(s) >> 8)
		n[2] = byte(len(s) >> 16)
		n[3] = byte(len(s) >> 24)
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Combine builds a composite hash: H( content || dep1 || dep2 ... ).
// The order of deps must be deterministic.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
