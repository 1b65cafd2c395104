// Package cas provides BLAKE3 content digests used to compare and report
// file contents.
package cas

import (
	"encoding/hex"
	"time"

	"lukechampine.com/blake3"
)

// NowMs returns the current time in milliseconds since epoch.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// Blake3Hash computes a BLAKE3 hash of the input and returns it as bytes.
func Blake3Hash(data []byte) []byte {
	hash := blake3.Sum256(data)
	return hash[:]
}

// Blake3HashHex computes a BLAKE3 hash and returns it as a hex string.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// SameContent reports whether a and b hash to the same digest.
func SameContent(a, b []byte) bool {
	return Blake3HashHex(a) == Blake3HashHex(b)
}

// ShortDigest returns the first 12 hex characters of a digest for display.
func ShortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
