package cas

import (
	"testing"
)

func TestNowMs(t *testing.T) {
	// Year 2024 in milliseconds is approximately 1704067200000
	ts := NowMs()
	if ts < 1704067200000 {
		t.Errorf("NowMs() returned %d, expected timestamp after 2024", ts)
	}
}

func TestBlake3Hash_Deterministic(t *testing.T) {
	data := []byte("export class AppModule { }\n")

	hash1 := Blake3HashHex(data)
	hash2 := Blake3HashHex(data)
	if hash1 != hash2 {
		t.Errorf("same input hashed differently: %s vs %s", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hash1))
	}
	if len(Blake3Hash(data)) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(Blake3Hash(data)))
	}
}

func TestSameContent(t *testing.T) {
	if !SameContent([]byte("a"), []byte("a")) {
		t.Error("identical content should match")
	}
	if SameContent([]byte("a"), []byte("a\n")) {
		t.Error("different content should not match")
	}
	if !SameContent(nil, []byte{}) {
		t.Error("nil and empty should match")
	}
}

func TestShortDigest(t *testing.T) {
	digest := Blake3HashHex([]byte("x"))
	if got := ShortDigest(digest); got != digest[:12] {
		t.Errorf("expected %s, got %s", digest[:12], got)
	}
	if got := ShortDigest("abc"); got != "abc" {
		t.Errorf("short input should be returned as is, got %s", got)
	}
}
