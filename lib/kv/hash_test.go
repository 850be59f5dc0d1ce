package kv

import "testing"

func TestContentHashDeterministic(t *testing.T) {
	v := VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("x")}

	h1 := ContentHash(v)
	h2 := ContentHash(v)
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %d and %d", h1, h2)
	}

	other := v
	other.Payload = []byte("y")
	if ContentHash(other) == h1 {
		t.Fatal("expected different payload to produce a different hash")
	}
}

func TestWithContentHashFillsOnlyWhenAbsent(t *testing.T) {
	v := VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("x")}

	filled := WithContentHash(v)
	if filled.ContentHash == nil {
		t.Fatal("expected content hash to be filled")
	}

	var fixed uint64 = 42
	preset := v
	preset.ContentHash = &fixed
	unchanged := WithContentHash(preset)
	if *unchanged.ContentHash != 42 {
		t.Fatalf("expected pre-set hash to be preserved, got %d", *unchanged.ContentHash)
	}
}
