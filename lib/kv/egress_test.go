package kv

import "testing"

func TestDecrementTTLDropsExpiredEntries(t *testing.T) {
	pub := Publication{
		Area: "1",
		KeyVals: map[string]VersionedValue{
			"survives": {Version: 1, TTLMs: 5000},
			"dies":     {Version: 1, TTLMs: 100},
		},
	}

	out := DecrementTTL(pub, 100)

	if _, ok := out.KeyVals["dies"]; ok {
		t.Fatal("expected 'dies' to be dropped once its ttl reaches zero")
	}
	v, ok := out.KeyVals["survives"]
	if !ok || v.TTLMs != 4900 {
		t.Fatalf("expected 'survives' with ttl 4900, got %+v ok=%v", v, ok)
	}
}

func TestDecrementTTLLeavesInfiniteUntouched(t *testing.T) {
	pub := Publication{
		Area: "1",
		KeyVals: map[string]VersionedValue{
			"forever": {Version: 1, TTLMs: TTLInfinite},
		},
	}

	out := DecrementTTL(pub, 500)

	v, ok := out.KeyVals["forever"]
	if !ok || v.TTLMs != TTLInfinite {
		t.Fatalf("expected infinite ttl to pass through unchanged, got %+v ok=%v", v, ok)
	}
}

func TestDecrementTTLEmptyPublication(t *testing.T) {
	out := DecrementTTL(Publication{Area: "1"}, 100)
	if len(out.KeyVals) != 0 {
		t.Fatalf("expected empty publication to stay empty, got %+v", out)
	}
}
