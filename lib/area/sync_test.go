package area

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
)

func TestComputeResponseMissingKeyScenario(t *testing.T) {
	// Spec scenario 3: A holds {k1}, B holds {k2}; B initiates full-sync
	// to A. A's response should send back k1 (B is missing it) and ask
	// for k2 (A is missing it).
	var s syncEngine

	aStore := map[string]kv.VersionedValue{
		"k1": kv.WithContentHash(kv.VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("1")}),
	}
	bHashes := s.localHashSet(map[string]kv.VersionedValue{
		"k2": kv.WithContentHash(kv.VersionedValue{Version: 1, OriginatorID: "B", Payload: []byte("2")}),
	})

	resp := s.computeResponse("1", kv.Filter{}, aStore, bHashes)

	if _, ok := resp.KeyVals["k1"]; !ok {
		t.Fatalf("expected k1 in key_vals, got %+v", resp.KeyVals)
	}
	if len(resp.ToBeUpdatedKeys) != 1 || resp.ToBeUpdatedKeys[0] != "k2" {
		t.Fatalf("expected tobe_updated_keys=[k2], got %v", resp.ToBeUpdatedKeys)
	}
}

func TestComputeResponseHigherVersionWins(t *testing.T) {
	var s syncEngine

	local := map[string]kv.VersionedValue{
		"k": kv.WithContentHash(kv.VersionedValue{Version: 2, OriginatorID: "A", Payload: []byte("new")}),
	}
	peerHashes := map[string]kv.VersionedValue{
		"k": {Version: 1, OriginatorID: "A"},
	}

	resp := s.computeResponse("1", kv.Filter{}, local, peerHashes)

	if _, ok := resp.KeyVals["k"]; !ok {
		t.Fatal("expected local's higher version to be sent")
	}
	if len(resp.ToBeUpdatedKeys) != 0 {
		t.Fatalf("expected no tobe_updated_keys, got %v", resp.ToBeUpdatedKeys)
	}
}

func TestComputeResponseLowerVersionAsksForUpdate(t *testing.T) {
	var s syncEngine

	local := map[string]kv.VersionedValue{
		"k": kv.WithContentHash(kv.VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("old")}),
	}
	peerHashes := map[string]kv.VersionedValue{
		"k": {Version: 2, OriginatorID: "A"},
	}

	resp := s.computeResponse("1", kv.Filter{}, local, peerHashes)

	if _, ok := resp.KeyVals["k"]; ok {
		t.Fatal("expected local's lower version to not be sent")
	}
	if len(resp.ToBeUpdatedKeys) != 1 || resp.ToBeUpdatedKeys[0] != "k" {
		t.Fatalf("expected tobe_updated_keys=[k], got %v", resp.ToBeUpdatedKeys)
	}
}

func TestComputeResponseEqualHashNoOp(t *testing.T) {
	var s syncEngine

	v := kv.WithContentHash(kv.VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("same")})
	local := map[string]kv.VersionedValue{"k": v}
	peerHashes := map[string]kv.VersionedValue{
		"k": {Version: 1, OriginatorID: "A", ContentHash: v.ContentHash},
	}

	resp := s.computeResponse("1", kv.Filter{}, local, peerHashes)

	if len(resp.KeyVals) != 0 || len(resp.ToBeUpdatedKeys) != 0 {
		t.Fatalf("expected no-op for identical records, got keyVals=%v tobeUpdated=%v", resp.KeyVals, resp.ToBeUpdatedKeys)
	}
}

func TestComputeResponseTTLVersionOnlyDifference(t *testing.T) {
	var s syncEngine

	v := kv.WithContentHash(kv.VersionedValue{Version: 1, OriginatorID: "A", Payload: []byte("same")})
	v.TTLVersion = 3
	local := map[string]kv.VersionedValue{"k": v}
	peerHashes := map[string]kv.VersionedValue{
		"k": {Version: 1, OriginatorID: "A", ContentHash: v.ContentHash, TTLVersion: 1},
	}

	resp := s.computeResponse("1", kv.Filter{}, local, peerHashes)

	if _, ok := resp.KeyVals["k"]; !ok {
		t.Fatal("expected higher ttl_version to be sent")
	}
}

func TestBuildFinalizeOmitsMissingKeys(t *testing.T) {
	var s syncEngine

	local := map[string]kv.VersionedValue{
		"k1": {Version: 1, OriginatorID: "A"},
	}

	pub := s.buildFinalize("1", local, []string{"k1", "k2"}, "A")

	if _, ok := pub.KeyVals["k1"]; !ok {
		t.Fatal("expected k1 in finalize")
	}
	if _, ok := pub.KeyVals["k2"]; ok {
		t.Fatal("expected k2 to be omitted (A doesn't have it)")
	}
	if pub.SenderID != "A" {
		t.Fatalf("expected sender_id=A, got %q", pub.SenderID)
	}
}
