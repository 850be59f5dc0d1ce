package store

import (
	"testing"
	"time"

	"github.com/nodalmesh/kvstore/lib/area"
	"github.com/nodalmesh/kvstore/lib/kv"
)

func newTestStore(t *testing.T, nodeName string, areas ...string) *Store {
	t.Helper()
	cfgs := make([]area.Config, 0, len(areas))
	for _, a := range areas {
		cfg := area.DefaultConfig(a, nodeName)
		cfg.KeyTTLMs = 10000
		cfgs = append(cfgs, cfg)
	}
	s := New(nodeName, cfgs)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestStoreSetGetRoutesToConfiguredArea(t *testing.T) {
	s := newTestStore(t, "node1", "1", "2")

	pub := kv.Publication{
		Area: "1",
		KeyVals: map[string]kv.VersionedValue{
			"prefix:a": {Version: 1, OriginatorID: "node1", Payload: []byte("v1"), TTLMs: -1},
		},
	}
	if err := s.Set("1", pub, ""); err != nil {
		t.Fatalf("Set area 1: %v", err)
	}

	got, err := s.Get("1", []string{"prefix:a"})
	if err != nil {
		t.Fatalf("Get area 1: %v", err)
	}
	if _, ok := got.KeyVals["prefix:a"]; !ok {
		t.Fatalf("expected prefix:a in area 1, got %+v", got.KeyVals)
	}

	got2, err := s.Get("2", []string{"prefix:a"})
	if err != nil {
		t.Fatalf("Get area 2: %v", err)
	}
	if len(got2.KeyVals) != 0 {
		t.Fatalf("expected area 2 unaffected by area 1's Set, got %+v", got2.KeyVals)
	}
}

func TestStoreGetUnconfiguredAreaErrors(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	if _, err := s.Get("99", []string{"x"}); err == nil {
		t.Fatal("expected error for unconfigured area")
	}
}

func TestStoreWildcardAreaResolvesWhenSingleAreaConfigured(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	pub := kv.Publication{
		Area: "1",
		KeyVals: map[string]kv.VersionedValue{
			"k": {Version: 1, OriginatorID: "node1", Payload: []byte("v"), TTLMs: -1},
		},
	}
	if err := s.Set("0", pub, ""); err != nil {
		t.Fatalf("Set via wildcard area: %v", err)
	}

	got, err := s.Get("0", []string{"k"})
	if err != nil {
		t.Fatalf("Get via wildcard area: %v", err)
	}
	if _, ok := got.KeyVals["k"]; !ok {
		t.Fatalf("expected k resolved through wildcard area, got %+v", got.KeyVals)
	}
}

func TestStoreWildcardAreaRejectedWithMultipleAreasConfigured(t *testing.T) {
	s := newTestStore(t, "node1", "1", "2")

	if _, err := s.Get("0", []string{"k"}); err == nil {
		t.Fatal("expected wildcard area lookup to fail with more than one configured area")
	}
}

func TestStoreAddPeersRejectsEmptyMap(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	if err := s.AddPeers("1", map[string]kv.PeerSpec{}); err == nil {
		t.Fatal("expected error for empty peer map")
	}
}

func TestStoreDelPeersRejectsEmptyList(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	if err := s.DelPeers("1", nil); err == nil {
		t.Fatal("expected error for empty peer name list")
	}
}

func TestStoreAddPeersThenGetPeers(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	err := s.AddPeers("1", map[string]kv.PeerSpec{
		"peerA": {PeerAddress: "10.0.0.1:1234"},
	})
	if err != nil {
		t.Fatalf("AddPeers: %v", err)
	}

	peers, err := s.GetPeers("1")
	if err != nil {
		t.Fatalf("GetPeers: %v", err)
	}
	if _, ok := peers["peerA"]; !ok {
		t.Fatalf("expected peerA present, got %+v", peers)
	}
}

func TestStoreGetAreaSummaryAllAreas(t *testing.T) {
	s := newTestStore(t, "node1", "1", "2")

	pub := kv.Publication{
		Area: "1",
		KeyVals: map[string]kv.VersionedValue{
			"k": {Version: 1, OriginatorID: "node1", Payload: []byte("v"), TTLMs: -1},
		},
	}
	if err := s.Set("1", pub, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}

	summaries, err := s.GetAreaSummary(nil)
	if err != nil {
		t.Fatalf("GetAreaSummary: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 area summaries, got %d", len(summaries))
	}

	found := false
	for _, sum := range summaries {
		if sum.Area == "1" && sum.KeyCount == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected area 1 summary with 1 key, got %+v", summaries)
	}
}

func TestStoreBarrierFiresOnlyAfterAllAreasComplete(t *testing.T) {
	s := newTestStore(t, "node1", "1", "2")

	s.NotifyAreaInitialSyncCompleted("1")
	select {
	case evt := <-s.Publications():
		t.Fatalf("expected no KVSTORE_SYNCED with one area still pending, got %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}

	s.NotifyAreaInitialSyncCompleted("2")
	select {
	case evt := <-s.Publications():
		if evt.Kind != EventKindInitialized {
			t.Fatalf("expected EventKindInitialized, got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected KVSTORE_SYNCED after all areas completed")
	}

	// Idempotent: re-notifying must not fire a second event.
	s.NotifyAreaInitialSyncCompleted("2")
	select {
	case evt := <-s.Publications():
		t.Fatalf("expected no second KVSTORE_SYNCED, got %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}

// A zero-peer area only completes its barrier once it has observed at
// least one peer-event (spec.md §4.7: "considered completed immediately
// on first peer-event receipt"), so adding then removing a peer is what
// triggers KVSTORE_SYNCED here, not Start alone.
func TestStoreSingleAreaZeroPeersFiresBarrierAfterFirstPeerEvent(t *testing.T) {
	s := newTestStore(t, "node1", "1")

	if err := s.AddPeers("1", map[string]kv.PeerSpec{"peerA": {PeerAddress: "10.0.0.1:1"}}); err != nil {
		t.Fatalf("AddPeers: %v", err)
	}
	if err := s.DelPeers("1", []string{"peerA"}); err != nil {
		t.Fatalf("DelPeers: %v", err)
	}

	select {
	case evt := <-s.Publications():
		if evt.Kind != EventKindInitialized {
			t.Fatalf("expected EventKindInitialized, got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected KVSTORE_SYNCED once the area returns to zero peers after a peer-event")
	}
}
