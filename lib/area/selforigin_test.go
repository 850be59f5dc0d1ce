package area

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
)

func TestSelfOriginatorPersistNewKey(t *testing.T) {
	s := newSelfOriginator("A", 10000)

	adv := s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)
	if adv == nil || adv.Value.Version != 1 || adv.Value.OriginatorID != "A" {
		t.Fatalf("expected fresh version-1 advertise, got %+v", adv)
	}
}

func TestSelfOriginatorPersistUnchangedIsNoOp(t *testing.T) {
	s := newSelfOriginator("A", 10000)
	s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)

	adv := s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)
	if adv != nil {
		t.Fatalf("expected no-op for unchanged persist, got %+v", adv)
	}
}

func TestSelfOriginatorPersistThenUnsetThrottleWindow(t *testing.T) {
	// Open question from spec §9: persist wins if it lands before the
	// unset throttle drains.
	s := newSelfOriginator("A", 10000)
	s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)
	s.unset("k", []byte("tombstone"))

	// A persist after unset but before drain clears the pending tombstone.
	s.persist(0, "k", []byte("v2"), kv.VersionedValue{}, false)

	adv := s.drainUnset("k")
	if adv != nil {
		t.Fatalf("expected persist-after-unset to cancel the tombstone, got %+v", adv)
	}
}

func TestSelfOriginatorUnsetThenNoFurtherPersistDrainsTombstone(t *testing.T) {
	s := newSelfOriginator("A", 10000)
	s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)
	s.unset("k", []byte("tombstone"))

	adv := s.drainUnset("k")
	if adv == nil {
		t.Fatal("expected tombstone to drain when no persist intervened")
	}
	if string(adv.Value.Payload) != "tombstone" {
		t.Fatalf("expected tombstone payload, got %q", adv.Value.Payload)
	}
	if _, stillCached := s.cache["k"]; stillCached {
		t.Fatal("expected cache entry to be dropped after unset drains")
	}
}

func TestSelfOriginatorReconcileHigherIncomingVersionReasserts(t *testing.T) {
	s := newSelfOriginator("A", 10000)
	s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)

	adv := s.reconcile("k", kv.VersionedValue{Version: 5, OriginatorID: "B", Payload: []byte("stolen")})
	if adv == nil || adv.Value.Version != 6 || adv.Value.OriginatorID != "A" {
		t.Fatalf("expected reassert at version 6 as self, got %+v", adv)
	}
}

func TestSelfOriginatorReconcileLowerIncomingVersionIgnored(t *testing.T) {
	s := newSelfOriginator("A", 10000)
	s.persist(0, "k", []byte("v"), kv.VersionedValue{}, false)
	s.cache["k"].value.Version = 5

	adv := s.reconcile("k", kv.VersionedValue{Version: 1, OriginatorID: "B"})
	if adv != nil {
		t.Fatalf("expected stale incoming version to be ignored, got %+v", adv)
	}
}
