package kv

import "testing"

func TestTtlQueuePopExpiredOrdering(t *testing.T) {
	q := NewTtlQueue()
	q.Push(1000, "c", VersionedValue{Version: 1, TTLMs: 300}) // expires 1300
	q.Push(1000, "a", VersionedValue{Version: 1, TTLMs: 100}) // expires 1100
	q.Push(1000, "b", VersionedValue{Version: 1, TTLMs: 200}) // expires 1200

	if n := q.Len(); n != 3 {
		t.Fatalf("expected len 3, got %d", n)
	}

	expiry, ok := q.PeekExpiry()
	if !ok || expiry != 1100 {
		t.Fatalf("expected earliest expiry 1100, got %d ok=%v", expiry, ok)
	}

	expired := q.PopExpired(1150)
	if len(expired) != 1 || expired[0].Key != "a" {
		t.Fatalf("expected only 'a' to expire at 1150, got %+v", expired)
	}

	expired = q.PopExpired(1300)
	if len(expired) != 2 || expired[0].Key != "b" || expired[1].Key != "c" {
		t.Fatalf("expected 'b' then 'c' to expire, got %+v", expired)
	}

	if q.Len() != 0 {
		t.Fatalf("expected queue to be drained, len=%d", q.Len())
	}
}

func TestTtlQueuePopExpiredNoneReady(t *testing.T) {
	q := NewTtlQueue()
	q.Push(1000, "a", VersionedValue{Version: 1, TTLMs: 500})

	if expired := q.PopExpired(1000); len(expired) != 0 {
		t.Fatalf("expected nothing expired yet, got %+v", expired)
	}
}

func TestTtlQueueEntryIsLive(t *testing.T) {
	current := VersionedValue{Version: 2, OriginatorID: "A", TTLVersion: 1}

	entry := TtlQueueEntry{Version: 2, OriginatorID: "A", TTLVersion: 1}
	if !entry.IsLive(current, true) {
		t.Fatal("expected entry to be live against matching record")
	}

	if entry.IsLive(current, false) {
		t.Fatal("entry must not be live when key is absent")
	}

	stale := TtlQueueEntry{Version: 1, OriginatorID: "A", TTLVersion: 1}
	if stale.IsLive(current, true) {
		t.Fatal("entry from a superseded version must not be live")
	}

	staleTTL := TtlQueueEntry{Version: 2, OriginatorID: "A", TTLVersion: 0}
	if staleTTL.IsLive(current, true) {
		t.Fatal("entry from a superseded ttl_version must not be live")
	}
}
