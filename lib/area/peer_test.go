package area

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
)

func testPolicy() BackoffPolicy {
	return BackoffPolicy{InitialMs: 100, MaxMs: 1600}
}

func TestPeerTableAddCreatesIdlePeer(t *testing.T) {
	table := NewPeerTable(testPolicy())
	rec, isNew := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1", ControlPort: 9}, peerclient.NewMockClient())

	if !isNew {
		t.Fatal("expected first add to report new")
	}
	if rec.Spec.State != kv.PeerIdle {
		t.Fatalf("expected new peer to start IDLE, got %v", rec.Spec.State)
	}
}

func TestPeerTableAddSameAddressKeepsState(t *testing.T) {
	table := NewPeerTable(testPolicy())
	client := peerclient.NewMockClient()
	rec, _ := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1", ControlPort: 9}, client)
	rec.apply(EventPeerAdd, 0)
	rec.apply(EventSyncRespRcvd, 0)

	again, isNew := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1", ControlPort: 9}, client)
	if isNew {
		t.Fatal("expected re-add at the same address to not be reported as new")
	}
	if again.Spec.State != kv.PeerInitialized {
		t.Fatalf("expected state to be preserved across re-add, got %v", again.Spec.State)
	}
}

func TestPeerTableAddChangedAddressResets(t *testing.T) {
	table := NewPeerTable(testPolicy())
	client := peerclient.NewMockClient()
	rec, _ := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1", ControlPort: 9}, client)
	rec.apply(EventPeerAdd, 0)
	rec.apply(EventSyncRespRcvd, 0)

	changed, isNew := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.2", ControlPort: 9}, client)
	if !isNew {
		t.Fatal("expected changed control address to be reported as new/changed")
	}
	if changed.Spec.State != kv.PeerIdle {
		t.Fatalf("expected reset to IDLE on address change, got %v", changed.Spec.State)
	}
}

func TestPeerTableDel(t *testing.T) {
	table := NewPeerTable(testPolicy())
	table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1"}, peerclient.NewMockClient())
	table.Del("B")

	if _, ok := table.Get("B"); ok {
		t.Fatal("expected peer to be gone after Del")
	}
}

func TestPeerRecordBackoffAdvancesOnError(t *testing.T) {
	table := NewPeerTable(testPolicy())
	rec, _ := table.Add("B", kv.PeerSpec{PeerAddress: "10.0.0.1"}, peerclient.NewMockClient())
	rec.apply(EventPeerAdd, 0)

	rec.apply(EventThriftAPIError, 1000)
	if rec.Spec.State != kv.PeerIdle {
		t.Fatalf("expected IDLE after error, got %v", rec.Spec.State)
	}
	if rec.ThriftAPIErrorCount != 1 {
		t.Fatalf("expected error count 1, got %d", rec.ThriftAPIErrorCount)
	}
	remaining, ok := table.MinTimeRemainingUntilRetry(1000)
	if !ok || remaining <= 0 {
		t.Fatalf("expected a positive backoff window, got %d ok=%v", remaining, ok)
	}
}

func TestPeerRecordPendingKeyQueueDrains(t *testing.T) {
	rec := newPeerRecord("B", kv.PeerSpec{}, nil, testPolicy())
	rec.QueuePendingKey("k1")
	rec.QueuePendingKey("k2")

	drained := rec.DrainPendingKeys()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained keys, got %d", len(drained))
	}
	if len(rec.PendingKeysDuringInitialization) != 0 {
		t.Fatal("expected pending set to be cleared after drain")
	}
}
