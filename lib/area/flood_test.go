package area

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
)

func TestSelectTargetsExcludesDirectSender(t *testing.T) {
	table := NewPeerTable(testPolicy())
	table.Add("B", kv.PeerSpec{State: kv.PeerInitialized}, peerclient.NewMockClient())
	b, _ := table.Get("B")
	b.Spec.State = kv.PeerInitialized
	table.Add("C", kv.PeerSpec{State: kv.PeerInitialized}, peerclient.NewMockClient())
	c, _ := table.Get("C")
	c.Spec.State = kv.PeerInitialized

	pub := kv.Publication{KeyVals: map[string]kv.VersionedValue{"k": {}}}
	_, targets := selectTargets("A", "B", pub, table)

	if len(targets) != 1 || targets[0].PeerName != "C" {
		t.Fatalf("expected only C as a target, got %+v", targets)
	}
}

func TestSelectTargetsQueuesNonInitializedPeers(t *testing.T) {
	table := NewPeerTable(testPolicy())
	table.Add("B", kv.PeerSpec{}, peerclient.NewMockClient()) // stays IDLE

	pub := kv.Publication{KeyVals: map[string]kv.VersionedValue{"k": {}}}
	_, targets := selectTargets("A", "", pub, table)

	if len(targets) != 0 {
		t.Fatalf("expected no targets for a non-initialized peer, got %+v", targets)
	}
	b, _ := table.Get("B")
	if _, queued := b.PendingKeysDuringInitialization["k"]; !queued {
		t.Fatal("expected k to be queued for B")
	}
}

func TestSelectTargetsAppendsLocalNodeToPath(t *testing.T) {
	table := NewPeerTable(testPolicy())
	pub := kv.Publication{NodePath: []string{"X"}}

	out, _ := selectTargets("A", "", pub, table)

	if len(out.NodePath) != 2 || out.NodePath[0] != "X" || out.NodePath[1] != "A" {
		t.Fatalf("expected node_path [X A], got %v", out.NodePath)
	}
}

func TestFlooderUnlimitedAlwaysAllows(t *testing.T) {
	f := newFlooder(0, 0)
	for i := 0; i < 100; i++ {
		if !f.allow() {
			t.Fatal("expected unlimited flooder to always allow")
		}
	}
}

func TestFlooderCoalesceDrain(t *testing.T) {
	f := newFlooder(1, 1)
	f.coalesce([]string{"a", "b"})
	f.coalesce([]string{"b", "c"})

	drained := f.drainCoalesced()
	if len(drained) != 3 {
		t.Fatalf("expected 3 deduped keys, got %v", drained)
	}
	if len(f.drainCoalesced()) != 0 {
		t.Fatal("expected buffer to be empty after drain")
	}
}
