package area

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
)

func TestTransitionTableMatchesSpec(t *testing.T) {
	cases := []struct {
		from  kv.PeerState
		event PeerEvent
		want  kv.PeerState
		ok    bool
	}{
		{kv.PeerIdle, EventPeerAdd, kv.PeerSyncing, true},
		{kv.PeerIdle, EventThriftAPIError, kv.PeerIdle, true},
		{kv.PeerIdle, EventSyncRespRcvd, kv.PeerIdle, false},
		{kv.PeerSyncing, EventSyncRespRcvd, kv.PeerInitialized, true},
		{kv.PeerSyncing, EventThriftAPIError, kv.PeerIdle, true},
		{kv.PeerSyncing, EventPeerAdd, kv.PeerIdle, false},
		{kv.PeerInitialized, EventSyncRespRcvd, kv.PeerInitialized, true},
		{kv.PeerInitialized, EventThriftAPIError, kv.PeerIdle, true},
		{kv.PeerInitialized, EventPeerAdd, kv.PeerIdle, false},
	}

	for _, c := range cases {
		got, ok := Transition(c.from, c.event)
		if got != c.want || ok != c.ok {
			t.Fatalf("Transition(%v, %v) = (%v, %v), want (%v, %v)", c.from, c.event, got, ok, c.want, c.ok)
		}
	}
}
