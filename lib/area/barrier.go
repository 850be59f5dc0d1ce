package area

import "github.com/nodalmesh/kvstore/lib/kv"

// areaBarrier tracks spec §4.7's per-area initial_sync_completed flag: it
// becomes true once every peer in the table has either reached
// INITIALIZED or recorded at least one THRIFT_API_ERROR, or immediately
// if the area has zero peers and at least one peer-event has been
// observed.
type areaBarrier struct {
	completed    bool
	sawPeerEvent bool
}

// evaluate recomputes completed from the current peer table and reports
// whether it just became true (edge-triggered, so the caller notifies the
// sink at most once per area).
func (b *areaBarrier) evaluate(table *PeerTable) (justCompleted bool) {
	if b.completed {
		return false
	}

	if table.Len() == 0 {
		if b.sawPeerEvent {
			b.completed = true
			return true
		}
		return false
	}

	allResolved := true
	table.Range(func(_ string, rec *PeerRecord) {
		resolved := rec.Spec.State == kv.PeerInitialized || rec.ThriftAPIErrorCount > 0
		if !resolved {
			allResolved = false
		}
	})

	if allResolved {
		b.completed = true
		return true
	}
	return false
}

// observePeerEvent records that at least one peer_add/peer_del has been
// processed, needed for the zero-peer immediate-completion rule.
func (b *areaBarrier) observePeerEvent() {
	b.sawPeerEvent = true
}

// Completed reports the current value of initial_sync_completed.
func (b *areaBarrier) Completed() bool { return b.completed }
