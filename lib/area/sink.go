package area

import "github.com/nodalmesh/kvstore/lib/kv"

// PeerSyncEvent fires on every SYNCING->INITIALIZED transition, carried on
// the separate KvStoreSyncEvent channel of spec §6.3.
type PeerSyncEvent struct {
	PeerName string
	Area     string
}

// EventSink is the outbound side of an AreaDb: every Publication it
// produces (flood delta, expiry) and every peer-sync/initialization
// signal is reported through this interface rather than a concrete
// channel type, so lib/store can own the actual broadcast channels and
// the cross-area InitializationBarrier aggregation without lib/area
// importing lib/store.
type EventSink interface {
	PublishDelta(pub kv.Publication)
	PublishSyncEvent(evt PeerSyncEvent)
	NotifyAreaInitialSyncCompleted(area string)
}

// NopSink discards every event; useful for tests that don't care about
// the outbound side.
type NopSink struct{}

func (NopSink) PublishDelta(kv.Publication)       {}
func (NopSink) PublishSyncEvent(PeerSyncEvent)    {}
func (NopSink) NotifyAreaInitialSyncCompleted(string) {}

var _ EventSink = NopSink{}
