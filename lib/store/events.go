package store

import "github.com/nodalmesh/kvstore/lib/kv"

// PublicationEventKind tags the variant carried on the Events channel,
// matching spec.md §6.3's "broadcast channel of KvStorePublication
// variants".
type PublicationEventKind int

const (
	EventKindPublication PublicationEventKind = iota
	EventKindInitialized
)

// PublicationEvent is one entry on the outbound broadcast channel: either
// a normal delta/expiry Publication, or the process-wide
// InitializationEvent(KVSTORE_SYNCED), emitted exactly once.
type PublicationEvent struct {
	Kind        PublicationEventKind
	Publication kv.Publication // valid only when Kind == EventKindPublication
}

// SyncEvent fires on every SYNCING->INITIALIZED transition, on its own
// channel per spec.md §6.3.
type SyncEvent struct {
	PeerName string
	Area     string
}

// broadcaster owns the two outbound channels of spec.md §6.3. Both are
// buffered plain Go channels, favoring stdlib concurrency primitives here
// since no pub/sub library is otherwise in play.
type broadcaster struct {
	publications chan PublicationEvent
	syncEvents   chan SyncEvent
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		publications: make(chan PublicationEvent, 1024),
		syncEvents:   make(chan SyncEvent, 256),
	}
}

// send is a non-blocking best-effort publish: a slow or absent consumer
// must never stall the area executor that produced the event.
func (b *broadcaster) send(evt PublicationEvent) {
	select {
	case b.publications <- evt:
	default:
	}
}

func (b *broadcaster) sendSyncEvent(evt SyncEvent) {
	select {
	case b.syncEvents <- evt:
	default:
	}
}

// Publications returns the read side of the outbound Publication/
// InitializationEvent channel.
func (b *broadcaster) Publications() <-chan PublicationEvent { return b.publications }

// SyncEvents returns the read side of the KvStoreSyncEvent channel.
func (b *broadcaster) SyncEvents() <-chan SyncEvent { return b.syncEvents }
