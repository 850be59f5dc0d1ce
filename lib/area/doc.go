// Package area implements one AreaDb: the per-area owner of the
// KeyValueMap, PeerTable, TtlQueue, PeerStateMachine, SyncEngine,
// Flooder, SelfOriginator and InitializationBarrier described in the
// system overview. Every exported Db method hops onto a single internal
// executor goroutine before touching any of that state, so none of it
// needs locking -- the only suspension points are the ones enumerated in
// the concurrency model: outgoing RPC send/completion and timer fire.
package area
