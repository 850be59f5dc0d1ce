// Package store hosts the per-process collection of gossip key-value
// areas and exposes the RpcSurface that rpc/server dispatches onto.
//
// A Store owns one area.Db per configured area name and routes every
// RpcSurface call (Get, DumpFiltered, DumpHashes, Set, GetPeers, AddPeers,
// DelPeers, GetAreaSummary) to the right Db via lookup. The legacy wildcard
// area "0" resolves to the sole configured area when exactly one is
// configured, matching the RPC-boundary fallback the original KvStore
// client libraries relied on.
//
// Key components:
//
//   - Store: the top-level type, holding an area-name-keyed map of *area.Db
//     plus a broadcaster, which carries the outbound publication and sync
//     events, and a processBarrier, which turns every area's completed
//     initial sync into one KVSTORE_SYNCED event.
//   - ErrorKind: a small typed-error taxonomy (invalid area, invalid
//     payload, peer transport error, stale response, filter rejected, loop
//     detected) that RpcSurface methods return instead of opaque errors, so
//     callers can branch on failure kind.
//
// This package has no storage-backend pluggability; unlike a Raft-backed
// KV store, each area.Db is purely in-memory and gossip-replicated, so
// there is exactly one implementation to reason about.
package store
