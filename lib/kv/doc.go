// Package kv implements the replicated key-value data model shared by
// every area of the store: the VersionedValue/Publication wire records,
// the MergeEngine conflict-resolution rule, the ingress filter chain and
// the TTL expiry queue.
//
// Everything in this package is pure and single-threaded by convention:
// none of it spawns goroutines or owns a lock. The caller (lib/area.Db)
// is responsible for only ever touching a KeyValueMap, Filter or TtlQueue
// from its own single executor goroutine.
package kv
