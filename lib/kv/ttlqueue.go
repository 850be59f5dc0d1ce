package kv

import "container/heap"

// TtlQueueEntry is one pending expiration, per spec §3. An entry is live
// iff the KeyValueMap still holds a record with the same
// (key, version, originator_id, ttl_version); TtlQueue itself doesn't
// know about the map, so liveness is checked by the caller (area.Db's
// eviction loop) via IsLive.
type TtlQueueEntry struct {
	ExpiryAtMs   int64
	Key          string
	Version      int64
	OriginatorID string
	TTLVersion   int64
}

// IsLive reports whether this entry still corresponds to the live record
// for its key, given the record currently in the map (ok is false if the
// key is absent).
func (e TtlQueueEntry) IsLive(current VersionedValue, ok bool) bool {
	return ok &&
		current.Version == e.Version &&
		current.OriginatorID == e.OriginatorID &&
		current.TTLVersion == e.TTLVersion
}

// ttlHeap is the container/heap.Interface implementation backing TtlQueue.
// Structurally this is a min-heap-over-a-slice, but without a key->item
// secondary index: per spec §4.2 a TtlQueueEntry is "never updated in
// place", so there is nothing to look up and update by key -- stale
// entries are simply left in the heap and discarded when they reach the
// head.
type ttlHeap []*TtlQueueEntry

func (h ttlHeap) Len() int            { return len(h) }
func (h ttlHeap) Less(i, j int) bool  { return h[i].ExpiryAtMs < h[j].ExpiryAtMs }
func (h ttlHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *ttlHeap) Push(x interface{}) { *h = append(*h, x.(*TtlQueueEntry)) }
func (h *ttlHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TtlQueue is the min-heap of pending expirations described in spec §4.2.
type TtlQueue struct {
	h ttlHeap
}

// NewTtlQueue creates an empty queue.
func NewTtlQueue() *TtlQueue {
	q := &TtlQueue{h: ttlHeap{}}
	heap.Init(&q.h)
	return q
}

// Len returns the number of entries currently queued, live or stale.
func (q *TtlQueue) Len() int { return q.h.Len() }

// Push enqueues a fresh expiration entry. nowMs + ttlMs becomes the
// expiry instant; callers must not call Push for an INFINITE ttl value
// (spec §4.2: "no TtlQueue entry is created").
func (q *TtlQueue) Push(nowMs int64, key string, value VersionedValue) {
	heap.Push(&q.h, &TtlQueueEntry{
		ExpiryAtMs:   nowMs + value.TTLMs,
		Key:          key,
		Version:      value.Version,
		OriginatorID: value.OriginatorID,
		TTLVersion:   value.TTLVersion,
	})
}

// PeekExpiry returns the expiry instant of the earliest-expiring entry.
// area.Db's eviction loop does not use it: it calls PopExpired on a fixed
// 200ms tick.
func (q *TtlQueue) PeekExpiry() (int64, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].ExpiryAtMs, true
}

// PopExpired removes and returns every entry whose expiry instant is at
// or before nowMs, oldest first. Liveness is NOT checked here; the caller
// must consult IsLive against its map before acting on an entry.
func (q *TtlQueue) PopExpired(nowMs int64) []TtlQueueEntry {
	var out []TtlQueueEntry
	for q.h.Len() > 0 && q.h[0].ExpiryAtMs <= nowMs {
		entry := heap.Pop(&q.h).(*TtlQueueEntry)
		out = append(out, *entry)
	}
	return out
}
