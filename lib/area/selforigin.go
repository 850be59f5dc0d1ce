package area

import (
	"bytes"

	"github.com/nodalmesh/kvstore/lib/kv"
)

// selfOriginatedEntry is spec §3's SelfOriginatedEntry: the cached record
// backing persist/set/unset plus the two independent backoff clocks
// (batching a value change vs. batching a ttl-only refresh).
type selfOriginatedEntry struct {
	value       kv.VersionedValue
	keyBackoff  int64 // next instant, in ms, a batched value-advertise may fire
	ttlBackoff  int64 // next instant, in ms, a ttl-only refresh may fire
	pendingUnsetTombstone []byte // set by unset while throttled; cleared if a persist lands first
}

// selfOriginator owns the per-key cache described in spec §4.6. It never
// touches the KeyValueMap or PeerTable directly; Db calls into it and
// applies the returned advertise requests.
type selfOriginator struct {
	nodeName string
	keyTTLMs int64
	cache    map[string]*selfOriginatedEntry
}

func newSelfOriginator(nodeName string, keyTTLMs int64) *selfOriginator {
	return &selfOriginator{nodeName: nodeName, keyTTLMs: keyTTLMs, cache: map[string]*selfOriginatedEntry{}}
}

// advertiseRequest is what persist/set/unset/the ttl refresher hand back
// to Db: the record to merge-and-flood immediately, or nil if the op
// batched into backoff instead.
type advertiseRequest struct {
	Key   string
	Value kv.VersionedValue
}

// persist implements spec §4.6's persist(key, payload): idempotent
// "I assert this key is mine". current/currentOK is the map's existing
// record for key, if any.
func (s *selfOriginator) persist(nowMs int64, key string, payload []byte, current kv.VersionedValue, currentOK bool) *advertiseRequest {
	entry, cached := s.cache[key]

	if !cached {
		if currentOK {
			// Learned from a prior incarnation: adopt as base.
			entry = &selfOriginatedEntry{value: current}
			s.cache[key] = entry
			if current.OriginatorID != s.nodeName || !bytes.Equal(current.Payload, payload) {
				return s.bumpAndAdvertise(nowMs, key, entry, payload, true)
			}
			entry.value.TTLMs = s.keyTTLMs
			return nil
		}
		entry = &selfOriginatedEntry{value: kv.VersionedValue{
			Version:      1,
			OriginatorID: s.nodeName,
			Payload:      append([]byte(nil), payload...),
			TTLMs:        s.keyTTLMs,
		}}
		s.cache[key] = entry
		return &advertiseRequest{Key: key, Value: entry.value}
	}

	// A persist landing inside the unset-throttle window cancels the
	// pending tombstone, whether or not the payload changed.
	entry.pendingUnsetTombstone = nil
	if bytes.Equal(entry.value.Payload, payload) {
		// unchanged: TTL is still always refreshed.
		ttlChanged := entry.value.TTLMs != s.keyTTLMs
		entry.value.TTLMs = s.keyTTLMs
		if ttlChanged {
			entry.value.TTLVersion++
			return &advertiseRequest{Key: key, Value: entry.value}
		}
		return nil
	}

	return s.bumpAndAdvertise(nowMs, key, entry, payload, false)
}

func (s *selfOriginator) bumpAndAdvertise(nowMs int64, key string, entry *selfOriginatedEntry, payload []byte, forceOriginator bool) *advertiseRequest {
	entry.value.Version++
	entry.value.OriginatorID = s.nodeName
	entry.value.Payload = append([]byte(nil), payload...)
	entry.value.TTLMs = s.keyTTLMs
	entry.value.TTLVersion = 0
	entry.pendingUnsetTombstone = nil
	return &advertiseRequest{Key: key, Value: entry.value}
}

// set implements spec §4.6's forceful set(key, payload, version).
// version == 0 means "current + 1".
func (s *selfOriginator) set(key string, payload []byte, version int64) *advertiseRequest {
	entry, ok := s.cache[key]
	if !ok {
		entry = &selfOriginatedEntry{value: kv.VersionedValue{OriginatorID: s.nodeName, TTLMs: s.keyTTLMs}}
		s.cache[key] = entry
	}
	if version <= 0 {
		version = entry.value.Version + 1
	}
	entry.value.Version = version
	entry.value.OriginatorID = s.nodeName
	entry.value.Payload = append([]byte(nil), payload...)
	entry.value.TTLMs = s.keyTTLMs
	entry.value.TTLVersion = 0
	entry.pendingUnsetTombstone = nil
	return &advertiseRequest{Key: key, Value: entry.value}
}

// unset implements spec §4.6: authoritatively overwrite with
// tombstonePayload at current_version+1, then drop the cache entry. The
// throttle/persist-wins race is modeled by the caller batching this
// through a throttle timer and re-checking the cache before calling
// drainUnset; unset itself just records the pending tombstone.
func (s *selfOriginator) unset(key string, tombstonePayload []byte) {
	entry, ok := s.cache[key]
	if !ok {
		entry = &selfOriginatedEntry{value: kv.VersionedValue{OriginatorID: s.nodeName, TTLMs: s.keyTTLMs}}
		s.cache[key] = entry
	}
	entry.pendingUnsetTombstone = append([]byte(nil), tombstonePayload...)
}

// drainUnset fires at the end of the unset-throttle window. If a persist
// landed on this key since unset was called, pendingUnsetTombstone was
// cleared (by persist/set/bumpAndAdvertise) and the tombstone is skipped
// -- persist wins, per spec §4.6 and the Open Question decision in
// DESIGN.md. Otherwise the tombstone is advertised and the entry is
// dropped from the cache so the node stops refreshing it.
func (s *selfOriginator) drainUnset(key string) *advertiseRequest {
	entry, ok := s.cache[key]
	if !ok || entry.pendingUnsetTombstone == nil {
		return nil
	}

	tombstone := entry.pendingUnsetTombstone
	next := kv.VersionedValue{
		Version:      entry.value.Version + 1,
		OriginatorID: s.nodeName,
		Payload:      tombstone,
		TTLMs:        s.keyTTLMs,
	}
	delete(s.cache, key)
	return &advertiseRequest{Key: key, Value: next}
}

// erase drops key from the cache without advertising anything.
func (s *selfOriginator) erase(key string) {
	delete(s.cache, key)
}

// reconcile implements spec §4.6's "reconciliation on receipt": called
// whenever an incoming Publication touches a key this node has in its
// self-originator cache.
func (s *selfOriginator) reconcile(key string, incoming kv.VersionedValue) *advertiseRequest {
	entry, ok := s.cache[key]
	if !ok {
		return nil
	}

	switch {
	case incoming.Version < entry.value.Version:
		return nil
	case incoming.Version > entry.value.Version,
		incoming.Version == entry.value.Version && (incoming.OriginatorID != s.nodeName || !bytes.Equal(incoming.Payload, entry.value.Payload)):
		entry.value.Version = incoming.Version + 1
		entry.value.OriginatorID = s.nodeName
		entry.value.TTLMs = s.keyTTLMs
		entry.value.TTLVersion = 0
		return &advertiseRequest{Key: key, Value: entry.value}
	default:
		if incoming.TTLVersion > entry.value.TTLVersion {
			entry.value.TTLVersion = incoming.TTLVersion
		}
		return nil
	}
}

// ttlRefreshDue returns every cache entry whose ttlBackoff is <= nowMs, as
// value-less TTL-only advertise requests (spec §4.6's "TTL refresher").
func (s *selfOriginator) ttlRefreshDue(nowMs int64, intervalMs int64) []advertiseRequest {
	var out []advertiseRequest
	for key, entry := range s.cache {
		if entry.ttlBackoff > nowMs {
			continue
		}
		entry.value.TTLVersion++
		out = append(out, advertiseRequest{
			Key: key,
			Value: kv.VersionedValue{
				Version:      entry.value.Version,
				OriginatorID: entry.value.OriginatorID,
				TTLMs:        entry.value.TTLMs,
				TTLVersion:   entry.value.TTLVersion,
			},
		})
		entry.ttlBackoff = nowMs + intervalMs
	}
	return out
}
