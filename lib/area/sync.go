package area

import "github.com/nodalmesh/kvstore/lib/kv"

// syncEngine holds the pure, stateless computations of spec §4.4's
// 3-way full-sync; the stateful orchestration (dispatching the RPC,
// hopping back onto the executor, driving the PeerStateMachine) lives on
// Db in db.go, which is the only thing that owns a client connection or a
// PeerTable.
type syncEngine struct{}

// localHashSet reduces a KeyValueMap to the hash-only record spec §4.4
// sends as dump_filtered's key_val_hashes: version, originator_id,
// ttl_version and content_hash, with payload always absent.
func (syncEngine) localHashSet(store map[string]kv.VersionedValue) map[string]kv.VersionedValue {
	out := make(map[string]kv.VersionedValue, len(store))
	for k, v := range store {
		out[k] = kv.VersionedValue{
			Version:      v.Version,
			OriginatorID: v.OriginatorID,
			TTLVersion:   v.TTLVersion,
			ContentHash:  v.ContentHash,
		}
	}
	return out
}

// computeResponse is the B side of spec §4.4 step 2: given this node's
// own store, the request's filter (applied here to the local records) and
// the initiator's hash-only set, decide what to send back and what to ask
// for.
//
// The tuple comparison (version desc, originator_id desc) needs no
// payload and is applied directly against the peer's hash record. When
// version and originator_id both match but content_hash differs -- the
// peer holds a different payload at the same (version, originator_id),
// which the hash comparison constraint of spec §4.4 ("Hash comparison
// MUST be of content_hash only") does not let this side resolve without
// the real bytes -- the record is sent both ways (included in key_vals
// and tobe_updated_keys) so each side's own MergeEngine settles it once
// it holds both payloads; MergeEngine's monotone tiebreak makes this
// double-send harmless.
func (syncEngine) computeResponse(area string, filter kv.Filter, local map[string]kv.VersionedValue, peerHashes map[string]kv.VersionedValue) kv.Publication {
	keyVals := map[string]kv.VersionedValue{}
	var tobeUpdated []string

	for key, v := range local {
		if !filter.Match(key, v.OriginatorID) {
			continue
		}
		ref, known := peerHashes[key]
		if !known {
			keyVals[key] = v
			continue
		}

		switch {
		case v.Version != ref.Version:
			if v.Version > ref.Version {
				keyVals[key] = v
			} else {
				tobeUpdated = append(tobeUpdated, key)
			}
		case v.OriginatorID != ref.OriginatorID:
			if v.OriginatorID > ref.OriginatorID {
				keyVals[key] = v
			} else {
				tobeUpdated = append(tobeUpdated, key)
			}
		default:
			sameHash := v.ContentHash != nil && ref.ContentHash != nil && *v.ContentHash == *ref.ContentHash
			switch {
			case sameHash && v.TTLVersion > ref.TTLVersion:
				keyVals[key] = v
			case sameHash && v.TTLVersion < ref.TTLVersion:
				tobeUpdated = append(tobeUpdated, key)
			case sameHash:
				// Equal in every field already known to both sides.
			default:
				keyVals[key] = v
				tobeUpdated = append(tobeUpdated, key)
			}
		}
	}

	for key := range peerHashes {
		if _, present := local[key]; !present {
			tobeUpdated = append(tobeUpdated, key)
		}
	}

	return kv.Publication{Area: area, KeyVals: keyVals, ToBeUpdatedKeys: tobeUpdated}
}

// buildFinalize is the A side of spec §4.4 step 3: look up every key B
// asked for in A's (now-merged) store and ship whatever A actually has.
// A key B asked for that A doesn't have (e.g. raced a delete) is simply
// omitted.
func (syncEngine) buildFinalize(area string, local map[string]kv.VersionedValue, toBeUpdatedKeys []string, senderID string) kv.Publication {
	keyVals := map[string]kv.VersionedValue{}
	for _, key := range toBeUpdatedKeys {
		if v, ok := local[key]; ok {
			keyVals[key] = v
		}
	}
	return kv.Publication{Area: area, KeyVals: keyVals, SenderID: senderID}
}
