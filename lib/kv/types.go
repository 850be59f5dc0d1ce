package kv

import "sort"

// TTLInfinite is the sentinel meaning "never expire this value". It must
// never appear as an entry in a TtlQueue.
const TTLInfinite int64 = -1

// VersionedValue is the unit of replication described in spec §3. Payload
// is nil for a TTL-only refresh in transit; such a record must never be
// stored in a KeyValueMap (see KeyEntry's invariant).
type VersionedValue struct {
	Version      int64   `json:"version"`
	OriginatorID string  `json:"originator_id"`
	Payload      []byte  `json:"payload,omitempty"`
	TTLMs        int64   `json:"ttl_ms"`
	TTLVersion   int64   `json:"ttl_version"`
	ContentHash  *uint64 `json:"content_hash,omitempty"`
}

// HasPayload reports whether this record carries a value, as opposed to
// being a TTL-only refresh.
func (v VersionedValue) HasPayload() bool {
	return v.Payload != nil
}

// IsInfiniteTTL reports whether this value is exempt from expiry.
func (v VersionedValue) IsInfiniteTTL() bool {
	return v.TTLMs == TTLInfinite
}

// Clone returns a deep copy so callers can safely mutate TTL fields on a
// record about to leave the node (see DecrementTTL) without aliasing the
// in-map record.
func (v VersionedValue) Clone() VersionedValue {
	out := v
	if v.Payload != nil {
		out.Payload = append([]byte(nil), v.Payload...)
	}
	if v.ContentHash != nil {
		h := *v.ContentHash
		out.ContentHash = &h
	}
	return out
}

// compareTuple orders two VersionedValues by (version desc, originator_id
// lexicographic desc, payload lexicographic desc) as required by spec
// §4.1 step 4. It returns >0 if a wins, <0 if b wins, 0 if equal.
func compareTuple(a, b VersionedValue) int {
	if a.Version != b.Version {
		if a.Version > b.Version {
			return 1
		}
		return -1
	}
	if a.OriginatorID != b.OriginatorID {
		if a.OriginatorID > b.OriginatorID {
			return 1
		}
		return -1
	}
	pa, pb := string(a.Payload), string(b.Payload)
	if pa == pb {
		return 0
	}
	if pa > pb {
		return 1
	}
	return -1
}

// KeyEntry is a (key, VersionedValue) pair as stored in a KeyValueMap.
// Per spec §3 it must always have ttl_ms > 0 (or TTLInfinite), a present
// ContentHash, and a non-nil Payload.
type KeyEntry struct {
	Key   string
	Value VersionedValue
}

// Publication is the wire-level delta described in spec §3/§6.1: a set of
// updated key-values, a set of expired keys, the traversal path used for
// loop suppression, and (on the responder side of a full-sync) the set of
// keys the initiator should send back.
type Publication struct {
	Area             string
	KeyVals          map[string]VersionedValue
	ExpiredKeys      []string
	NodePath         []string
	TimestampMs      int64
	ToBeUpdatedKeys  []string
	SenderID         string
}

// IsEmpty reports whether a Publication carries no key_vals and no
// expired keys.
func (p Publication) IsEmpty() bool {
	return len(p.KeyVals) == 0 && len(p.ExpiredKeys) == 0
}

// ContainsNode reports whether node already appears in the publication's
// traversal path, i.e. whether flooding it further would create a loop.
func (p Publication) ContainsNode(node string) bool {
	for _, n := range p.NodePath {
		if n == node {
			return true
		}
	}
	return false
}

// SortedKeys returns the publication's key_vals keys in sorted order, used
// only for deterministic logging/test output.
func (p Publication) SortedKeys() []string {
	keys := make([]string, 0, len(p.KeyVals))
	for k := range p.KeyVals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PeerState is the PeerStateMachine's state, part of the PeerSpec wire
// record (spec §6.1).
type PeerState int

const (
	PeerIdle PeerState = iota
	PeerSyncing
	PeerInitialized
)

func (s PeerState) String() string {
	switch s {
	case PeerIdle:
		return "IDLE"
	case PeerSyncing:
		return "SYNCING"
	case PeerInitialized:
		return "INITIALIZED"
	default:
		return "UNKNOWN"
	}
}

// PeerSpec is the externally visible shape of a peer, exposed by
// get_peers() and carried in the wire format (spec §6.1).
type PeerSpec struct {
	PeerAddress string    `json:"peer_address"`
	ControlPort int32     `json:"control_port"`
	State       PeerState `json:"state"`
}
