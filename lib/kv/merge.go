package kv

// ChangeKind distinguishes a full value replacement from a TTL-only
// refresh, per spec §4.1.
type ChangeKind int

const (
	// ChangeNone means the incoming record was dropped; no change applies.
	ChangeNone ChangeKind = iota
	// ChangeValueUpdate replaces the stored record wholesale.
	ChangeValueUpdate
	// ChangeTTLUpdate overwrites only ttl_ms and ttl_version.
	ChangeTTLUpdate
)

// DropReason records why MergeOne rejected an incoming record, used only
// for telemetry (spec §7: FilterRejected is "silent, telemetry only").
type DropReason int

const (
	DropNone DropReason = iota
	DropFilterRejected
	DropInvalidTTL
	DropUnknownKeyNoPayload
	DropStale
)

func (r DropReason) String() string {
	switch r {
	case DropFilterRejected:
		return "filter-rejected"
	case DropInvalidTTL:
		return "invalid-ttl"
	case DropUnknownKeyNoPayload:
		return "unknown-key-no-payload"
	case DropStale:
		return "stale"
	default:
		return "none"
	}
}

// MergeResult is the outcome of reconciling one incoming record against
// the current map entry for its key.
type MergeResult struct {
	Kind     ChangeKind
	Value    VersionedValue // valid only if Kind != ChangeNone
	DropWhy  DropReason     // valid only if Kind == ChangeNone
}

// Accepted reports whether the incoming record produced a change the
// caller should apply to its KeyValueMap.
func (r MergeResult) Accepted() bool { return r.Kind != ChangeNone }

// MergeEngine is the pure conflict-resolution rule of spec §4.1. It never
// touches a KeyValueMap, TtlQueue or PeerTable directly -- callers apply
// its MergeResult atomically on the area executor.
type MergeEngine struct {
	// Filter is applied to every incoming record before conflict
	// resolution. A zero Filter matches everything.
	Filter Filter
}

// MergeOne reconciles one incoming (key, value) against the current
// record for that key (ok is false if the key is absent from the map).
func (m MergeEngine) MergeOne(key string, current VersionedValue, currentOK bool, incoming VersionedValue) MergeResult {
	// Step 1: ingress filter.
	if !m.Filter.Match(key, incoming.OriginatorID) {
		return MergeResult{DropWhy: DropFilterRejected}
	}

	// Step 2: ttl sanity.
	if !incoming.IsInfiniteTTL() && incoming.TTLMs <= 0 {
		return MergeResult{DropWhy: DropInvalidTTL}
	}

	// Step 3: unknown key.
	if !currentOK {
		if !incoming.HasPayload() {
			return MergeResult{DropWhy: DropUnknownKeyNoPayload}
		}
		return MergeResult{Kind: ChangeValueUpdate, Value: WithContentHash(incoming)}
	}

	// Step 5: TTL-only refresh. A value-less incoming record never carries
	// a payload to compare, so it is matched against current by
	// (version, originator_id) alone rather than the full tuple compare --
	// otherwise an empty payload would always lose to current's real one.
	if !incoming.HasPayload() {
		if incoming.Version == current.Version && incoming.OriginatorID == current.OriginatorID && incoming.TTLVersion > current.TTLVersion {
			updated := current
			updated.TTLMs = incoming.TTLMs
			updated.TTLVersion = incoming.TTLVersion
			return MergeResult{Kind: ChangeTTLUpdate, Value: updated}
		}
		return MergeResult{DropWhy: DropStale}
	}

	// Step 4: tuple comparison against the current record. MergeOne only
	// ever compares full records: the full-sync responder compares against
	// the peer's hash-only records itself (area's computeResponse) and
	// never passes them here.
	cmp := compareTuple(incoming, current)
	switch {
	case cmp > 0:
		return MergeResult{Kind: ChangeValueUpdate, Value: WithContentHash(incoming)}
	case cmp == 0 && incoming.TTLVersion > current.TTLVersion:
		updated := current
		updated.TTLMs = incoming.TTLMs
		updated.TTLVersion = incoming.TTLVersion
		return MergeResult{Kind: ChangeTTLUpdate, Value: updated}
	default:
		return MergeResult{DropWhy: DropStale}
	}
}

// DeltaBuilder accumulates MergeOne results into a Publication, used by
// ingress paths (flood receipt, full-sync finalize, RPC set()) that need
// to report what actually changed.
type DeltaBuilder struct {
	Area    string
	KeyVals map[string]VersionedValue
}

// NewDeltaBuilder creates an empty builder scoped to area.
func NewDeltaBuilder(area string) *DeltaBuilder {
	return &DeltaBuilder{Area: area, KeyVals: map[string]VersionedValue{}}
}

// Add records an accepted change for key.
func (d *DeltaBuilder) Add(key string, value VersionedValue) {
	d.KeyVals[key] = value
}

// Publication returns the accumulated delta as a Publication ready for
// flooding or for returning to an RPC caller.
func (d *DeltaBuilder) Publication() Publication {
	return Publication{
		Area:    d.Area,
		KeyVals: d.KeyVals,
	}
}

// Empty reports whether no changes were accumulated.
func (d *DeltaBuilder) Empty() bool {
	return len(d.KeyVals) == 0
}
