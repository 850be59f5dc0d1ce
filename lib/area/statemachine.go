package area

import "github.com/nodalmesh/kvstore/lib/kv"

// PeerEvent drives a PeerRecord through the PeerStateMachine (spec §4.3).
type PeerEvent int

const (
	EventPeerAdd PeerEvent = iota
	EventSyncRespRcvd
	EventThriftAPIError
)

func (e PeerEvent) String() string {
	switch e {
	case EventPeerAdd:
		return "PEER_ADD"
	case EventSyncRespRcvd:
		return "SYNC_RESP_RCVD"
	case EventThriftAPIError:
		return "THRIFT_API_ERROR"
	default:
		return "UNKNOWN_EVENT"
	}
}

// transitionTable is the tagged sum-type transition table described in
// spec §9's design note ("state machines should be tagged sum types with
// the transition table in data, not scattered across procedural
// branches"). An absent (state, event) entry is the undefined-transition
// case spec §4.3 calls a programming error.
var transitionTable = map[kv.PeerState]map[PeerEvent]kv.PeerState{
	kv.PeerIdle: {
		EventPeerAdd:         kv.PeerSyncing,
		EventThriftAPIError:  kv.PeerIdle,
	},
	kv.PeerSyncing: {
		EventSyncRespRcvd:    kv.PeerInitialized,
		EventThriftAPIError:  kv.PeerIdle,
	},
	kv.PeerInitialized: {
		EventSyncRespRcvd:    kv.PeerInitialized,
		EventThriftAPIError:  kv.PeerIdle,
	},
}

// Transition looks up the next state for (from, event). ok is false for an
// undefined transition; per spec §9 the caller logs and clamps to IDLE in
// release rather than panicking.
func Transition(from kv.PeerState, event PeerEvent) (next kv.PeerState, ok bool) {
	byEvent, known := transitionTable[from]
	if !known {
		return kv.PeerIdle, false
	}
	next, ok = byEvent[event]
	if !ok {
		return kv.PeerIdle, false
	}
	return next, true
}
