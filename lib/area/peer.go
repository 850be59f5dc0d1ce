package area

import (
	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
)

// BackoffPolicy configures the exponential backoff the PeerRecord advances
// on a THRIFT_API_ERROR: an initial value that doubles on every error up
// to MaxMs, with no jitter, lifted into reusable per-peer state since each
// peer tracks its own retry clock independently.
type BackoffPolicy struct {
	InitialMs int64
	MaxMs     int64
}

func (p BackoffPolicy) clamp(ms int64) int64 {
	if p.MaxMs > 0 && ms > p.MaxMs {
		return p.MaxMs
	}
	return ms
}

// backoffState is the live counter advanced on every THRIFT_API_ERROR and
// reset on every successful sync.
type backoffState struct {
	policy       BackoffPolicy
	currentMs    int64
	nextRetryAtMs int64
}

func newBackoffState(policy BackoffPolicy) *backoffState {
	return &backoffState{policy: policy, currentMs: policy.InitialMs}
}

// advance doubles the backoff and arms the next retry instant relative to
// nowMs.
func (b *backoffState) advance(nowMs int64) {
	b.currentMs = b.policy.clamp(b.currentMs * 2)
	if b.currentMs <= 0 {
		b.currentMs = b.policy.InitialMs
	}
	b.nextRetryAtMs = nowMs + b.currentMs
}

// reset returns the backoff to its initial value after a successful sync.
func (b *backoffState) reset() {
	b.currentMs = b.policy.InitialMs
	b.nextRetryAtMs = 0
}

// timeRemainingUntilRetry reports how long, from nowMs, until this peer's
// next retry is due (spec §4.3's time_remaining_until_retry()).
func (b *backoffState) timeRemainingUntilRetry(nowMs int64) int64 {
	remaining := b.nextRetryAtMs - nowMs
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PeerRecord is the PeerTable entry described in spec §3: a PeerSpec plus
// the client handle, backoff state, keep-alive bookkeeping and pending
// queue needed to drive it through the PeerStateMachine.
type PeerRecord struct {
	Name string
	Spec kv.PeerSpec

	Client peerclient.Client // nil until the peer's control address is known

	backoff *backoffState

	// PendingKeysDuringInitialization holds keys queued for this peer
	// while it has not yet reached INITIALIZED (spec §4.5 step 3).
	PendingKeysDuringInitialization map[string]struct{}

	ThriftAPIErrorCount int

	// KeepAliveDueAtMs is the next scheduled keep-alive probe instant;
	// jittered by ~20% per spec §5's "Shared-resource policy".
	KeepAliveDueAtMs int64
}

func newPeerRecord(name string, spec kv.PeerSpec, client peerclient.Client, policy BackoffPolicy) *PeerRecord {
	return &PeerRecord{
		Name:                            name,
		Spec:                            spec,
		Client:                          client,
		backoff:                         newBackoffState(policy),
		PendingKeysDuringInitialization: map[string]struct{}{},
	}
}

// QueuePendingKey remembers key as needing delivery once this peer reaches
// INITIALIZED.
func (p *PeerRecord) QueuePendingKey(key string) {
	p.PendingKeysDuringInitialization[key] = struct{}{}
}

// DrainPendingKeys returns and clears the pending-key set, used once the
// peer transitions into INITIALIZED.
func (p *PeerRecord) DrainPendingKeys() []string {
	if len(p.PendingKeysDuringInitialization) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.PendingKeysDuringInitialization))
	for k := range p.PendingKeysDuringInitialization {
		out = append(out, k)
	}
	p.PendingKeysDuringInitialization = map[string]struct{}{}
	return out
}

// apply drives this record's PeerStateMachine state with event, per the
// transition table in statemachine.go. An undefined transition is logged
// and clamps to IDLE.
func (p *PeerRecord) apply(event PeerEvent, nowMs int64) (next kv.PeerState, ok bool) {
	next, ok = Transition(p.Spec.State, event)
	if !ok {
		next = kv.PeerIdle
		logging.Get("area").WithField("peer", p.Name).WithField("state", p.Spec.State.String()).WithField("event", event.String()).Warn("undefined peer state transition, clamping to IDLE")
	}
	prev := p.Spec.State
	p.Spec.State = next

	switch event {
	case EventThriftAPIError:
		p.ThriftAPIErrorCount++
		p.backoff.advance(nowMs)
	case EventSyncRespRcvd:
		if next == kv.PeerInitialized {
			p.backoff.reset()
		}
	}

	_ = prev
	return next, ok
}

// PeerTable is the per-area map peer-name -> PeerRecord described in
// spec §2/§3, a map-of-structs-with-adapters registry keyed by peer name.
type PeerTable struct {
	peers  map[string]*PeerRecord
	policy BackoffPolicy
}

// NewPeerTable creates an empty table using policy for every peer added.
func NewPeerTable(policy BackoffPolicy) *PeerTable {
	return &PeerTable{peers: map[string]*PeerRecord{}, policy: policy}
}

// Add implements the peer_add lifecycle of spec §3/§4.3: a peer new to the
// table (or whose control address changed) is (re)created at IDLE and
// queued for a fresh sync; a peer known at the same address keeps its
// current state unless its client is dead.
func (t *PeerTable) Add(name string, spec kv.PeerSpec, client peerclient.Client) (rec *PeerRecord, isNewOrChanged bool) {
	existing, ok := t.peers[name]
	if ok && existing.Spec.PeerAddress == spec.PeerAddress && existing.Spec.ControlPort == spec.ControlPort && existing.Client != nil {
		return existing, false
	}

	rec = newPeerRecord(name, spec, client, t.policy)
	rec.Spec.State = kv.PeerIdle
	t.peers[name] = rec
	return rec, true
}

// Get looks up a peer by name.
func (t *PeerTable) Get(name string) (*PeerRecord, bool) {
	rec, ok := t.peers[name]
	return rec, ok
}

// Del removes a peer, implementing peer_del's "destroy the record" rule of
// spec §4.3. Any in-flight callback must re-check Get before mutating.
func (t *PeerTable) Del(name string) {
	delete(t.peers, name)
}

// Len reports the number of peers currently tracked.
func (t *PeerTable) Len() int { return len(t.peers) }

// Range calls fn for every peer in the table. fn must not mutate the table.
func (t *PeerTable) Range(fn func(name string, rec *PeerRecord)) {
	for name, rec := range t.peers {
		fn(name, rec)
	}
}

// CountInState returns how many peers currently carry the given state.
func (t *PeerTable) CountInState(state kv.PeerState) int {
	n := 0
	for _, rec := range t.peers {
		if rec.Spec.State == state {
			n++
		}
	}
	return n
}

// MinTimeRemainingUntilRetry returns the smallest time_remaining_until_retry
// across all IDLE peers with a pending backoff. ok is false if no peer is
// waiting. Db's sync scheduler does not call it: it polls on a fixed
// 250ms tick and checks each peer's retry instant directly.
func (t *PeerTable) MinTimeRemainingUntilRetry(nowMs int64) (ms int64, ok bool) {
	for _, rec := range t.peers {
		if rec.Spec.State != kv.PeerIdle || rec.backoff.nextRetryAtMs == 0 {
			continue
		}
		remaining := rec.backoff.timeRemainingUntilRetry(nowMs)
		if !ok || remaining < ms {
			ms = remaining
			ok = true
		}
	}
	return ms, ok
}
