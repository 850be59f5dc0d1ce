package area

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/nodalmesh/kvstore/lib/kv"
)

// flooder is spec §4.5's rate-limited fan-out. It never talks to the
// network directly -- Db.dispatchFlood issues the actual
// peerclient.Client.SetKV call for each target, so flooder stays testable
// without a real transport.
type flooder struct {
	limiter *rate.Limiter // nil means unlimited, per spec §6.4 "absent = unlimited"

	// coalesceBuf buffers keys dropped by the rate limiter, keyed by key
	// only (last-writer-wins within the buffering window), per spec §4.5.
	coalesceBuf map[string]struct{}
}

func newFlooder(msgsPerSec float64, burst int) *flooder {
	f := &flooder{coalesceBuf: map[string]struct{}{}}
	if msgsPerSec > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(msgsPerSec), burst)
	}
	return f
}

// allow reports whether the token bucket currently has a token available.
// A nil limiter (unlimited) always allows.
func (f *flooder) allow() bool {
	if f.limiter == nil {
		return true
	}
	return f.limiter.Allow()
}

// coalesce records that key's delta could not be sent immediately and
// must be drained later from the current map state.
func (f *flooder) coalesce(keys []string) {
	for _, k := range keys {
		f.coalesceBuf[k] = struct{}{}
	}
}

// drainCoalesced returns and clears the buffered key set.
func (f *flooder) drainCoalesced() []string {
	if len(f.coalesceBuf) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.coalesceBuf))
	for k := range f.coalesceBuf {
		out = append(out, k)
	}
	f.coalesceBuf = map[string]struct{}{}
	return out
}

// floodTarget is one outbound delivery the flood step must attempt.
type floodTarget struct {
	PeerName string
	Rec      *PeerRecord
}

// selectTargets implements spec §4.5 steps 1-3: append the local node to
// the path, drop the direct sender, drop peers not yet INITIALIZED
// (queuing their pending keys instead).
func selectTargets(localNode, senderID string, pub kv.Publication, table *PeerTable) (kv.Publication, []floodTarget) {
	out := pub
	out.NodePath = append(append([]string{}, pub.NodePath...), localNode)

	var targets []floodTarget
	table.Range(func(name string, rec *PeerRecord) {
		if name == senderID {
			return
		}
		if rec.Spec.State != kv.PeerInitialized {
			for key := range pub.KeyVals {
				rec.QueuePendingKey(key)
			}
			for _, key := range pub.ExpiredKeys {
				rec.QueuePendingKey(key)
			}
			return
		}
		targets = append(targets, floodTarget{PeerName: name, Rec: rec})
	})
	return out, targets
}

// SendFunc is the shape of a set_kv RPC to one peer. Nothing in this
// package takes or calls one: Db.dispatchFlood calls PeerRecord.Client.SetKV
// directly.
type SendFunc func(ctx context.Context, rec *PeerRecord, pub kv.Publication) error
