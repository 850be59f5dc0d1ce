package area

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
)

// nowFunc is a package-level var so tests can substitute a deterministic
// clock without touching every call site.
var nowFunc = func() int64 { return time.Now().UnixMilli() }

// Db is one AreaDb: the single-executor owner of this area's
// KeyValueMap, TtlQueue, PeerTable, PeerStateMachine, SyncEngine,
// Flooder and SelfOriginator (spec §2). Every exported method hops onto
// the internal executor goroutine before touching state.
type Db struct {
	cfg    Config
	log    *logrus.Entry
	sink   EventSink

	cmdCh  chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup

	store    map[string]kv.VersionedValue
	ttl      *kv.TtlQueue
	merge    kv.MergeEngine
	peers    *PeerTable
	barrier  areaBarrier
	flood    *flooder
	self     *selfOriginator
	sync_    syncEngine
	syncCap  int
	syncing  int // peers currently in SYNCING, bounded by syncCap

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates an AreaDb for cfg, reporting outbound events to sink. Call
// Start to begin running its executor and timers.
func New(cfg Config, sink EventSink) *Db {
	if sink == nil {
		sink = NopSink{}
	}
	return &Db{
		cfg:     cfg,
		log:     logging.Get("area").WithField("area", cfg.Area),
		sink:    sink,
		cmdCh:   make(chan func(), 256),
		stopCh:  make(chan struct{}),
		store:   map[string]kv.VersionedValue{},
		ttl:     kv.NewTtlQueue(),
		merge:   kv.MergeEngine{Filter: cfg.IngressFilter},
		peers:   NewPeerTable(cfg.SyncBackoff),
		flood:   newFlooder(cfg.FloodMsgsPerSec, cfg.FloodBurst),
		self:    newSelfOriginator(cfg.NodeName, cfg.KeyTTLMs),
		syncCap: max1(cfg.InitialSyncCap),
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Start launches the executor goroutine and the ttl-eviction, sync-scheduler,
// ttl-refresh, coalesce-drain and keep-alive timers. Safe to call once.
func (d *Db) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run()
		d.wg.Add(5)
		go d.evictionLoop()
		go d.syncSchedulerLoop()
		go d.ttlRefreshLoop()
		go d.coalesceDrainLoop()
		go d.keepAliveLoop()
	})
}

// Stop closes stopCh, which ends the executor and every timer loop, and
// waits for them to return. RPCs already in flight are not cancelled: they
// run until their own timeout, and once Stop has returned the exec() call
// in their completion callback returns false without running.
func (d *Db) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
	d.wg.Wait()
}

func (d *Db) run() {
	defer d.wg.Done()
	for {
		select {
		case fn := <-d.cmdCh:
			fn()
		case <-d.stopCh:
			return
		}
	}
}

// exec hops fn onto the executor and blocks until it has run. This is
// the only way any method below touches store/ttl/peers/self.
func (d *Db) exec(fn func()) bool {
	done := make(chan struct{})
	select {
	case d.cmdCh <- func() { fn(); close(done) }:
	case <-d.stopCh:
		return false
	}
	select {
	case <-done:
		return true
	case <-d.stopCh:
		return false
	}
}

func (d *Db) evictionLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.exec(func() { d.evictExpiredLocked() })
		case <-d.stopCh:
			return
		}
	}
}

func (d *Db) syncSchedulerLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.driveSyncSchedule()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Db) keepAliveLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.driveKeepAlive()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Db) coalesceDrainLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.DrainCoalesced()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Db) ttlRefreshLoop() {
	defer d.wg.Done()
	interval := d.cfg.KeyTTLMs / 4
	if interval <= 0 {
		interval = 1000
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.RefreshTTLs()
		case <-d.stopCh:
			return
		}
	}
}

// driveSyncSchedule starts a full-sync for every IDLE peer whose backoff
// has elapsed, up to syncCap concurrently in SYNCING.
func (d *Db) driveSyncSchedule() {
	var toSync []string
	d.exec(func() {
		if d.syncing >= d.syncCap {
			return
		}
		now := nowFunc()
		d.peers.Range(func(name string, rec *PeerRecord) {
			if len(toSync)+d.syncing >= d.syncCap {
				return
			}
			if rec.Spec.State != kv.PeerIdle {
				return
			}
			if rec.backoff.nextRetryAtMs > now {
				return
			}
			toSync = append(toSync, name)
		})
	})
	for _, name := range toSync {
		d.initiateSync(name)
	}
}

// --------------------------------------------------------------------
// RpcSurface-facing operations (spec §4.8); each takes the executor hop.
// --------------------------------------------------------------------

// Get returns the requested keys' current values with outbound ttl
// decrement applied.
func (d *Db) Get(keys []string) kv.Publication {
	var out kv.Publication
	d.exec(func() {
		out = kv.Publication{Area: d.cfg.Area, KeyVals: map[string]kv.VersionedValue{}}
		for _, k := range keys {
			if v, ok := d.store[k]; ok {
				out.KeyVals[k] = v
			}
		}
	})
	return kv.DecrementTTL(out, d.cfg.TTLDecrementMs)
}

// DumpFiltered implements dump_filtered: a plain filtered dump when
// keyValHashes is nil, or the B side of a full-sync (spec §4.4) when it
// is supplied.
func (d *Db) DumpFiltered(filter kv.Filter, keyValHashes map[string]kv.VersionedValue) kv.Publication {
	var out kv.Publication
	d.exec(func() {
		if keyValHashes != nil {
			out = d.sync_.computeResponse(d.cfg.Area, filter, d.store, keyValHashes)
			return
		}
		out = kv.Publication{Area: d.cfg.Area, KeyVals: map[string]kv.VersionedValue{}}
		for k, v := range d.store {
			if filter.Match(k, v.OriginatorID) {
				out.KeyVals[k] = v
			}
		}
	})
	return kv.DecrementTTL(out, d.cfg.TTLDecrementMs)
}

// DumpHashes implements dump_hashes: keys and metadata only, payload
// omitted.
func (d *Db) DumpHashes(filter kv.Filter) kv.Publication {
	var out kv.Publication
	d.exec(func() {
		out = kv.Publication{Area: d.cfg.Area, KeyVals: d.sync_.localHashSet(filterStore(d.store, filter))}
	})
	return out
}

func filterStore(store map[string]kv.VersionedValue, filter kv.Filter) map[string]kv.VersionedValue {
	if filter.IsZero() {
		return store
	}
	out := map[string]kv.VersionedValue{}
	for k, v := range store {
		if filter.Match(k, v.OriginatorID) {
			out[k] = v
		}
	}
	return out
}

// Set implements set(publication): ingest into the MergeEngine and, on a
// non-empty accepted delta, flood it onward. senderID is the peer we
// received this publication from directly (empty for a local/RPC-origin
// set), used for loop suppression accounting and to avoid echoing the
// delta straight back.
func (d *Db) Set(pub kv.Publication, senderID string) error {
	d.exec(func() {
		if pub.ContainsNode(d.cfg.NodeName) {
			d.log.WithField("node_path", pub.NodePath).Debug("loop detected, dropping publication")
			return
		}
		delta := d.applyDeltaLocked(pub)
		if delta.Empty() {
			return
		}
		resultPub := delta.Publication()
		d.sink.PublishDelta(resultPub)
		d.floodLocked(resultPub, senderID)
	})
	return nil
}

// applyDeltaLocked runs every (key, value) in pub through the
// MergeEngine, applies accepted changes to the store and TtlQueue, and
// reconciles each touched key against the self-originator cache. Must
// only be called from the executor.
func (d *Db) applyDeltaLocked(pub kv.Publication) *kv.DeltaBuilder {
	delta := kv.NewDeltaBuilder(d.cfg.Area)
	now := nowFunc()

	for key, incoming := range pub.KeyVals {
		current, ok := d.store[key]
		res := d.merge.MergeOne(key, current, ok, incoming)
		if !res.Accepted() {
			continue
		}
		d.store[key] = res.Value
		if !res.Value.IsInfiniteTTL() {
			d.ttl.Push(now, key, res.Value)
		}
		delta.Add(key, res.Value)

		if adv := d.self.reconcile(key, res.Value); adv != nil {
			d.applyOwnAdvertiseLocked(delta, adv)
		}
	}
	return delta
}

// applyOwnAdvertiseLocked feeds a self-originated advertise request back
// through the MergeEngine (it always wins, since the cache just bumped
// its version past whatever triggered it) and folds it into delta so the
// caller floods it in the same round.
func (d *Db) applyOwnAdvertiseLocked(delta *kv.DeltaBuilder, adv *advertiseRequest) {
	now := nowFunc()
	current, ok := d.store[adv.Key]
	res := d.merge.MergeOne(adv.Key, current, ok, adv.Value)
	if !res.Accepted() {
		return
	}
	d.store[adv.Key] = res.Value
	if !res.Value.IsInfiniteTTL() {
		d.ttl.Push(now, adv.Key, res.Value)
	}
	delta.Add(adv.Key, res.Value)
}

// evictExpiredLocked is spec §4.2's eviction loop, invoked on the
// executor by evictionLoop's timer.
func (d *Db) evictExpiredLocked() {
	now := nowFunc()
	var expiredKeys []string
	for _, entry := range d.ttl.PopExpired(now) {
		current, ok := d.store[entry.Key]
		if !entry.IsLive(current, ok) {
			continue
		}
		delete(d.store, entry.Key)
		expiredKeys = append(expiredKeys, entry.Key)
	}
	if len(expiredKeys) == 0 {
		return
	}
	d.sink.PublishDelta(kv.Publication{Area: d.cfg.Area, ExpiredKeys: expiredKeys, TimestampMs: now})
}

// --------------------------------------------------------------------
// Peer management (spec §4.3)
// --------------------------------------------------------------------

// AddPeer implements peer_add.
func (d *Db) AddPeer(name string, spec kv.PeerSpec, client peerclient.Client) {
	d.exec(func() {
		d.peers.Add(name, spec, client)
		d.barrier.observePeerEvent()
		d.maybeCompleteBarrierLocked()
	})
}

// DelPeer implements peer_del.
func (d *Db) DelPeer(name string) {
	d.exec(func() {
		d.peers.Del(name)
		d.barrier.observePeerEvent()
		d.maybeCompleteBarrierLocked()
	})
}

// GetPeers implements get_peers.
func (d *Db) GetPeers() map[string]kv.PeerSpec {
	out := map[string]kv.PeerSpec{}
	d.exec(func() {
		d.peers.Range(func(name string, rec *PeerRecord) {
			out[name] = rec.Spec
		})
	})
	return out
}

// Summary implements one area's contribution to get_area_summary.
func (d *Db) Summary() (keyCount int, totalBytes int) {
	d.exec(func() {
		keyCount = len(d.store)
		for _, v := range d.store {
			totalBytes += len(v.Payload)
		}
	})
	return
}

func (d *Db) maybeCompleteBarrierLocked() {
	if d.barrier.evaluate(d.peers) {
		d.sink.NotifyAreaInitialSyncCompleted(d.cfg.Area)
	}
}

// driveKeepAlive issues a get_status probe to every peer whose
// KeepAliveDueAtMs has elapsed, rearming it with ~20% jitter (spec §5's
// "Shared-resource policy"), and treats a failing probe like a
// THRIFT_API_ERROR.
func (d *Db) driveKeepAlive() {
	type dueTarget struct {
		name   string
		client peerclient.Client
	}
	var targets []dueTarget
	now := nowFunc()
	interval := d.cfg.KeepAliveIntervalMs
	if interval <= 0 {
		interval = 5000
	}
	d.exec(func() {
		d.peers.Range(func(name string, rec *PeerRecord) {
			if rec.Client == nil || now < rec.KeepAliveDueAtMs {
				return
			}
			jitter := float64(interval) * (0.9 + 0.2*rand.Float64())
			rec.KeepAliveDueAtMs = now + int64(jitter)
			targets = append(targets, dueTarget{name: name, client: rec.Client})
		})
	})
	for _, t := range targets {
		name, client := t.name, t.client
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.rpcTimeout())
			defer cancel()
			if err := client.GetStatus(ctx); err == nil {
				return
			}
			d.exec(func() {
				rec, ok := d.peers.Get(name)
				if !ok {
					return
				}
				d.onPeerErrorLocked(rec)
			})
		}()
	}
}

// onPeerErrorLocked drives rec through THRIFT_API_ERROR and re-evaluates
// the barrier, since an error can satisfy "resolved" for this peer.
func (d *Db) onPeerErrorLocked(rec *PeerRecord) {
	rec.apply(EventThriftAPIError, nowFunc())
	d.maybeCompleteBarrierLocked()
}

// --------------------------------------------------------------------
// SyncEngine orchestration (spec §4.4)
// --------------------------------------------------------------------

func (d *Db) rpcTimeout() time.Duration {
	return 5 * time.Second
}

// initiateSync moves an IDLE peerName to SYNCING (PEER_ADD), dispatches
// dump_filtered to it and, off the executor, waits for the response
// before hopping back in to apply it. A peer that is not IDLE or has no
// client is left alone. This is the RPC-send/RPC-completion suspension
// pair spec §5 allows.
func (d *Db) initiateSync(peerName string) {
	var client peerclient.Client
	var area string
	var filter kv.Filter
	var hashes map[string]kv.VersionedValue
	dispatched := false

	d.exec(func() {
		rec, ok := d.peers.Get(peerName)
		if !ok || rec.Spec.State != kv.PeerIdle || rec.Client == nil {
			return
		}
		rec.apply(EventPeerAdd, nowFunc())
		client = rec.Client
		area = d.cfg.Area
		filter = d.cfg.IngressFilter
		hashes = d.sync_.localHashSet(d.store)
		d.syncing++
		dispatched = true
	})
	if !dispatched {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.rpcTimeout())
		defer cancel()
		resp, err := client.GetKV(ctx, area, filter, hashes)

		d.exec(func() {
			d.syncing--
			rec, ok := d.peers.Get(peerName)
			if !ok {
				return // StaleResponse: peer deleted mid-flight.
			}
			if err != nil {
				d.onPeerErrorLocked(rec)
				return
			}
			if rec.Spec.State != kv.PeerSyncing {
				return // StaleResponse: already resolved by another path.
			}
			d.completeSyncResponseLocked(peerName, rec, resp)
		})
	}()
}

func (d *Db) completeSyncResponseLocked(peerName string, rec *PeerRecord, resp kv.Publication) {
	delta := d.applyDeltaLocked(resp)
	if !delta.Empty() {
		d.sink.PublishDelta(delta.Publication())
	}

	finalize := d.sync_.buildFinalize(d.cfg.Area, d.store, resp.ToBeUpdatedKeys, d.cfg.NodeName)

	rec.apply(EventSyncRespRcvd, nowFunc())
	d.syncCap = min(d.syncCap*2, maxOr(d.cfg.MaxSyncCap, d.syncCap*2))
	d.sink.PublishSyncEvent(PeerSyncEvent{PeerName: peerName, Area: d.cfg.Area})

	for _, key := range rec.DrainPendingKeys() {
		if v, ok := d.store[key]; ok {
			if finalize.KeyVals == nil {
				finalize.KeyVals = map[string]kv.VersionedValue{}
			}
			finalize.KeyVals[key] = v
		}
	}

	d.maybeCompleteBarrierLocked()

	if len(finalize.KeyVals) == 0 {
		return
	}
	client := rec.Client
	if client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.rpcTimeout())
		defer cancel()
		err := client.SetKV(ctx, d.cfg.Area, finalize)
		d.exec(func() {
			r, ok := d.peers.Get(peerName)
			if !ok || err == nil {
				return
			}
			d.onPeerErrorLocked(r)
		})
	}()
}

func maxOr(configured, doubled int) int {
	if configured <= 0 {
		return doubled
	}
	return configured
}

// --------------------------------------------------------------------
// Flooder orchestration (spec §4.5)
// --------------------------------------------------------------------

// floodLocked fans pub out to every INITIALIZED peer other than
// senderID, respecting the rate limiter and coalescing buffer. Must only
// be called from the executor.
func (d *Db) floodLocked(pub kv.Publication, senderID string) {
	outPub, targets := selectTargets(d.cfg.NodeName, senderID, pub, d.peers)
	outPub = kv.DecrementTTL(outPub, d.cfg.TTLDecrementMs)

	if !d.flood.allow() {
		keys := make([]string, 0, len(pub.KeyVals))
		for k := range pub.KeyVals {
			keys = append(keys, k)
		}
		d.flood.coalesce(keys)
		return
	}

	for _, target := range targets {
		d.dispatchFlood(target, outPub)
	}
}

func (d *Db) dispatchFlood(target floodTarget, pub kv.Publication) {
	client := target.Rec.Client
	if client == nil {
		return
	}
	peerName := target.PeerName
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.rpcTimeout())
		defer cancel()
		err := client.SetKV(ctx, d.cfg.Area, pub)
		if err == nil {
			return
		}
		d.exec(func() {
			rec, ok := d.peers.Get(peerName)
			if !ok {
				return
			}
			d.onPeerErrorLocked(rec)
		})
	}()
}

// DrainCoalesced re-checks every previously-buffered key against the
// current store and ships one merged Publication; called on a 100ms tick
// by coalesceDrainLoop, alongside the token bucket's own refill.
func (d *Db) DrainCoalesced() {
	var pub kv.Publication
	d.exec(func() {
		keys := d.flood.drainCoalesced()
		if len(keys) == 0 {
			return
		}
		pub = kv.Publication{Area: d.cfg.Area, KeyVals: map[string]kv.VersionedValue{}}
		for _, k := range keys {
			if v, ok := d.store[k]; ok {
				pub.KeyVals[k] = v
			}
		}
		if len(pub.KeyVals) > 0 {
			d.floodLocked(pub, "")
		}
	})
}

// --------------------------------------------------------------------
// SelfOriginator orchestration (spec §4.6)
// --------------------------------------------------------------------

// Persist implements persist(key, payload).
func (d *Db) Persist(key string, payload []byte) error {
	if payload == nil {
		return ErrInvalidPayload
	}
	d.exec(func() {
		current, ok := d.store[key]
		if adv := d.self.persist(nowFunc(), key, payload, current, ok); adv != nil {
			delta := kv.NewDeltaBuilder(d.cfg.Area)
			d.applyOwnAdvertiseLocked(delta, adv)
			if !delta.Empty() {
				d.sink.PublishDelta(delta.Publication())
				d.floodLocked(delta.Publication(), "")
			}
		}
	})
	return nil
}

// SetSelf implements the forceful set(key, payload, version).
func (d *Db) SetSelf(key string, payload []byte, version int64) error {
	if payload == nil {
		return ErrInvalidPayload
	}
	d.exec(func() {
		adv := d.self.set(key, payload, version)
		delta := kv.NewDeltaBuilder(d.cfg.Area)
		d.applyOwnAdvertiseLocked(delta, adv)
		if !delta.Empty() {
			d.sink.PublishDelta(delta.Publication())
			d.floodLocked(delta.Publication(), "")
		}
	})
	return nil
}

// Unset implements unset(key, tombstonePayload): it schedules, rather
// than immediately applies, the tombstone. It arms a one-shot timer that
// calls DrainSelfThrottle after Config.UnsetThrottleMs, unless a persist
// lands first.
func (d *Db) Unset(key string, tombstonePayload []byte) error {
	if tombstonePayload == nil {
		return ErrInvalidPayload
	}
	d.exec(func() {
		d.self.unset(key, tombstonePayload)
	})
	throttle := d.cfg.UnsetThrottleMs
	if throttle <= 0 {
		throttle = 200
	}
	time.AfterFunc(time.Duration(throttle)*time.Millisecond, func() {
		d.DrainSelfThrottle(key)
	})
	return nil
}

// DrainSelfThrottle fires the unset-throttle window for key; Unset arms
// the per-key timer that calls this.
func (d *Db) DrainSelfThrottle(key string) {
	d.exec(func() {
		adv := d.self.drainUnset(key)
		if adv == nil {
			return
		}
		delta := kv.NewDeltaBuilder(d.cfg.Area)
		d.applyOwnAdvertiseLocked(delta, adv)
		if !delta.Empty() {
			d.sink.PublishDelta(delta.Publication())
			d.floodLocked(delta.Publication(), "")
		}
	})
}

// Erase implements erase(key).
func (d *Db) Erase(key string) {
	d.exec(func() { d.self.erase(key) })
}

// RefreshTTLs fires the TTL refresher of spec §4.6; ttlRefreshLoop calls
// this on a periodic timer at roughly KeyTTLMs/4.
func (d *Db) RefreshTTLs() {
	d.exec(func() {
		interval := d.cfg.KeyTTLMs / 4
		if interval <= 0 {
			interval = 1000
		}
		reqs := d.self.ttlRefreshDue(nowFunc(), interval)
		if len(reqs) == 0 {
			return
		}
		delta := kv.NewDeltaBuilder(d.cfg.Area)
		for i := range reqs {
			d.applyOwnAdvertiseLocked(delta, &reqs[i])
		}
		if !delta.Empty() {
			d.sink.PublishDelta(delta.Publication())
			d.floodLocked(delta.Publication(), "")
		}
	})
}

// InitialSyncCompleted reports this area's spec §4.7 flag.
func (d *Db) InitialSyncCompleted() bool {
	var completed bool
	d.exec(func() { completed = d.barrier.Completed() })
	return completed
}
