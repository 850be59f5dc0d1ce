package store

import (
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/lib/area"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
)

// wildcardArea is the legacy RPC-boundary alias of spec.md §4.8/§9: "0"
// falls back to the sole configured area when exactly one is configured.
const wildcardArea = "0"

// Store is one process's collection of AreaDbs (spec.md §2), kept in an
// *xsync.MapOf keyed by area name because RPC handlers look an area up
// from arbitrary goroutines before hopping onto that area's executor.
type Store struct {
	nodeName string
	areas    *xsync.MapOf[string, *area.Db]
	bus      *broadcaster
	barrier  *processBarrier
	log      *logrus.Entry

	singleArea   string // non-empty iff exactly one area is configured
	hasOneArea   bool
}

// New creates a Store with one AreaDb per entry in cfgs. Each Db is
// created but not started; call Start to launch every area's executor.
func New(nodeName string, cfgs []area.Config) *Store {
	s := &Store{
		nodeName: nodeName,
		areas:    xsync.NewMapOf[string, *area.Db](),
		bus:      newBroadcaster(),
		log:      logging.Get("store"),
	}

	names := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		names = append(names, cfg.Area)
	}
	s.barrier = newProcessBarrier(names)

	if len(cfgs) == 1 {
		s.hasOneArea = true
		s.singleArea = cfgs[0].Area
	}

	for _, cfg := range cfgs {
		db := area.New(cfg, s)
		s.areas.Store(cfg.Area, db)
	}
	return s
}

// Start launches every area's executor and timers.
func (s *Store) Start() {
	s.areas.Range(func(_ string, db *area.Db) bool {
		db.Start()
		return true
	})
}

// Stop stops every area's executor.
func (s *Store) Stop() {
	s.areas.Range(func(_ string, db *area.Db) bool {
		db.Stop()
		return true
	})
}

// Publications returns the read side of the Publication/InitializationEvent
// broadcast channel (spec.md §6.3).
func (s *Store) Publications() <-chan PublicationEvent { return s.bus.Publications() }

// SyncEvents returns the read side of the KvStoreSyncEvent channel.
func (s *Store) SyncEvents() <-chan SyncEvent { return s.bus.SyncEvents() }

// resolveArea implements the wildcard-area alias: an empty area is
// rejected outright; "0" resolves to the sole configured area when there
// is exactly one, otherwise it is looked up literally (and will fail
// lookup like any other unconfigured area).
func (s *Store) resolveArea(requested string) (string, error) {
	if requested == "" {
		return "", newError(ErrInvalidArea, "area must not be empty")
	}
	if requested == wildcardArea && s.hasOneArea {
		return s.singleArea, nil
	}
	return requested, nil
}

func (s *Store) lookup(requested string) (*area.Db, string, error) {
	name, err := s.resolveArea(requested)
	if err != nil {
		return nil, "", err
	}
	db, ok := s.areas.Load(name)
	if !ok {
		return nil, "", newError(ErrInvalidArea, "area not configured: "+name)
	}
	return db, name, nil
}

// AddPeer implements add_peers for one (area, peer) pair.
func (s *Store) AddPeer(areaName, peerName string, spec kv.PeerSpec, client peerclient.Client) error {
	db, _, err := s.lookup(areaName)
	if err != nil {
		return err
	}
	db.AddPeer(peerName, spec, client)
	return nil
}

// DelPeer implements del_peers for one (area, peer) pair.
func (s *Store) DelPeer(areaName, peerName string) error {
	db, _, err := s.lookup(areaName)
	if err != nil {
		return err
	}
	db.DelPeer(peerName)
	return nil
}

// --------------------------------------------------------------------
// area.EventSink
// --------------------------------------------------------------------

func (s *Store) PublishDelta(pub kv.Publication) {
	s.bus.send(PublicationEvent{Kind: EventKindPublication, Publication: pub})
}

func (s *Store) PublishSyncEvent(evt area.PeerSyncEvent) {
	s.bus.sendSyncEvent(SyncEvent{PeerName: evt.PeerName, Area: evt.Area})
}

func (s *Store) NotifyAreaInitialSyncCompleted(areaName string) {
	if s.barrier.markAreaCompleted(areaName) {
		s.log.Info("all areas completed initial sync, emitting KVSTORE_SYNCED")
		s.bus.send(PublicationEvent{Kind: EventKindInitialized})
	}
}

var _ area.EventSink = (*Store)(nil)
