package store

import (
	"github.com/nodalmesh/kvstore/lib/area"
	"github.com/nodalmesh/kvstore/lib/kv"
)

// AreaSummary is one entry of get_area_summary's result (spec.md §4.8).
type AreaSummary struct {
	Area       string
	PeerMap    map[string]kv.PeerSpec
	KeyCount   int
	TotalBytes int
}

// Get implements get(keys) for area.
func (s *Store) Get(areaName string, keys []string) (kv.Publication, error) {
	db, resolved, err := s.lookup(areaName)
	if err != nil {
		return kv.Publication{}, err
	}
	pub := db.Get(keys)
	pub.Area = resolved
	return pub, nil
}

// DumpFiltered implements dump_filtered(filter, key_val_hashes?) for area.
func (s *Store) DumpFiltered(areaName string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) (kv.Publication, error) {
	db, resolved, err := s.lookup(areaName)
	if err != nil {
		return kv.Publication{}, err
	}
	pub := db.DumpFiltered(filter, keyValHashes)
	pub.Area = resolved
	return pub, nil
}

// DumpHashes implements dump_hashes(filter) for area.
func (s *Store) DumpHashes(areaName string, filter kv.Filter) (kv.Publication, error) {
	db, resolved, err := s.lookup(areaName)
	if err != nil {
		return kv.Publication{}, err
	}
	pub := db.DumpHashes(filter)
	pub.Area = resolved
	return pub, nil
}

// Set implements set(publication) for area. senderID identifies the peer
// this publication arrived from directly (empty for a purely local/RPC
// caller), used for flood loop suppression.
func (s *Store) Set(areaName string, pub kv.Publication, senderID string) error {
	db, _, err := s.lookup(areaName)
	if err != nil {
		return err
	}
	return classifyAreaError(db.Set(pub, senderID))
}

// GetPeers implements get_peers(area).
func (s *Store) GetPeers(areaName string) (map[string]kv.PeerSpec, error) {
	db, _, err := s.lookup(areaName)
	if err != nil {
		return nil, err
	}
	return db.GetPeers(), nil
}

// AddPeers implements add_peers(area, map) for a batch of peers.
func (s *Store) AddPeers(areaName string, peers map[string]kv.PeerSpec) error {
	if len(peers) == 0 {
		return newError(ErrInvalidPayload, "add_peers: empty peer map")
	}
	db, _, err := s.lookup(areaName)
	if err != nil {
		return err
	}
	for name, spec := range peers {
		db.AddPeer(name, spec, nil)
	}
	return nil
}

// DelPeers implements del_peers(area, names) for a batch of peers.
func (s *Store) DelPeers(areaName string, names []string) error {
	if len(names) == 0 {
		return newError(ErrInvalidPayload, "del_peers: empty name list")
	}
	db, _, err := s.lookup(areaName)
	if err != nil {
		return err
	}
	for _, name := range names {
		db.DelPeer(name)
	}
	return nil
}

// GetAreaSummary implements get_area_summary(areas). An empty areas list
// summarizes every configured area.
func (s *Store) GetAreaSummary(areas []string) ([]AreaSummary, error) {
	if len(areas) == 0 {
		s.areas.Range(func(name string, _ *area.Db) bool {
			areas = append(areas, name)
			return true
		})
	}

	out := make([]AreaSummary, 0, len(areas))
	for _, name := range areas {
		db, resolved, err := s.lookup(name)
		if err != nil {
			return nil, err
		}
		keyCount, totalBytes := db.Summary()
		out = append(out, AreaSummary{
			Area:       resolved,
			PeerMap:    db.GetPeers(),
			KeyCount:   keyCount,
			TotalBytes: totalBytes,
		})
	}
	return out, nil
}
