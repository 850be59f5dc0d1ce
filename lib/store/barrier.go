package store

import "sync"

// processBarrier aggregates every area's areaBarrier (tracked inside each
// area.Db) into the single process-wide KVSTORE_SYNCED event of spec.md
// §4.7: "When every area has initial_sync_completed = true, the core
// publishes exactly one KVSTORE_SYNCED event ... must be idempotent."
type processBarrier struct {
	mu        sync.Mutex
	completed map[string]bool
	fired     bool
}

func newProcessBarrier(areas []string) *processBarrier {
	completed := make(map[string]bool, len(areas))
	for _, a := range areas {
		completed[a] = false
	}
	return &processBarrier{completed: completed}
}

// markAreaCompleted records that area finished its initial sync and
// reports whether this call is the one that should fire KVSTORE_SYNCED
// (every configured area now complete, and it hasn't fired before).
func (p *processBarrier) markAreaCompleted(area string) (shouldFire bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, known := p.completed[area]; known {
		p.completed[area] = true
	}

	if p.fired {
		return false
	}
	for _, done := range p.completed {
		if !done {
			return false
		}
	}
	p.fired = true
	return true
}
