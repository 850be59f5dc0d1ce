package peerclient

import (
	"context"

	"github.com/nodalmesh/kvstore/lib/kv"
)

// Client is the abstract peer transport trait named in spec §9. Every
// method maps to one of the peer RPCs the SyncEngine/Flooder issue;
// errors are returned verbatim and translated to a THRIFT_API_ERROR event
// by the caller (area.Db), never interpreted here.
type Client interface {
	// GetKV dispatches a dump_filtered request (carrying keyValHashes) to
	// the peer and returns its response Publication.
	GetKV(ctx context.Context, area string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) (kv.Publication, error)

	// SetKV pushes a Publication to the peer (flood delivery or
	// finalize-sync).
	SetKV(ctx context.Context, area string, pub kv.Publication) error

	// GetStatus issues a cheap keep-alive probe.
	GetStatus(ctx context.Context) error

	// Close releases any underlying connection. Safe to call more than
	// once.
	Close() error
}
