package area

import "github.com/pkg/errors"

// Sentinel errors an AreaDb can return; lib/store classifies these into
// the KvStoreError kinds of spec §7 at the RPC boundary.
var (
	ErrInvalidPayload = errors.New("area: invalid payload")
	ErrPeerTransport  = errors.New("area: peer transport error")
	ErrStopped        = errors.New("area: db is stopped")
)
