package kv

import "encoding/binary"

// fnv1aOffset and fnv1aPrime are the standard 64-bit FNV-1a constants,
// here applied to the (version, originator_id, payload) tuple.
const (
	fnv1aOffset = 14695981039346656037
	fnv1aPrime  = 1099511628211
)

// ContentHash computes the content_hash field of spec §3: a 64-bit hash
// over (version, originator_id, payload). Two records with equal hashes
// are guaranteed (modulo hash collision) to carry an equal tuple, which is
// exactly the property the full-sync hash-dump comparison in spec §4.4
// relies on.
func ContentHash(v VersionedValue) uint64 {
	h := uint64(fnv1aOffset)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v.Version))
	for _, b := range buf {
		h ^= uint64(b)
		h *= fnv1aPrime
	}

	for i := 0; i < len(v.OriginatorID); i++ {
		h ^= uint64(v.OriginatorID[i])
		h *= fnv1aPrime
	}

	for i := 0; i < len(v.Payload); i++ {
		h ^= uint64(v.Payload[i])
		h *= fnv1aPrime
	}

	return h
}

// WithContentHash returns a copy of v with ContentHash filled in if it was
// nil, matching spec §4.1 step 6 ("recompute content_hash if absent").
func WithContentHash(v VersionedValue) VersionedValue {
	if v.ContentHash != nil {
		return v
	}
	h := ContentHash(v)
	v.ContentHash = &h
	return v
}
