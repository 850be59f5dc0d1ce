package kv

import "strings"

// FilterOperator selects how a Filter's prefix and originator criteria are
// combined, per spec §4.8's "Filters support two combining modes".
type FilterOperator int

const (
	// FilterOr matches a key if any configured criterion matches.
	FilterOr FilterOperator = iota
	// FilterAnd requires every configured criterion to match.
	FilterAnd
)

// Filter is the ingress/egress filter described in spec §4.1 step 1 and
// carried over the wire as KeyDumpParams (spec §6.1). KeyPrefixes takes
// precedence over the deprecated comma-joined LegacyPrefixString when
// both are supplied, per spec §4.8.
type Filter struct {
	KeyPrefixes         []string
	LegacyPrefixString  string
	OriginatorIDs       map[string]struct{}
	Operator            FilterOperator
	DoNotPublishValue   bool
}

// prefixes returns the effective prefix list: KeyPrefixes if non-empty,
// else the legacy comma-joined string split on ",".
func (f Filter) prefixes() []string {
	if len(f.KeyPrefixes) > 0 {
		return f.KeyPrefixes
	}
	if f.LegacyPrefixString == "" {
		return nil
	}
	parts := strings.Split(f.LegacyPrefixString, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsZero reports whether the filter has no configured criteria, in which
// case every key matches.
func (f Filter) IsZero() bool {
	return len(f.prefixes()) == 0 && len(f.OriginatorIDs) == 0
}

// Match reports whether (key, originatorID) satisfies the filter, per
// spec §4.1 step 1.
func (f Filter) Match(key, originatorID string) bool {
	if f.IsZero() {
		return true
	}

	prefixes := f.prefixes()
	prefixMatch := len(prefixes) == 0
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			prefixMatch = true
			break
		}
	}

	originatorMatch := len(f.OriginatorIDs) == 0
	if !originatorMatch {
		_, originatorMatch = f.OriginatorIDs[originatorID]
	}

	// A criterion with zero entries is vacuously satisfied so that an
	// operator configured with only one of the two criteria behaves as
	// expected under both OR and AND.
	hasPrefixCriterion := len(prefixes) > 0
	hasOriginatorCriterion := len(f.OriginatorIDs) > 0

	switch f.Operator {
	case FilterAnd:
		if hasPrefixCriterion && !prefixMatch {
			return false
		}
		if hasOriginatorCriterion && !originatorMatch {
			return false
		}
		return true
	default: // FilterOr
		if hasPrefixCriterion && prefixMatch {
			return true
		}
		if hasOriginatorCriterion && originatorMatch {
			return true
		}
		return false
	}
}
