package kv

import "testing"

func TestFilterZeroMatchesEverything(t *testing.T) {
	var f Filter
	if !f.Match("anything", "anyone") {
		t.Fatal("zero filter must match everything")
	}
}

func TestFilterPrefixOnly(t *testing.T) {
	f := Filter{KeyPrefixes: []string{"adj:", "prefix:"}}
	if !f.Match("adj:1", "x") {
		t.Fatal("expected prefix match")
	}
	if f.Match("other:1", "x") {
		t.Fatal("expected prefix mismatch to be rejected")
	}
}

func TestFilterLegacyPrefixStringFallback(t *testing.T) {
	f := Filter{LegacyPrefixString: "adj:, prefix:"}
	if !f.Match("prefix:1", "x") {
		t.Fatal("expected legacy comma-joined prefix to match")
	}
}

func TestFilterKeyPrefixesWinsOverLegacy(t *testing.T) {
	f := Filter{KeyPrefixes: []string{"adj:"}, LegacyPrefixString: "other:"}
	if f.Match("other:1", "x") {
		t.Fatal("expected KeyPrefixes to take precedence over legacy string")
	}
}

func TestFilterOriginatorOnly(t *testing.T) {
	f := Filter{OriginatorIDs: map[string]struct{}{"A": {}}}
	if !f.Match("anykey", "A") {
		t.Fatal("expected originator match")
	}
	if f.Match("anykey", "B") {
		t.Fatal("expected originator mismatch to be rejected")
	}
}

func TestFilterAndRequiresBothCriteria(t *testing.T) {
	f := Filter{
		KeyPrefixes:   []string{"adj:"},
		OriginatorIDs: map[string]struct{}{"A": {}},
		Operator:      FilterAnd,
	}
	if !f.Match("adj:1", "A") {
		t.Fatal("expected AND match when both criteria satisfied")
	}
	if f.Match("adj:1", "B") {
		t.Fatal("expected AND mismatch when originator fails")
	}
	if f.Match("other:1", "A") {
		t.Fatal("expected AND mismatch when prefix fails")
	}
}

func TestFilterOrMatchesEitherCriterion(t *testing.T) {
	f := Filter{
		KeyPrefixes:   []string{"adj:"},
		OriginatorIDs: map[string]struct{}{"A": {}},
		Operator:      FilterOr,
	}
	if !f.Match("other:1", "A") {
		t.Fatal("expected OR match on originator alone")
	}
	if !f.Match("adj:1", "B") {
		t.Fatal("expected OR match on prefix alone")
	}
	if f.Match("other:1", "B") {
		t.Fatal("expected OR mismatch when neither criterion matches")
	}
}
