package pipeline

import (
	"reflect"
	"testing"
)

func TestMatchingContractsAllMarkets(t *testing.T) {
	r := newTestResolver(t, nil)

	cov := r.MatchingContracts(1, []string{MarketAll})
	if !reflect.DeepEqual(cov.Matched, []string{"Summer DE", "Summer UK", "Winter DE"}) {
		t.Fatalf("ALL must match every contract, got %v", cov.Matched)
	}
	if cov.Total != 3 || !cov.HasCoverage() {
		t.Fatalf("unexpected coverage: %+v", cov)
	}
	if cov.Display() != "Summer DE, Summer UK, Winter DE (3/3)" {
		t.Fatalf("unexpected display: %s", cov.Display())
	}
}

func TestMatchingContractsByMarket(t *testing.T) {
	r := newTestResolver(t, nil)

	cov := r.MatchingContracts(1, []string{"DE"})
	if !reflect.DeepEqual(cov.Matched, []string{"Summer DE", "Winter DE"}) {
		t.Fatalf("expected DE contracts, got %v", cov.Matched)
	}
	if cov.Total != 3 {
		t.Fatalf("expected 3 distinct contracts, got %d", cov.Total)
	}
}

func TestMatchingContractsPseudoMarket(t *testing.T) {
	r := newTestResolver(t, nil)

	cov := r.MatchingContracts(1, []string{"SCANDINAVIA"})
	if len(cov.Matched) != 0 || cov.HasCoverage() {
		t.Fatalf("pseudo-market must match nothing: %+v", cov)
	}
}

func TestMatchingContractsNoContracts(t *testing.T) {
	r := newTestResolver(t, nil)

	// An all-markets row against a hotel without contracts trivially has
	// coverage. Kept as-is even though a (0/0) display reads oddly.
	cov := r.MatchingContracts(2, []string{MarketAll})
	if cov.Total != 0 || len(cov.Matched) != 0 {
		t.Fatalf("unexpected coverage: %+v", cov)
	}
	if !cov.HasCoverage() {
		t.Fatal("zero contracts must count as covered for an all-markets row")
	}
	if cov.Display() != "(0/0)" {
		t.Fatalf("unexpected display: %s", cov.Display())
	}

	// A concrete market set only has coverage when something matched, so
	// the same hotel queried with a real market reports none.
	cov = r.MatchingContracts(2, []string{"DE"})
	if cov.Total != 0 || len(cov.Matched) != 0 {
		t.Fatalf("unexpected coverage: %+v", cov)
	}
	if cov.HasCoverage() {
		t.Fatal("a concrete market set with no matched contracts must not count as covered")
	}
}
