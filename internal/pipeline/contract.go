package pipeline

import (
	"fmt"
	"sort"
)

// ContractCoverage summarizes which of a hotel's contracts the resolved
// markets touch. Matched holds distinct contract names, Total the number
// of distinct contract names the hotel has at all. AllMarkets records
// whether the row targeted every market rather than a concrete set.
type ContractCoverage struct {
	Matched    []string
	Total      int
	AllMarkets bool
}

// HasCoverage reports whether the row restricts at least one contract. An
// all-markets row against a hotel without contracts trivially has
// coverage; a concrete market set must actually match something.
func (c ContractCoverage) HasCoverage() bool {
	if c.AllMarkets {
		return c.Total == 0 || len(c.Matched) > 0
	}
	return len(c.Matched) > 0
}

// Display renders coverage as "name1, name2 (2/5)" for row listings.
func (c ContractCoverage) Display() string {
	names := ""
	for i, n := range c.Matched {
		if i > 0 {
			names += ", "
		}
		names += n
	}
	if names == "" {
		return fmt.Sprintf("(%d/%d)", len(c.Matched), c.Total)
	}
	return fmt.Sprintf("%s (%d/%d)", names, len(c.Matched), c.Total)
}

// MatchingContracts returns the hotel's contracts affected by the given
// resolved markets. The ALL sentinel (or no markets) matches every
// contract; otherwise a contract matches when its market is one of the
// resolved markets.
func (r *Resolver) MatchingContracts(hotelID int, markets []string) ContractCoverage {
	contracts := r.idx.ContractsByHotel[hotelID]
	allMarkets := MarketsAreAll(markets)

	totalSet := map[string]struct{}{}
	for _, c := range contracts {
		totalSet[c.Name] = struct{}{}
	}

	matchedSet := map[string]struct{}{}
	if allMarkets {
		for name := range totalSet {
			matchedSet[name] = struct{}{}
		}
	} else {
		marketIDs := map[int]struct{}{}
		for _, id := range r.marketIDsByName(markets) {
			marketIDs[id] = struct{}{}
		}
		for _, c := range contracts {
			if _, ok := marketIDs[c.MarketID]; ok {
				matchedSet[c.Name] = struct{}{}
			}
		}
	}

	matched := make([]string, 0, len(matchedSet))
	for name := range matchedSet {
		matched = append(matched, name)
	}
	sort.Strings(matched)

	return ContractCoverage{Matched: matched, Total: len(totalSet), AllMarkets: allMarkets}
}
