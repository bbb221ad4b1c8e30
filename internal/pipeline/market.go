package pipeline

import (
	"sort"
	"strings"
)

// MarketAll is the sentinel meaning "no restriction to a market subset".
// Its presence in a resolved set absorbs every other entry.
const MarketAll = "ALL"

// ResolveMarkets maps free-text market tokens to canonical market names.
// Unknown tokens survive as uppercased pseudo-markets so the restriction is
// preserved for manual review rather than silently dropped.
func (r *Resolver) ResolveMarkets(tokens []string) []string {
	set := map[string]struct{}{}

	for _, token := range tokens {
		name := strings.ToUpper(strings.TrimSpace(token))
		if name == "" {
			continue
		}
		if name == MarketAll {
			set[MarketAll] = struct{}{}
			continue
		}

		if market, ok := r.idx.MarketByName[name]; ok {
			set[strings.ToUpper(market.Name)] = struct{}{}
			continue
		}

		if linked, ok := r.idx.AliasMarkets[name]; ok && len(linked) > 0 {
			for _, market := range linked {
				set[strings.ToUpper(market.Name)] = struct{}{}
			}
			continue
		}

		r.log.Debug().Str("market", name).Msg("market not in catalog, kept as-is")
		set[name] = struct{}{}
	}

	if len(set) == 0 {
		return []string{MarketAll}
	}
	if _, ok := set[MarketAll]; ok {
		return []string{MarketAll}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MarketsAreAll reports whether a resolved market set is the unrestricted
// sentinel (empty counts as unrestricted).
func MarketsAreAll(markets []string) bool {
	if len(markets) == 0 {
		return true
	}
	for _, m := range markets {
		if m == MarketAll {
			return true
		}
	}
	return false
}

// marketIDsByName maps resolved canonical names back to catalog markets,
// skipping pseudo-markets that have no catalog entry.
func (r *Resolver) marketIDsByName(names []string) []int {
	var ids []int
	for _, name := range names {
		if market, ok := r.idx.MarketByName[strings.ToUpper(name)]; ok {
			ids = append(ids, market.ID)
		}
	}
	sort.Ints(ids)
	return ids
}
