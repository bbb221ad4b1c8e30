package pipeline

import (
	"reflect"
	"testing"
)

func TestMarketAllAbsorption(t *testing.T) {
	r := newTestResolver(t, nil)

	cases := [][]string{
		{"ALL"},
		{"all"},
		{"DE", "ALL", "UK"},
		nil,
		{},
	}
	for _, tokens := range cases {
		got := r.ResolveMarkets(tokens)
		if !reflect.DeepEqual(got, []string{MarketAll}) {
			t.Fatalf("tokens %v: expected [ALL], got %v", tokens, got)
		}
	}
}

func TestMarketAliasFanOut(t *testing.T) {
	r := newTestResolver(t, nil)

	got := r.ResolveMarkets([]string{"Europe"})
	if !reflect.DeepEqual(got, []string{"DE", "EU GROUP"}) {
		t.Fatalf("expected alias fan-out to [DE EU GROUP], got %v", got)
	}
}

func TestMarketExactAndPseudo(t *testing.T) {
	r := newTestResolver(t, nil)

	got := r.ResolveMarkets([]string{"de", "Scandinavia"})
	if !reflect.DeepEqual(got, []string{"DE", "SCANDINAVIA"}) {
		t.Fatalf("unknown markets must be kept as pseudo-markets, got %v", got)
	}
}

func TestMarketNoDuplicates(t *testing.T) {
	r := newTestResolver(t, nil)

	got := r.ResolveMarkets([]string{"Europe", "DE"})
	if !reflect.DeepEqual(got, []string{"DE", "EU GROUP"}) {
		t.Fatalf("expected de-duplicated [DE EU GROUP], got %v", got)
	}
}
