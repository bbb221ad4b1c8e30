package pipeline

import (
	"math"
	"sort"

	"stopsale/internal"
)

// ResolveHotel ranks every catalog hotel against a free-text hotel name.
// A learned mapping with enough confidence short-circuits the scoring pass
// entirely; otherwise all hotels scoring at least the suggestion floor are
// returned best-first.
func (r *Resolver) ResolveHotel(freeText string) (*internal.HotelCandidate, []internal.HotelCandidate) {
	if learned, ok := r.view.HotelByMailName[learnKey(freeText)]; ok && learned.Confidence >= r.cfg.LearnedMinConfidence {
		if hotel, exists := r.idx.HotelsByID[learned.HotelID]; exists {
			candidate := internal.HotelCandidate{Hotel: hotel, Score: math.Round(learned.Confidence * 100)}
			return &candidate, []internal.HotelCandidate{candidate}
		}
	}

	var suggestions []internal.HotelCandidate
	for _, hotel := range r.idx.Hotels {
		score := ScoreHotelName(freeText, hotel.Name)
		if score >= r.cfg.SuggestionMinScore {
			suggestions = append(suggestions, internal.HotelCandidate{Hotel: hotel, Score: score})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Hotel.ID < suggestions[j].Hotel.ID
	})

	if len(suggestions) == 0 {
		return nil, nil
	}
	best := suggestions[0]
	return &best, suggestions
}
