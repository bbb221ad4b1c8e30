package pipeline

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"stopsale/internal/util"
)

// Match scores are on a 0..100 scale throughout the pipeline. Learning
// records keep their own scales (0..1 or integer 0..100) and are converted
// where they meet a match score.

const (
	baseNameBonus   = 0.4
	testNamePenalty = 0.2
	testNameSoft    = 0.05
)

var roomKeyTerms = map[string]struct{}{
	"FAMILY": {}, "BUNK": {}, "BED": {}, "ROOM": {}, "SUITE": {},
}

// ratio is a character-level sequence similarity in [0,1]:
// 2*LCS / (len(a)+len(b)).
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	lcs := edlib.LCS(a, b)
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

// ScoreHotelName rates a free-text hotel name against a catalog hotel name.
// Exact match wins outright, exact normalized match nearly so; otherwise a
// blend of raw and normalized character ratios with a shared-first-word
// bonus and a placeholder-name penalty.
func ScoreHotelName(candidate, catalogName string) float64 {
	c := strings.TrimSpace(candidate)
	n := strings.TrimSpace(catalogName)
	if c == "" || n == "" {
		return 0
	}
	if strings.EqualFold(c, n) {
		return 100
	}

	normC := util.NormalizeHotelName(c)
	normN := util.NormalizeHotelName(n)
	if normC != "" && normC == normN && len(normC) >= 3 {
		return 95
	}

	score := 0.5*ratio(util.Fold(c), util.Fold(n)) + 0.5*ratio(normC, normN)

	bonusApplied := false
	firstC := firstWord(util.Fold(c))
	firstN := firstWord(util.Fold(n))
	if firstC != "" && firstC == firstN && len(firstC) >= 4 {
		score += baseNameBonus
		bonusApplied = true
	}

	if strings.Contains(util.Fold(n), "TEST") {
		if bonusApplied {
			score -= testNameSoft
		} else {
			score -= testNamePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score * 100
}

// ScoreRoomName rates a free-text room type against a catalog room name.
// Exact (case-insensitive) match wins; otherwise a token-set ratio with an
// override path when enough key terms (family/bunk/bed/room/suite) are
// shared.
func ScoreRoomName(candidate, roomName string) float64 {
	c := strings.TrimSpace(candidate)
	r := strings.TrimSpace(roomName)
	if c == "" || r == "" {
		return 0
	}
	if strings.EqualFold(c, r) {
		return 100
	}

	normC := util.NormalizeRoomType(c)
	normR := util.NormalizeRoomType(r)
	score := tokenSetRatio(normC, normR) * 100

	wordsC := util.WordSet(normC)
	wordsR := util.WordSet(normR)
	intersection := 0
	keyTerms := 0
	for w := range wordsC {
		if _, ok := wordsR[w]; ok {
			intersection++
			if _, key := roomKeyTerms[w]; key {
				keyTerms++
			}
		}
	}
	union := len(wordsC) + len(wordsR) - intersection
	if keyTerms >= 2 && union > 0 && float64(intersection)/float64(union) >= 0.5 {
		override := float64(85 + 3*keyTerms)
		if override > score {
			score = override
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// tokenSetRatio compares the alphabetically sorted distinct tokens of both
// strings, making the measure word-order insensitive.
func tokenSetRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	set := util.WordSet(s)
	tokens := make([]string, 0, len(set))
	for t := range set {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
