package util

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reParen      = regexp.MustCompile(`\([^)]*\)`)
	reLeadingOcc = regexp.MustCompile(`^(?:SNG|DBL|TPL|QDL|TWIN|SINGLE|DOUBLE|TRIPLE|QUAD|\d+\s*PAX)\b[\s.-]*`)
	reLeadDigits = regexp.MustCompile(`^\d+\s+`)
	rePaxCode    = regexp.MustCompile(`\d\s*/\s*\d\s*[A-Z]+(?:\s*\+\s*\d\s*/\s*\d\s*[A-Z]*CH?)?`)
	reDigitRuns  = regexp.MustCompile(`[0-9+]+`)
	reSpaces     = regexp.MustCompile(`\s+`)

	hotelNoiseWords = map[string]struct{}{
		"HOTEL": {}, "RESORT": {}, "SPA": {}, "PALACE": {}, "RESIDENCE": {}, "SUITES": {},
	}
)

// Fold strips diacritics (NFD decompose, drop combining marks) and
// uppercases, so that Turkish and accented spellings compare equal to
// their ASCII forms.
func Fold(input string) string {
	decomposed := norm.NFD.String(input)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r == 'ı' {
			r = 'i'
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// NormalizeRoomType canonicalizes a free-text room-type string: uppercase,
// parenthesized content removed, leading occupancy/bed-type token removed,
// PAX occupancy codes (2/2AD+1/1CH) removed, residual digit runs removed.
func NormalizeRoomType(input string) string {
	s := Fold(input)
	s = reParen.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = reLeadingOcc.ReplaceAllString(s, "")
	s = reLeadDigits.ReplaceAllString(s, "")
	s = rePaxCode.ReplaceAllString(s, " ")
	s = reDigitRuns.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// RoomGroupKey builds a word-order-insensitive grouping key: the normalized
// room type without the word ROOM, words sorted alphabetically. "Family Room
// With Bunk Bed" and "Bunk Bed Family Room" produce the same key.
func RoomGroupKey(input string) string {
	s := NormalizeRoomType(input)
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w == "ROOM" {
			continue
		}
		kept = append(kept, w)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// NormalizeHotelName canonicalizes a hotel name: uppercase, generic
// suffix/prefix words (HOTEL, RESORT, ...) and test/placeholder markers
// removed, whitespace collapsed.
func NormalizeHotelName(input string) string {
	s := Fold(input)
	s = strings.ReplaceAll(s, "DO NOT USE", " ")
	s = strings.ReplaceAll(s, "TEST", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, noise := hotelNoiseWords[w]; noise {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Tokenize splits a folded string into words of at least two runes.
func Tokenize(input string) []string {
	parts := strings.Fields(Fold(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// WordSet returns the distinct tokens of a folded string.
func WordSet(input string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range Tokenize(input) {
		set[t] = struct{}{}
	}
	return set
}
