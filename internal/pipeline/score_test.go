package pipeline

import "testing"

func TestScoreHotelNameExact(t *testing.T) {
	if got := ScoreHotelName("Sunshine Resort", "SUNSHINE RESORT"); got != 100 {
		t.Fatalf("case-insensitive equality must score 100, got %.2f", got)
	}
}

func TestScoreHotelNameNormalizedEqual(t *testing.T) {
	got := ScoreHotelName("Sunshine Resort Hotel", "Sunshine Resort")
	if got != 95 {
		t.Fatalf("noise-word difference must score 95, got %.2f", got)
	}
}

func TestScoreHotelNameUnrelated(t *testing.T) {
	got := ScoreHotelName("Moonlight Palace", "Aqua Marina Club")
	if got >= 55 {
		t.Fatalf("unrelated names must stay below suggestion floor, got %.2f", got)
	}
}

func TestScoreHotelNameRange(t *testing.T) {
	pairs := [][2]string{
		{"Sunshine", "Sunshine Beach Club"},
		{"Grand Blue Resort & Spa", "Grand Blue"},
		{"X", "Sunshine Resort"},
	}
	for _, p := range pairs {
		got := ScoreHotelName(p[0], p[1])
		if got < 0 || got > 100 {
			t.Fatalf("%q vs %q: score %.2f out of range", p[0], p[1], got)
		}
	}
}

func TestScoreRoomNameExact(t *testing.T) {
	if got := ScoreRoomName("superior room", "Superior Room"); got != 100 {
		t.Fatalf("expected 100, got %.2f", got)
	}
}

func TestScoreRoomNameWordOrder(t *testing.T) {
	got := ScoreRoomName("Bunk Bed Family Room", "Family Room With Bunk Bed")
	if got < 80 {
		t.Fatalf("reordered room words must stay above threshold, got %.2f", got)
	}
}

func TestScoreRoomNameOccupancyPrefix(t *testing.T) {
	got := ScoreRoomName("DBL Standard Room Sea View", "Standard Room Sea View")
	if got < 80 {
		t.Fatalf("occupancy prefix must not sink the score, got %.2f", got)
	}
}
