package pipeline

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/config"
)

func testIndex() *catalog.Index {
	hotels := []internal.Hotel{
		{ID: 1, Name: "Sunshine Resort", Code: "SUN"},
		{ID: 2, Name: "Moonlight Palace Hotel", Code: "MOON"},
		{ID: 3, Name: "Sunshine Beach Club", Code: "SBC"},
	}
	rooms := []internal.Room{
		{ID: 11, HotelID: 1, Name: "Standard Room Land View", Code: "STD-LV"},
		{ID: 12, HotelID: 1, Name: "Standard Room Sea View", Code: "STD-SV"},
		{ID: 13, HotelID: 1, Name: "Superior Room", Code: "SUP"},
		{ID: 14, HotelID: 1, Name: "Superior Room Sea View", Code: "SUP-SV"},
		{ID: 15, HotelID: 1, Name: "Family Room With Bunk Bed", Code: "FAM-BB"},
		{ID: 16, HotelID: 1, Name: "Large Family Room With Bunk Bed", Code: "FAM-BBL"},
		{ID: 21, HotelID: 2, Name: "Deluxe Room", Code: "DLX"},
	}
	markets := []internal.Market{
		{ID: 1, Name: "DE", Active: true},
		{ID: 2, Name: "EU GROUP", Active: true},
		{ID: 3, Name: "UK", Active: true},
	}
	aliases := []internal.MarketAlias{
		{ID: 1, Alias: "EUROPE", MarketIDs: []int{1, 2}},
	}
	contracts := []internal.Contract{
		{ID: 1, HotelID: 1, MarketID: 1, Name: "Summer DE", Season: "S26"},
		{ID: 2, HotelID: 1, MarketID: 3, Name: "Summer UK", Season: "S26"},
		{ID: 3, HotelID: 1, MarketID: 1, Name: "Winter DE", Season: "W26"},
	}
	groups := []internal.RoomTypeGroup{
		{ID: 1, HotelID: 1, Name: "BED BUNK FAMILY"},
	}
	variants := []internal.RoomTypeVariant{
		{ID: 1, GroupID: 1, Name: "Family Room With Bunk Bed"},
	}
	return catalog.BuildIndex(hotels, rooms, markets, aliases, contracts, groups, variants)
}

func newTestResolver(t *testing.T, view *LearningView) *Resolver {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return NewResolver(cfg, testIndex(), view, zerolog.Nop())
}

func TestExactHotelNamePrimacy(t *testing.T) {
	r := newTestResolver(t, nil)

	best, _ := r.ResolveHotel("sunshine resort")
	if best == nil || best.Hotel.ID != 1 {
		t.Fatalf("expected hotel 1, got %+v", best)
	}
	if best.Score != 100 {
		t.Fatalf("exact name must score 100, got %.2f", best.Score)
	}
}

func TestHotelFuzzyNoiseWords(t *testing.T) {
	r := newTestResolver(t, nil)

	row := internal.ExtractedRow{HotelName: "Sunshine Resort Hotel", RoomType: "ALL ROOMS", Markets: []string{"DE"}}
	resolved := r.ResolveRow(row, "")
	if resolved.Hotel == nil || resolved.Hotel.ID != 1 {
		t.Fatalf("expected hotel 1, got %+v", resolved.Hotel)
	}
	if resolved.HotelScore < 75 || resolved.HotelScore > 100 {
		t.Fatalf("score out of range: %.2f", resolved.HotelScore)
	}
	if resolved.Status != internal.StatusPending {
		t.Fatalf("expected pending, got %s", resolved.Status)
	}
}

func TestHotelNotFoundClearsAssignments(t *testing.T) {
	r := newTestResolver(t, nil)

	row := internal.ExtractedRow{HotelName: "Completely Different Place", RoomType: "Standard Room", Markets: []string{"DE"}}
	resolved := r.ResolveRow(row, "")
	if resolved.Status != internal.StatusHotelNotFound {
		t.Fatalf("expected hotel_not_found, got %s", resolved.Status)
	}
	if resolved.Hotel != nil || len(resolved.Rooms) != 0 || len(resolved.Markets) != 0 {
		t.Fatalf("unresolved row must carry no assignments: %+v", resolved)
	}
}

func TestResolveRowDeterminism(t *testing.T) {
	r := newTestResolver(t, nil)

	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "Superior Room", Markets: []string{"Europe", "UK"}}
	first := r.ResolveRow(row, "")
	second := r.ResolveRow(row, "")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestSenderForcesHotel(t *testing.T) {
	view := EmptyLearning()
	view.AddSender(internal.SenderHotelMatch{Sender: "agent@moonlight.example", HotelID: 2, Score: 70})
	r := newTestResolver(t, view)

	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "Deluxe Room", Markets: []string{"DE"}}
	resolved := r.ResolveRow(row, "agent@moonlight.example")
	if resolved.Hotel == nil || resolved.Hotel.ID != 2 {
		t.Fatalf("sender association must win over name scoring, got %+v", resolved.Hotel)
	}
	if resolved.HotelScore != 85 {
		t.Fatalf("forced hotel must carry the floor score, got %.2f", resolved.HotelScore)
	}
}

func TestWeakSenderDoesNotForceHotel(t *testing.T) {
	view := EmptyLearning()
	view.AddSender(internal.SenderHotelMatch{Sender: "agent@moonlight.example", HotelID: 2, Score: 40})
	r := newTestResolver(t, view)

	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "ALL ROOMS", Markets: nil}
	resolved := r.ResolveRow(row, "agent@moonlight.example")
	if resolved.Hotel == nil || resolved.Hotel.ID != 1 {
		t.Fatalf("weak sender score must fall through to name scoring, got %+v", resolved.Hotel)
	}
}

func TestSentinelRoomBypass(t *testing.T) {
	r := newTestResolver(t, nil)

	for _, sentinel := range []string{"ALL ROOM", "all rooms", "ALL ROOM TYPES", "TÜM ODALAR"} {
		row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: sentinel, Markets: []string{"DE"}}
		resolved := r.ResolveRow(row, "")
		if resolved.Status != internal.StatusPending {
			t.Fatalf("%q: expected pending, got %s", sentinel, resolved.Status)
		}
		if len(resolved.Rooms) != 0 {
			t.Fatalf("%q: sentinel must not assign rooms", sentinel)
		}
		if resolved.SearchPattern == nil || *resolved.SearchPattern != PatternAllRooms {
			t.Fatalf("%q: expected %s pattern", sentinel, PatternAllRooms)
		}
	}
}

func TestBlacklistShortCircuit(t *testing.T) {
	view := EmptyLearning()
	view.AddReject(internal.RoomReject{HotelID: 1, RoomTypeText: "Standard Room Land View", MarketName: "DE"})
	r := newTestResolver(t, view)

	// The room text matches a catalog room exactly, so any scorer run
	// would assign it. The reject must win before scoring happens.
	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "Standard Room Land View", Markets: []string{"DE"}}
	resolved := r.ResolveRow(row, "")
	if resolved.Status != internal.StatusRoomNotFound {
		t.Fatalf("expected room_not_found, got %s", resolved.Status)
	}
	if len(resolved.Rooms) != 0 || resolved.RoomScore != 0 {
		t.Fatalf("blacklisted row must not be scored: %+v", resolved)
	}
}

func TestBlacklistChecksFirstMarketOnly(t *testing.T) {
	view := EmptyLearning()
	view.AddReject(internal.RoomReject{HotelID: 1, RoomTypeText: "Standard Room Land View", MarketName: "UK"})
	r := newTestResolver(t, view)

	// Resolved markets come back sorted, so DE leads and the UK reject
	// must not fire.
	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "Standard Room Land View", Markets: []string{"UK", "DE"}}
	resolved := r.ResolveRow(row, "")
	if resolved.Status != internal.StatusPending {
		t.Fatalf("reject on a trailing market must not short-circuit, got %s", resolved.Status)
	}
	if len(resolved.Rooms) == 0 {
		t.Fatal("row should have resolved its room")
	}

	// With UK leading the same reject applies.
	row.Markets = []string{"UK"}
	resolved = r.ResolveRow(row, "")
	if resolved.Status != internal.StatusRoomNotFound {
		t.Fatalf("expected room_not_found for the rejected leading market, got %s", resolved.Status)
	}
}

func TestCommaSeparatedRoomsUnsupported(t *testing.T) {
	r := newTestResolver(t, nil)

	row := internal.ExtractedRow{HotelName: "Sunshine Resort", RoomType: "Standard Room Land View, Superior Room", Markets: []string{"DE"}}
	resolved := r.ResolveRow(row, "")
	if resolved.Status != internal.StatusRoomNotFound {
		t.Fatalf("expected room_not_found, got %s", resolved.Status)
	}
	if len(resolved.Rooms) != 0 {
		t.Fatalf("multi-room text must never be guessed: %+v", resolved.Rooms)
	}
}

func TestRoomContainsExpansion(t *testing.T) {
	r := newTestResolver(t, nil)

	res := r.ResolveRoom(internal.Hotel{ID: 1, Name: "Sunshine Resort"}, "Superior Room")
	if res.Score < 80 {
		t.Fatalf("expected accepted match, got score %.2f", res.Score)
	}
	got := map[int]bool{}
	for _, room := range res.Rooms {
		got[room.ID] = true
	}
	if !got[13] || !got[14] {
		t.Fatalf("expected size variants 13 and 14, got %+v", res.Rooms)
	}
}

func TestLearnedHotelShortCircuit(t *testing.T) {
	view := EmptyLearning()
	view.AddHotel(internal.HotelLearning{MailName: "SS RESORT & SPA", HotelID: 1, Confidence: 0.8})
	r := newTestResolver(t, view)

	best, suggestions := r.ResolveHotel("ss resort & spa")
	if best == nil || best.Hotel.ID != 1 {
		t.Fatalf("expected learned hotel 1, got %+v", best)
	}
	if best.Score != 80 {
		t.Fatalf("learned score must be confidence*100, got %.2f", best.Score)
	}
	if len(suggestions) != 1 {
		t.Fatalf("learned match must be the only suggestion, got %d", len(suggestions))
	}
}

func TestLowConfidenceLearningIgnored(t *testing.T) {
	view := EmptyLearning()
	view.AddHotel(internal.HotelLearning{MailName: "XYZ PLACE", HotelID: 2, Confidence: 0.5})
	r := newTestResolver(t, view)

	best, _ := r.ResolveHotel("XYZ PLACE")
	if best != nil {
		t.Fatalf("low-confidence learning must not resolve, got %+v", best)
	}
}
