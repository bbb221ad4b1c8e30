package pipeline

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/config"
	"stopsale/internal/storage"
)

func seedTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.UpsertHotels([]internal.Hotel{
		{ID: 1, Name: "Sunshine Resort", Code: "SUN"},
		{ID: 2, Name: "Moonlight Palace Hotel", Code: "MOON"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertRooms([]internal.Room{
		{ID: 11, HotelID: 1, Name: "Standard Room Land View", Code: "STD-LV"},
		{ID: 13, HotelID: 1, Name: "Superior Room", Code: "SUP"},
		{ID: 14, HotelID: 1, Name: "Superior Room Sea View", Code: "SUP-SV"},
		{ID: 15, HotelID: 1, Name: "Family Room With Bunk Bed", Code: "FAM-BB"},
		{ID: 16, HotelID: 1, Name: "Large Family Room With Bunk Bed", Code: "FAM-BBL"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMarkets([]internal.Market{
		{ID: 1, Name: "DE", Active: true},
		{ID: 2, Name: "EU GROUP", Active: true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMarketAlias("EUROPE", []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertContracts([]internal.Contract{
		{ID: 1, HotelID: 1, MarketID: 1, Name: "Summer DE", Season: "S26"},
	}); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestConfirmationPropagatesRoomsToSiblings(t *testing.T) {
	db := seedTestDB(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}

	importer := NewImporter(db, zerolog.Nop())
	row := internal.ExtractedRow{
		HotelName: "Sunshine Resort",
		RoomType:  "Aile Ranza Oda",
		Markets:   []string{"DE"},
		StartDate: "2026-07-01",
		EndDate:   "2026-07-10",
		Action:    internal.ActionStop,
	}
	rowTwo := row
	rowTwo.StartDate = "2026-08-01"
	rowTwo.EndDate = "2026-08-10"
	imported, err := importer.ImportEnvelope(FeedEnvelope{
		Provider:  "json",
		MessageID: "<d@example.com>",
		Sender:    "Agent <agent@sunshine.example>",
		Rows:      []internal.ExtractedRow{row, rowTwo},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Resolve hotels but leave both rooms open. No groups exist yet, so
	// both rows land in room_not_found.
	processor := NewProcessingService(db, cfg, zerolog.Nop())
	if _, err := processor.ProcessEmail(imported.EmailID); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListFeedRows(imported.EmailID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Status != internal.StatusRoomNotFound {
			t.Fatalf("row %d: expected room_not_found before confirmation, got %s", r.ID, r.Status)
		}
	}

	idx, err := catalog.LoadIndex(db)
	if err != nil {
		t.Fatal(err)
	}
	learner := NewLearner(db, idx, zerolog.Nop())
	confirmed := []internal.Room{idx.RoomsByID[15], idx.RoomsByID[16]}
	if err := learner.LearnFromConfirmation(Confirmation{
		Row:     rows[0],
		Hotel:   idx.HotelsByID[1],
		Rooms:   confirmed,
		Markets: []string{"DE"},
		Sender:  "agent@sunshine.example",
	}); err != nil {
		t.Fatal(err)
	}

	// The sibling row shares hotel and room text, so it receives the
	// identical room set without re-scoring.
	sibling, err := db.GetFeedRow(rows[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sibling.RoomIDs, []int{15, 16}) {
		t.Fatalf("expected propagated rooms [15 16], got %v", sibling.RoomIDs)
	}
	if sibling.Status != internal.StatusPending {
		t.Fatalf("propagated row must become pending, got %s", sibling.Status)
	}

	// The confirmation also taught a group, so a fresh resolution pass over
	// fresh snapshots resolves the same text directly.
	idx, err = catalog.LoadIndex(db)
	if err != nil {
		t.Fatal(err)
	}
	view, err := LoadLearning(db)
	if err != nil {
		t.Fatal(err)
	}
	resolver := NewResolver(cfg, idx, view, zerolog.Nop())
	res := resolver.ResolveRoom(idx.HotelsByID[1], "aile ranza oda")
	if len(res.Rooms) != 2 {
		t.Fatalf("expected learned resolution to 2 rooms, got %+v", res.Rooms)
	}
}

func TestLearnFromConfirmationIdempotent(t *testing.T) {
	db := seedTestDB(t)

	importer := NewImporter(db, zerolog.Nop())
	imported, err := importer.ImportEnvelope(FeedEnvelope{
		Provider:  "json",
		MessageID: "<i@example.com>",
		Rows: []internal.ExtractedRow{{
			HotelName: "Sunshine Resort", RoomType: "Superior Room", Markets: []string{"Europe"},
			StartDate: "2026-07-01", EndDate: "2026-07-10", Action: internal.ActionStop,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListFeedRows(imported.EmailID)
	if err != nil {
		t.Fatal(err)
	}

	idx, err := catalog.LoadIndex(db)
	if err != nil {
		t.Fatal(err)
	}
	learner := NewLearner(db, idx, zerolog.Nop())
	c := Confirmation{
		Row:     rows[0],
		Hotel:   idx.HotelsByID[1],
		Rooms:   []internal.Room{idx.RoomsByID[13]},
		Markets: []string{"DE", "EU GROUP"},
	}
	for i := 0; i < 3; i++ {
		if err := learner.LearnFromConfirmation(c); err != nil {
			t.Fatal(err)
		}
	}

	groups, err := db.ListRoomTypeGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("repeated confirmation must not duplicate groups, got %d", len(groups))
	}
	variants, err := db.ListRoomTypeVariants()
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 1 {
		t.Fatalf("repeated confirmation must not duplicate variants, got %d", len(variants))
	}

	l, err := db.GetHotelLearning("Sunshine Resort")
	if err != nil {
		t.Fatal(err)
	}
	if l == nil || l.Frequency != 3 {
		t.Fatalf("expected frequency 3, got %+v", l)
	}

	matches, err := db.ListMarketMatches()
	if err != nil {
		t.Fatal(err)
	}
	// "Europe" is an alias, so one record per linked market.
	if len(matches) != 2 {
		t.Fatalf("expected 2 market match records, got %d", len(matches))
	}
}

func TestRejectRowWritesBlacklist(t *testing.T) {
	db := seedTestDB(t)

	importer := NewImporter(db, zerolog.Nop())
	imported, err := importer.ImportEnvelope(FeedEnvelope{
		Provider:  "json",
		MessageID: "<r@example.com>",
		Sender:    "spam@example.com",
		Rows: []internal.ExtractedRow{{
			HotelName: "Sunshine Resort", RoomType: "Mystery Suite", Markets: []string{"DE"},
			StartDate: "2026-07-01", EndDate: "2026-07-10", Action: internal.ActionStop,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	processor := NewProcessingService(db, cfg, zerolog.Nop())
	if _, err := processor.ProcessEmail(imported.EmailID); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListFeedRows(imported.EmailID)
	if err != nil {
		t.Fatal(err)
	}

	idx, err := catalog.LoadIndex(db)
	if err != nil {
		t.Fatal(err)
	}
	learner := NewLearner(db, idx, zerolog.Nop())
	if err := learner.RejectRow(rows[0], internal.StatusRejectedRoom, "spam@example.com"); err != nil {
		t.Fatal(err)
	}

	rejects, err := db.ListRoomRejects()
	if err != nil {
		t.Fatal(err)
	}
	if len(rejects) != 1 || rejects[0].HotelID != 1 {
		t.Fatalf("expected one blacklist entry for hotel 1, got %+v", rejects)
	}

	if err := learner.RejectRow(rows[0], internal.StatusBlockedHotelMissing, "spam@example.com"); err != nil {
		t.Fatal(err)
	}
	blocked, err := db.ListBlockedSenders()
	if err != nil {
		t.Fatal(err)
	}
	if len(blocked) != 1 || blocked[0] != "spam@example.com" {
		t.Fatalf("expected blocked sender, got %v", blocked)
	}
}
