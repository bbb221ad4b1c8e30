package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/config"
	"stopsale/internal/listener"
	"stopsale/internal/pipeline"
	"stopsale/internal/storage"
	"stopsale/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := util.NewLogger(cfg.AppEnv)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		svc := catalog.NewSyncService(db, cfg)
		result, err := svc.Sync(context.Background())
		must(err)
		fmt.Printf("catalog sync complete hotels=%d rooms=%d markets=%d aliases=%d contracts=%d\n",
			result.Hotels, result.Rooms, result.Markets, result.Aliases, result.Contracts)
	case "feed:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "feed file (.json or .xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		importer := pipeline.NewImporter(db, log)
		result, err := importer.ImportFile(*file)
		must(err)
		fmt.Printf("feed imported emailId=%d rows=%d dropped=%d\n", result.EmailID, result.Imported, result.Dropped)
	case "feed:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "specific internal email id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, log)
		if *emailID != 0 {
			result, err := processor.ProcessEmail(*emailID)
			must(err)
			fmt.Printf("processed email id=%d rows=%d resolved=%d failed=%d\n",
				result.EmailID, result.Total, result.Resolved, result.Failed)
			return
		}
		results, err := processor.ProcessPendingEmails(*batch)
		must(err)
		fmt.Printf("processed pending emails=%d\n", len(results))
	case "suggest:hotel":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "free-text hotel name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*text) == "" {
			must(fmt.Errorf("--text is required"))
		}
		resolver, err := newResolver(db, cfg, log)
		must(err)
		best, suggestions := resolver.ResolveHotel(*text)
		if best == nil {
			fmt.Println("no suggestions")
			return
		}
		for _, c := range suggestions {
			marker := " "
			if c.Score >= cfg.HotelAutoMatchInteractive {
				marker = "*"
			}
			fmt.Printf("%s %6.2f  [%d] %s\n", marker, c.Score, c.Hotel.ID, c.Hotel.Name)
		}
	case "suggest:room":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		hotelID := fs.Int("hotelId", 0, "catalog hotel id")
		text := fs.String("text", "", "free-text room type")
		_ = fs.Parse(os.Args[2:])
		if *hotelID == 0 || strings.TrimSpace(*text) == "" {
			must(fmt.Errorf("--hotelId and --text are required"))
		}
		resolver, err := newResolver(db, cfg, log)
		must(err)
		hotel, err := hotelByID(db, *hotelID)
		must(err)
		res, candidates := resolver.SuggestRooms(hotel, *text)
		if res.SearchPattern != nil {
			fmt.Printf("pattern: %s (score %.2f, %d rooms)\n", *res.SearchPattern, res.Score, len(res.Rooms))
		}
		for _, c := range candidates {
			fmt.Printf("  %6.2f  [%d] %s\n", c.Score, c.Room.ID, c.Room.Name)
		}
	case "confirm":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		rowID := fs.Int("rowId", 0, "feed row id")
		hotelID := fs.Int("hotelId", 0, "confirmed catalog hotel id")
		roomIDs := fs.String("rooms", "", "comma-separated confirmed room ids")
		allRooms := fs.Bool("allRooms", false, "confirmed as all rooms")
		_ = fs.Parse(os.Args[2:])
		if *rowID == 0 || *hotelID == 0 {
			must(fmt.Errorf("--rowId and --hotelId are required"))
		}
		must(confirmRow(db, cfg, log, *rowID, *hotelID, *roomIDs, *allRooms))
		fmt.Printf("row %d confirmed\n", *rowID)
	case "reject":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		rowID := fs.Int("rowId", 0, "feed row id")
		status := fs.String("status", string(internal.StatusRejected), "rejection status")
		_ = fs.Parse(os.Args[2:])
		if *rowID == 0 {
			must(fmt.Errorf("--rowId is required"))
		}
		must(rejectRow(db, log, *rowID, internal.RowStatus(*status)))
		fmt.Printf("row %d rejected as %s\n", *rowID, *status)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "internal email id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *emailID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--emailId and --out are required"))
		}
		idx, err := catalog.LoadIndex(db)
		must(err)
		email, err := db.GetEmailByID(*emailID)
		must(err)
		if email == nil {
			must(fmt.Errorf("email %d not found", *emailID))
		}
		rows, err := db.ListFeedRows(*emailID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no rows for emailId=%d", *emailID))
		}
		must(pipeline.ExportRowsToXLSX(idx, *email, rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "watch":
		s := listener.NewService(db, cfg, log)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func newResolver(db *storage.DB, cfg config.Config, log zerolog.Logger) (*pipeline.Resolver, error) {
	idx, err := catalog.LoadIndex(db)
	if err != nil {
		return nil, err
	}
	view, err := pipeline.LoadLearning(db)
	if err != nil {
		return nil, err
	}
	return pipeline.NewResolver(cfg, idx, view, log), nil
}

// confirmRow applies a human confirmation: persists the corrected
// resolution as approved, feeds the learning store and refreshes the
// email status once every row is terminal.
func confirmRow(db *storage.DB, cfg config.Config, log zerolog.Logger, rowID, hotelID int, roomList string, allRooms bool) error {
	row, err := db.GetFeedRow(rowID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("row %d not found", rowID)
	}
	email, err := db.GetEmailByID(row.EmailID)
	if err != nil {
		return err
	}
	if email == nil {
		return fmt.Errorf("email %d not found", row.EmailID)
	}

	idx, err := catalog.LoadIndex(db)
	if err != nil {
		return err
	}
	hotel, ok := idx.HotelsByID[hotelID]
	if !ok {
		return fmt.Errorf("hotel %d not in catalog", hotelID)
	}

	roomIDs, err := parseIDList(roomList)
	if err != nil {
		return err
	}
	if !allRooms && len(roomIDs) == 0 {
		return fmt.Errorf("--rooms or --allRooms is required")
	}
	rooms := make([]internal.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		room, ok := idx.RoomsByID[id]
		if !ok {
			return fmt.Errorf("room %d not in catalog", id)
		}
		if room.HotelID != hotelID {
			return fmt.Errorf("room %d belongs to another hotel", id)
		}
		rooms = append(rooms, room)
	}

	view, err := pipeline.LoadLearning(db)
	if err != nil {
		return err
	}
	resolver := pipeline.NewResolver(cfg, idx, view, log)
	markets := resolver.ResolveMarkets(row.Row.Markets)
	contracts := resolver.MatchingContracts(hotelID, markets).Matched

	resolved := internal.ResolvedRow{
		ExtractedRow: row.Row,
		Hotel:        &hotel,
		Rooms:        rooms,
		Markets:      markets,
		Contracts:    contracts,
		HotelScore:   100,
		RoomScore:    100,
		Status:       internal.StatusApproved,
	}
	if allRooms {
		pattern := pipeline.PatternAllRooms
		resolved.SearchPattern = &pattern
	}
	if err := db.UpdateRowResolution(rowID, resolved); err != nil {
		return err
	}

	sender := util.SenderAddress(email.Sender)
	learner := pipeline.NewLearner(db, idx, log)
	if err := learner.LearnFromConfirmation(pipeline.Confirmation{
		Row:       *row,
		Hotel:     hotel,
		Rooms:     rooms,
		Markets:   markets,
		Contracts: contracts,
		Sender:    sender,
		AllRooms:  allRooms,
	}); err != nil {
		return err
	}

	return refreshEmailStatus(db, row.EmailID)
}

func rejectRow(db *storage.DB, log zerolog.Logger, rowID int, status internal.RowStatus) error {
	row, err := db.GetFeedRow(rowID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("row %d not found", rowID)
	}
	email, err := db.GetEmailByID(row.EmailID)
	if err != nil {
		return err
	}
	sender := ""
	if email != nil {
		sender = util.SenderAddress(email.Sender)
	}

	idx, err := catalog.LoadIndex(db)
	if err != nil {
		return err
	}
	learner := pipeline.NewLearner(db, idx, log)
	if err := learner.RejectRow(*row, status, sender); err != nil {
		return err
	}
	return refreshEmailStatus(db, row.EmailID)
}

func refreshEmailStatus(db *storage.DB, emailID int) error {
	rows, err := db.ListFeedRows(emailID)
	if err != nil {
		return err
	}
	statuses := make([]internal.RowStatus, 0, len(rows))
	for _, r := range rows {
		if !pipeline.IsTerminal(r.Status) {
			return nil
		}
		statuses = append(statuses, r.Status)
	}
	return db.UpdateEmailStatus(emailID, pipeline.ReduceEmailStatus(statuses))
}

func hotelByID(db *storage.DB, id int) (internal.Hotel, error) {
	idx, err := catalog.LoadIndex(db)
	if err != nil {
		return internal.Hotel{}, err
	}
	hotel, ok := idx.HotelsByID[id]
	if !ok {
		return internal.Hotel{}, fmt.Errorf("hotel %d not in catalog", id)
	}
	return hotel, nil
}

func parseIDList(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func usage() {
	fmt.Println("usage: stopsale <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  feed:import --file=./inbox/feed.json")
	fmt.Println("  feed:process [--emailId=1] [--batch=20]")
	fmt.Println("  suggest:hotel --text=\"SUNSHINE RESORT\"")
	fmt.Println("  suggest:room --hotelId=1 --text=\"STANDARD LAND VIEW\"")
	fmt.Println("  confirm --rowId=1 --hotelId=1 [--rooms=1,2] [--allRooms]")
	fmt.Println("  reject --rowId=1 [--status=rejected_room_not_found]")
	fmt.Println("  export:xlsx --emailId=1 --out=./out/result.xlsx")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
