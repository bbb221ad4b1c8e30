package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"stopsale/internal"
	"stopsale/internal/storage"
)

// dateUncertain marks a date the upstream extractor could not pin down.
// Rows carrying it are unusable and are dropped at import.
const dateUncertain = "UNCERTAIN"

// FeedEnvelope is one inbound feed file: the email metadata the upstream
// extraction subsystem saw, plus the rows it extracted.
type FeedEnvelope struct {
	Provider   string                  `json:"provider"`
	MessageID  string                  `json:"messageId"`
	Subject    string                  `json:"subject"`
	Sender     string                  `json:"sender"`
	ReceivedAt string                  `json:"receivedAt"`
	Rows       []internal.ExtractedRow `json:"rows"`
}

// Importer persists feed files into the emails and feed_rows tables.
// Importing the same file twice updates in place instead of duplicating.
type Importer struct {
	db  *storage.DB
	log zerolog.Logger
}

func NewImporter(db *storage.DB, log zerolog.Logger) *Importer {
	return &Importer{db: db, log: log}
}

// ImportResult summarizes one imported feed file.
type ImportResult struct {
	EmailID  int
	Imported int
	Dropped  int
}

// ImportFile dispatches on the file extension. JSON files carry a full
// envelope, xlsx files carry bare rows with the filename as identity.
func (i *Importer) ImportFile(path string) (ImportResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return i.importJSON(path)
	case ".xlsx":
		return i.importXLSX(path)
	default:
		return ImportResult{}, fmt.Errorf("unsupported feed file %q", filepath.Base(path))
	}
}

func (i *Importer) importJSON(path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	var env FeedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ImportResult{}, fmt.Errorf("parse feed %s: %w", filepath.Base(path), err)
	}
	if env.MessageID == "" {
		env.MessageID = filepath.Base(path)
	}
	if env.Provider == "" {
		env.Provider = "json"
	}
	return i.ImportEnvelope(env)
}

func (i *Importer) importXLSX(path string) (ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, err
	}

	env := FeedEnvelope{Provider: "xlsx", MessageID: filepath.Base(path)}
	for idx, cells := range rows {
		if idx == 0 {
			// Header row: Hotel, Room Type, Markets, Start, End, Action.
			continue
		}
		get := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}
		if get(0) == "" {
			continue
		}
		var markets []string
		for _, m := range strings.Split(get(2), ",") {
			if m = strings.TrimSpace(m); m != "" {
				markets = append(markets, m)
			}
		}
		env.Rows = append(env.Rows, internal.ExtractedRow{
			HotelName: get(0),
			RoomType:  get(1),
			Markets:   markets,
			StartDate: get(3),
			EndDate:   get(4),
			Action:    internal.SaleAction(strings.ToLower(get(5))),
		})
	}
	return i.ImportEnvelope(env)
}

// ImportEnvelope stores the email record and its usable rows. Rows with
// uncertain or missing dates never enter the queue.
func (i *Importer) ImportEnvelope(env FeedEnvelope) (ImportResult, error) {
	email, err := i.db.UpsertEmail(env.Provider, env.MessageID, env.Subject, env.Sender, env.ReceivedAt, EmailStatusNew)
	if err != nil {
		return ImportResult{}, fmt.Errorf("store email %s: %w", env.MessageID, err)
	}

	result := ImportResult{EmailID: email.ID}
	lineNo := 0
	for _, row := range env.Rows {
		if row.HotelName == "" || !usableDate(row.StartDate) || !usableDate(row.EndDate) {
			result.Dropped++
			i.log.Debug().
				Str("hotel", row.HotelName).
				Str("start", row.StartDate).
				Str("end", row.EndDate).
				Msg("dropping row with missing or uncertain data")
			continue
		}
		switch row.Action {
		case internal.ActionStop, internal.ActionOpen:
		case "":
			row.Action = internal.ActionStop
		default:
			result.Dropped++
			i.log.Debug().
				Str("hotel", row.HotelName).
				Str("action", string(row.Action)).
				Msg("dropping row with unrecognized action")
			continue
		}
		lineNo++
		if _, err := i.db.InsertFeedRow(email.ID, lineNo, row); err != nil {
			return result, fmt.Errorf("store row %d of email %d: %w", lineNo, email.ID, err)
		}
		result.Imported++
	}

	i.log.Info().
		Int("emailId", email.ID).
		Str("messageId", env.MessageID).
		Int("imported", result.Imported).
		Int("dropped", result.Dropped).
		Msg("feed imported")
	return result, nil
}

func usableDate(d string) bool {
	d = strings.TrimSpace(d)
	return d != "" && !strings.EqualFold(d, dateUncertain)
}
