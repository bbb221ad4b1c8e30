package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"stopsale/internal"
	"stopsale/internal/catalog"
)

// ExportRowsToXLSX writes resolved rows of one email into an xlsx review
// sheet for the operations team.
func ExportRowsToXLSX(idx *catalog.Index, email internal.EmailRow, rows []internal.StoredRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "hotel_text", "room_text", "markets_text",
		"start_date", "end_date", "action", "status",
		"hotel", "hotel_score", "rooms", "room_score",
		"markets", "contracts", "sender", "message_id",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		hotelName := ""
		if row.HotelID != nil {
			if hotel, ok := idx.HotelsByID[*row.HotelID]; ok {
				hotelName = hotel.Name
			}
		}
		var roomNames []string
		for _, id := range row.RoomIDs {
			if room, ok := idx.RoomsByID[id]; ok {
				roomNames = append(roomNames, room.Name)
			}
		}

		set(1, row.LineNo)
		set(2, row.Row.HotelName)
		set(3, row.Row.RoomType)
		set(4, strings.Join(row.Row.Markets, ", "))
		set(5, row.Row.StartDate)
		set(6, row.Row.EndDate)
		set(7, string(row.Row.Action))
		set(8, string(row.Status))
		set(9, hotelName)
		set(10, row.HotelScore)
		set(11, strings.Join(roomNames, ", "))
		set(12, row.RoomScore)
		set(13, strings.Join(row.Markets, ", "))
		set(14, strings.Join(row.Contracts, ", "))
		set(15, email.Sender)
		set(16, email.MessageID)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
