package pipeline

import (
	"strings"

	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/config"
)

// Resolver turns extracted rows into resolved rows against a catalog
// snapshot and a learning snapshot. It holds no mutable state and is safe
// for concurrent use.
type Resolver struct {
	cfg  config.Config
	idx  *catalog.Index
	view *LearningView
	log  zerolog.Logger
}

func NewResolver(cfg config.Config, idx *catalog.Index, view *LearningView, log zerolog.Logger) *Resolver {
	if view == nil {
		view = EmptyLearning()
	}
	return &Resolver{cfg: cfg, idx: idx, view: view, log: log}
}

// ResolveRow resolves one extracted row. The sender address, when known,
// can pin the hotel before any name matching happens. The returned row is
// pending when both hotel and rooms resolved, hotel_not_found or
// room_not_found otherwise.
func (r *Resolver) ResolveRow(row internal.ExtractedRow, sender string) internal.ResolvedRow {
	resolved := internal.ResolvedRow{ExtractedRow: row, Status: internal.StatusPending}

	hotel, hotelScore := r.resolveRowHotel(row.HotelName, sender)
	if hotel == nil {
		resolved.Status = internal.StatusHotelNotFound
		resolved.HotelScore = hotelScore
		return resolved
	}
	resolved.Hotel = hotel
	resolved.HotelScore = hotelScore

	resolved.Markets = r.ResolveMarkets(row.Markets)

	// The reject check keys on the first resolved market only; rejections
	// for the remaining markets apply once a row leads with them.
	if len(resolved.Markets) > 0 {
		market := resolved.Markets[0]
		if r.view.HasReject(hotel.ID, row.RoomType, market) {
			r.log.Debug().
				Str("hotel", hotel.Name).
				Str("roomType", row.RoomType).
				Str("market", market).
				Msg("room type rejected earlier for this hotel and market")
			resolved.Status = internal.StatusRoomNotFound
			return resolved
		}
	}

	roomRes := r.ResolveRoom(*hotel, row.RoomType)
	resolved.Rooms = roomRes.Rooms
	resolved.RoomScore = roomRes.Score
	resolved.SearchPattern = roomRes.SearchPattern
	if roomRes.SearchPattern == nil || (*roomRes.SearchPattern != PatternAllRooms && len(roomRes.Rooms) == 0) {
		resolved.Status = internal.StatusRoomNotFound
		return resolved
	}

	resolved.Contracts = r.MatchingContracts(hotel.ID, resolved.Markets).Matched
	return resolved
}

// ResolveBatch resolves rows in input order. Order in, order out.
func (r *Resolver) ResolveBatch(rows []internal.ExtractedRow, sender string) []internal.ResolvedRow {
	out := make([]internal.ResolvedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.ResolveRow(row, sender))
	}
	return out
}

// resolveRowHotel picks the hotel for a row. A strong sender association
// wins outright with a floored score; otherwise the best fuzzy candidate
// must clear the unattended threshold.
func (r *Resolver) resolveRowHotel(hotelName, sender string) (*internal.Hotel, float64) {
	if sender != "" {
		if m, ok := r.view.SenderBest[strings.ToLower(sender)]; ok && m.Score >= r.cfg.SenderHotelMinScore {
			if hotel, exists := r.idx.HotelsByID[m.HotelID]; exists {
				score := float64(m.Score)
				if score < r.cfg.SenderHotelFloor {
					score = r.cfg.SenderHotelFloor
				}
				return &hotel, score
			}
		}
	}

	best, _ := r.ResolveHotel(hotelName)
	if best == nil || best.Score < r.cfg.HotelFuzzyMatchThreshold {
		if best != nil {
			return nil, best.Score
		}
		return nil, 0
	}
	hotel := best.Hotel
	return &hotel, best.Score
}
