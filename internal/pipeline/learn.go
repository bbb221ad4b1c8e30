package pipeline

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/storage"
	"stopsale/internal/util"
)

// Learner turns human confirmations and rejections into learning-store
// writes. Every write is a keyed upsert, so repeating the same
// confirmation is safe.
type Learner struct {
	db  *storage.DB
	idx *catalog.Index
	log zerolog.Logger
}

func NewLearner(db *storage.DB, idx *catalog.Index, log zerolog.Logger) *Learner {
	return &Learner{db: db, idx: idx, log: log}
}

// Confirmation is one human approval of a row's resolution.
type Confirmation struct {
	Row       internal.StoredRow
	Hotel     internal.Hotel
	Rooms     []internal.Room
	Markets   []string
	Contracts []string
	Sender    string
	AllRooms  bool
}

// LearnFromConfirmation records everything a confirmed row teaches:
// hotel name, sender association, room-type grouping, market names and
// the full contract triple. It also propagates the confirmed room set to
// sibling rows of the same email that share the hotel and room text but
// have no room resolution yet.
func (l *Learner) LearnFromConfirmation(c Confirmation) error {
	if err := l.db.UpsertHotelLearning(c.Row.Row.HotelName, c.Hotel.ID); err != nil {
		return fmt.Errorf("learn hotel name: %w", err)
	}
	if c.Sender != "" {
		if err := l.db.UpsertSenderHotelMatch(strings.ToLower(c.Sender), c.Hotel.ID); err != nil {
			return fmt.Errorf("learn sender: %w", err)
		}
	}

	if !c.AllRooms && len(c.Rooms) > 0 {
		if err := l.learnRoomGroup(c); err != nil {
			return err
		}
	}

	if err := l.learnMarkets(c.Row.Row.Markets); err != nil {
		return err
	}

	roomIDs := make([]int, 0, len(c.Rooms))
	for _, room := range c.Rooms {
		roomIDs = append(roomIDs, room.ID)
	}
	match := internal.ContractMatch{
		HotelText:     c.Row.Row.HotelName,
		RoomText:      c.Row.Row.RoomType,
		MarketText:    strings.Join(c.Row.Row.Markets, ","),
		HotelID:       c.Hotel.ID,
		RoomIDs:       roomIDs,
		MarketNames:   c.Markets,
		ContractNames: c.Contracts,
	}
	if err := l.db.UpsertContractMatch(match); err != nil {
		return fmt.Errorf("learn contract triple: %w", err)
	}

	if err := l.propagateRooms(c, roomIDs); err != nil {
		return err
	}

	l.log.Info().
		Int("rowId", c.Row.ID).
		Str("hotel", c.Hotel.Name).
		Int("rooms", len(c.Rooms)).
		Msg("confirmation learned")
	return nil
}

// learnRoomGroup files the confirmed rooms under a room-type group keyed
// by the normalized room text and points the learning record at the group,
// or straight at the room when exactly one was confirmed.
func (l *Learner) learnRoomGroup(c Confirmation) error {
	key := util.RoomGroupKey(c.Row.Row.RoomType)
	if key == "" {
		return nil
	}
	group, err := l.db.GetOrCreateRoomTypeGroup(c.Hotel.ID, key)
	if err != nil {
		return fmt.Errorf("room type group: %w", err)
	}
	for _, room := range c.Rooms {
		if _, err := l.db.GetOrCreateRoomTypeVariant(group.ID, room.Name); err != nil {
			return fmt.Errorf("room type variant: %w", err)
		}
	}

	var groupID, roomID *int
	if len(c.Rooms) == 1 {
		id := c.Rooms[0].ID
		roomID = &id
	} else {
		id := group.ID
		groupID = &id
	}
	if err := l.db.UpsertRoomGroupLearning(c.Hotel.ID, c.Row.Row.RoomType, groupID, roomID); err != nil {
		return fmt.Errorf("learn room type: %w", err)
	}
	return nil
}

// learnMarkets reinforces every mail market token that maps to catalog
// markets, directly or through an alias. Pseudo-markets teach nothing.
func (l *Learner) learnMarkets(tokens []string) error {
	for _, token := range tokens {
		name := strings.ToUpper(strings.TrimSpace(token))
		if name == "" || name == MarketAll {
			continue
		}
		if market, ok := l.idx.MarketByName[name]; ok {
			if err := l.db.UpsertMarketMatch(token, market.ID); err != nil {
				return fmt.Errorf("learn market %q: %w", token, err)
			}
			continue
		}
		for _, market := range l.idx.AliasMarkets[name] {
			if err := l.db.UpsertMarketMatch(token, market.ID); err != nil {
				return fmt.Errorf("learn market %q: %w", token, err)
			}
		}
	}
	return nil
}

// propagateRooms copies the confirmed room set to every other row of the
// same email with the same hotel and identical room text that has not
// resolved its rooms yet.
func (l *Learner) propagateRooms(c Confirmation, roomIDs []int) error {
	if c.AllRooms || len(roomIDs) == 0 {
		return nil
	}
	siblings, err := l.db.ListFeedRows(c.Row.EmailID)
	if err != nil {
		return fmt.Errorf("list sibling rows: %w", err)
	}
	for _, sib := range siblings {
		if sib.ID == c.Row.ID || len(sib.RoomIDs) > 0 {
			continue
		}
		if sib.HotelID == nil || *sib.HotelID != c.Hotel.ID {
			continue
		}
		if learnKey(sib.Row.RoomType) != learnKey(c.Row.Row.RoomType) {
			continue
		}
		if err := l.db.UpdateRowRooms(sib.ID, roomIDs, c.Row.RoomScore, internal.StatusPending); err != nil {
			return fmt.Errorf("propagate rooms to row %d: %w", sib.ID, err)
		}
		l.log.Debug().Int("rowId", sib.ID).Int("fromRow", c.Row.ID).Msg("room set propagated to sibling row")
	}
	return nil
}

// RejectRow records a human rejection. Room rejections write a blacklist
// entry per associated market so the combination never auto-matches
// again; blocking a hotel-missing row also blocklists the sender.
func (l *Learner) RejectRow(row internal.StoredRow, status internal.RowStatus, sender string) error {
	switch status {
	case internal.StatusRejected, internal.StatusRejectedHotel:
	case internal.StatusRejectedRoom:
		if row.HotelID != nil {
			markets := row.Markets
			if len(markets) == 0 {
				markets = []string{MarketAll}
			}
			for _, market := range markets {
				if err := l.db.InsertRoomReject(*row.HotelID, row.Row.RoomType, market); err != nil {
					return fmt.Errorf("record room reject: %w", err)
				}
			}
		}
	case internal.StatusBlockedHotelMissing:
		if sender != "" {
			if err := l.db.BlockSender(strings.ToLower(sender)); err != nil {
				return fmt.Errorf("block sender: %w", err)
			}
		}
	default:
		return fmt.Errorf("status %q is not a rejection", status)
	}

	if err := l.db.UpdateRowStatus(row.ID, status); err != nil {
		return fmt.Errorf("update row status: %w", err)
	}
	return nil
}
