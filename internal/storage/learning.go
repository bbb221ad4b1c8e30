package storage

import (
	"database/sql"
	"encoding/json"
	"errors"

	"stopsale/internal"
)

// Learning store mutations are single-statement upserts so that concurrent
// confirmations of the same key serialize inside sqlite instead of racing
// read-modify-write in Go.
//
// Confidence mechanics: hotel and room-group learning start at 0.8 and
// reinforce with confidence += (1-confidence)*0.2, asymptotic to (but never
// reaching) 0.99 by capping. A confirmation that contradicts the stored
// entity resets the record to its initial state. Market and sender matches
// keep the source system's integer 0..100 scale with the analogous
// score += (100-score)/5 increment.

// UpsertHotelLearning records one confirmed (free-text hotel name, hotel)
// resolution.
func (d *DB) UpsertHotelLearning(mailName string, hotelID int) error {
	_, err := d.conn.Exec(`
INSERT INTO hotel_learning (mailName, hotelId) VALUES (?, ?)
ON CONFLICT(mailName) DO UPDATE SET
  confidence = CASE
    WHEN hotelId = excluded.hotelId THEN MIN(confidence + (1 - confidence) * 0.2, 0.9899)
    ELSE 0.8
  END,
  frequency = CASE WHEN hotelId = excluded.hotelId THEN frequency + 1 ELSE 1 END,
  hotelId = excluded.hotelId,
  updatedAt = CURRENT_TIMESTAMP
`, mailName, hotelID)
	return err
}

func (d *DB) GetHotelLearning(mailName string) (*internal.HotelLearning, error) {
	var l internal.HotelLearning
	err := d.conn.QueryRow(`
SELECT id, mailName, hotelId, confidence, frequency FROM hotel_learning WHERE mailName = ?`, mailName).
		Scan(&l.ID, &l.MailName, &l.HotelID, &l.Confidence, &l.Frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *DB) ListHotelLearning() ([]internal.HotelLearning, error) {
	rows, err := d.conn.Query(`SELECT id, mailName, hotelId, confidence, frequency FROM hotel_learning`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.HotelLearning
	for rows.Next() {
		var l internal.HotelLearning
		if err := rows.Scan(&l.ID, &l.MailName, &l.HotelID, &l.Confidence, &l.Frequency); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertRoomGroupLearning records one confirmed (hotel, free-text room type)
// resolution pointing at either a room-type group or a single room.
func (d *DB) UpsertRoomGroupLearning(hotelID int, mailRoomType string, groupID, roomID *int) error {
	_, err := d.conn.Exec(`
INSERT INTO room_group_learning (hotelId, mailRoomType, groupId, roomId) VALUES (?, ?, ?, ?)
ON CONFLICT(hotelId, mailRoomType) DO UPDATE SET
  confidence = CASE
    WHEN groupId IS excluded.groupId AND roomId IS excluded.roomId
      THEN MIN(confidence + (1 - confidence) * 0.2, 0.9899)
    ELSE 0.8
  END,
  frequency = CASE
    WHEN groupId IS excluded.groupId AND roomId IS excluded.roomId THEN frequency + 1
    ELSE 1
  END,
  groupId = excluded.groupId,
  roomId = excluded.roomId,
  updatedAt = CURRENT_TIMESTAMP
`, hotelID, mailRoomType, groupID, roomID)
	return err
}

func (d *DB) GetRoomGroupLearning(hotelID int, mailRoomType string) (*internal.RoomGroupLearning, error) {
	var l internal.RoomGroupLearning
	err := d.conn.QueryRow(`
SELECT id, hotelId, mailRoomType, groupId, roomId, confidence, frequency
FROM room_group_learning WHERE hotelId = ? AND mailRoomType = ?`, hotelID, mailRoomType).
		Scan(&l.ID, &l.HotelID, &l.MailRoomType, &l.GroupID, &l.RoomID, &l.Confidence, &l.Frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *DB) ListRoomGroupLearning() ([]internal.RoomGroupLearning, error) {
	rows, err := d.conn.Query(`
SELECT id, hotelId, mailRoomType, groupId, roomId, confidence, frequency FROM room_group_learning`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomGroupLearning
	for rows.Next() {
		var l internal.RoomGroupLearning
		if err := rows.Scan(&l.ID, &l.HotelID, &l.MailRoomType, &l.GroupID, &l.RoomID, &l.Confidence, &l.Frequency); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertMarketMatch reinforces a confirmed (free-text market name, market)
// pair. Integer 0..100 scale, capped at 100.
func (d *DB) UpsertMarketMatch(mailName string, marketID int) error {
	_, err := d.conn.Exec(`
INSERT INTO market_matches (mailName, marketId) VALUES (?, ?)
ON CONFLICT(mailName, marketId) DO UPDATE SET
  score = MIN(score + MAX((100 - score) / 5, 1), 100),
  frequency = frequency + 1
`, mailName, marketID)
	return err
}

func (d *DB) ListMarketMatches() ([]internal.MarketMatch, error) {
	rows, err := d.conn.Query(`SELECT id, mailName, marketId, score, frequency FROM market_matches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MarketMatch
	for rows.Next() {
		var m internal.MarketMatch
		if err := rows.Scan(&m.ID, &m.MailName, &m.MarketID, &m.Score, &m.Frequency); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertSenderHotelMatch reinforces a confirmed (sender address, hotel) pair.
func (d *DB) UpsertSenderHotelMatch(sender string, hotelID int) error {
	_, err := d.conn.Exec(`
INSERT INTO sender_hotel_matches (sender, hotelId) VALUES (?, ?)
ON CONFLICT(sender, hotelId) DO UPDATE SET
  score = MIN(score + MAX((100 - score) / 5, 1), 100),
  frequency = frequency + 1
`, sender, hotelID)
	return err
}

// GetBestSenderHotel returns the strongest learned hotel for a sender
// address, ties broken by frequency then id for determinism.
func (d *DB) GetBestSenderHotel(sender string) (*internal.SenderHotelMatch, error) {
	var m internal.SenderHotelMatch
	err := d.conn.QueryRow(`
SELECT id, sender, hotelId, score, frequency FROM sender_hotel_matches
WHERE sender = ? ORDER BY score DESC, frequency DESC, id ASC LIMIT 1`, sender).
		Scan(&m.ID, &m.Sender, &m.HotelID, &m.Score, &m.Frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *DB) ListSenderHotelMatches() ([]internal.SenderHotelMatch, error) {
	rows, err := d.conn.Query(`SELECT id, sender, hotelId, score, frequency FROM sender_hotel_matches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SenderHotelMatch
	for rows.Next() {
		var m internal.SenderHotelMatch
		if err := rows.Scan(&m.ID, &m.Sender, &m.HotelID, &m.Score, &m.Frequency); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertContractMatch records the full confirmed resolution of one source
// triple (hotel text, room text, market text).
func (d *DB) UpsertContractMatch(m internal.ContractMatch) error {
	roomIDsJSON, _ := json.Marshal(m.RoomIDs)
	marketsJSON, _ := json.Marshal(m.MarketNames)
	contractsJSON, _ := json.Marshal(m.ContractNames)
	_, err := d.conn.Exec(`
INSERT INTO contract_matches (hotelText, roomText, marketText, hotelId, roomIdsJson, marketNamesJson, contractNamesJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hotelText, roomText, marketText) DO UPDATE SET
  confidence = CASE
    WHEN hotelId = excluded.hotelId AND roomIdsJson = excluded.roomIdsJson AND contractNamesJson = excluded.contractNamesJson
      THEN MIN(confidence + (1 - confidence) * 0.2, 0.9899)
    ELSE 0.8
  END,
  frequency = CASE
    WHEN hotelId = excluded.hotelId AND roomIdsJson = excluded.roomIdsJson AND contractNamesJson = excluded.contractNamesJson
      THEN frequency + 1
    ELSE 1
  END,
  hotelId = excluded.hotelId,
  roomIdsJson = excluded.roomIdsJson,
  marketNamesJson = excluded.marketNamesJson,
  contractNamesJson = excluded.contractNamesJson
`, m.HotelText, m.RoomText, m.MarketText, m.HotelID, string(roomIDsJSON), string(marketsJSON), string(contractsJSON))
	return err
}

func (d *DB) GetContractMatch(hotelText, roomText, marketText string) (*internal.ContractMatch, error) {
	var m internal.ContractMatch
	var roomIDsJSON, marketsJSON, contractsJSON string
	err := d.conn.QueryRow(`
SELECT id, hotelText, roomText, marketText, hotelId, roomIdsJson, marketNamesJson, contractNamesJson, confidence, frequency
FROM contract_matches WHERE hotelText = ? AND roomText = ? AND marketText = ?`, hotelText, roomText, marketText).
		Scan(&m.ID, &m.HotelText, &m.RoomText, &m.MarketText, &m.HotelID, &roomIDsJSON, &marketsJSON, &contractsJSON, &m.Confidence, &m.Frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(roomIDsJSON), &m.RoomIDs)
	_ = json.Unmarshal([]byte(marketsJSON), &m.MarketNames)
	_ = json.Unmarshal([]byte(contractsJSON), &m.ContractNames)
	return &m, nil
}

// InsertRoomReject blacklists a (hotel, room text, market) combination.
func (d *DB) InsertRoomReject(hotelID int, roomTypeText, marketName string) error {
	_, err := d.conn.Exec(`
INSERT INTO room_rejects (hotelId, roomTypeText, marketName) VALUES (?, ?, ?)
ON CONFLICT(hotelId, roomTypeText, marketName) DO NOTHING
`, hotelID, roomTypeText, marketName)
	return err
}

func (d *DB) ListRoomRejects() ([]internal.RoomReject, error) {
	rows, err := d.conn.Query(`SELECT id, hotelId, roomTypeText, marketName FROM room_rejects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomReject
	for rows.Next() {
		var r internal.RoomReject
		if err := rows.Scan(&r.ID, &r.HotelID, &r.RoomTypeText, &r.MarketName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BlockSender records a permanently rejected sender address.
func (d *DB) BlockSender(sender string) error {
	_, err := d.conn.Exec(`INSERT INTO sender_blocks (sender) VALUES (?) ON CONFLICT(sender) DO NOTHING`, sender)
	return err
}

func (d *DB) ListBlockedSenders() ([]string, error) {
	rows, err := d.conn.Query(`SELECT sender FROM sender_blocks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sender string
		if err := rows.Scan(&sender); err != nil {
			return nil, err
		}
		out = append(out, sender)
	}
	return out, rows.Err()
}
