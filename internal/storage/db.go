package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"stopsale/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS hotels (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_hotels_name ON hotels(name);

CREATE TABLE IF NOT EXISTS rooms (
  id INTEGER PRIMARY KEY,
  hotelId INTEGER NOT NULL,
  name TEXT NOT NULL,
  code TEXT NOT NULL,
  UNIQUE(hotelId, code),
  FOREIGN KEY(hotelId) REFERENCES hotels(id)
);
CREATE INDEX IF NOT EXISTS idx_rooms_hotel ON rooms(hotelId);

CREATE TABLE IF NOT EXISTS markets (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT,
  active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS market_aliases (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  alias TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS market_alias_links (
  aliasId INTEGER NOT NULL,
  marketId INTEGER NOT NULL,
  PRIMARY KEY(aliasId, marketId),
  FOREIGN KEY(aliasId) REFERENCES market_aliases(id),
  FOREIGN KEY(marketId) REFERENCES markets(id)
);

CREATE TABLE IF NOT EXISTS contracts (
  id INTEGER PRIMARY KEY,
  hotelId INTEGER NOT NULL,
  marketId INTEGER NOT NULL,
  name TEXT NOT NULL,
  season TEXT NOT NULL DEFAULT '',
  access TEXT NOT NULL DEFAULT '',
  UNIQUE(hotelId, name, season, marketId),
  FOREIGN KEY(hotelId) REFERENCES hotels(id),
  FOREIGN KEY(marketId) REFERENCES markets(id)
);
CREATE INDEX IF NOT EXISTS idx_contracts_hotel ON contracts(hotelId);

CREATE TABLE IF NOT EXISTS room_type_groups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hotelId INTEGER NOT NULL,
  name TEXT NOT NULL,
  UNIQUE(hotelId, name),
  FOREIGN KEY(hotelId) REFERENCES hotels(id)
);

CREATE TABLE IF NOT EXISTS room_type_variants (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  groupId INTEGER NOT NULL,
  name TEXT NOT NULL,
  UNIQUE(groupId, name),
  FOREIGN KEY(groupId) REFERENCES room_type_groups(id)
);

CREATE TABLE IF NOT EXISTS hotel_learning (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  mailName TEXT NOT NULL UNIQUE,
  hotelId INTEGER NOT NULL,
  confidence REAL NOT NULL DEFAULT 0.8,
  frequency INTEGER NOT NULL DEFAULT 1,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(hotelId) REFERENCES hotels(id)
);

CREATE TABLE IF NOT EXISTS room_group_learning (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hotelId INTEGER NOT NULL,
  mailRoomType TEXT NOT NULL,
  groupId INTEGER,
  roomId INTEGER,
  confidence REAL NOT NULL DEFAULT 0.8,
  frequency INTEGER NOT NULL DEFAULT 1,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(hotelId, mailRoomType),
  FOREIGN KEY(hotelId) REFERENCES hotels(id)
);

CREATE TABLE IF NOT EXISTS market_matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  mailName TEXT NOT NULL,
  marketId INTEGER NOT NULL,
  score INTEGER NOT NULL DEFAULT 80,
  frequency INTEGER NOT NULL DEFAULT 1,
  UNIQUE(mailName, marketId),
  FOREIGN KEY(marketId) REFERENCES markets(id)
);

CREATE TABLE IF NOT EXISTS sender_hotel_matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sender TEXT NOT NULL,
  hotelId INTEGER NOT NULL,
  score INTEGER NOT NULL DEFAULT 80,
  frequency INTEGER NOT NULL DEFAULT 1,
  UNIQUE(sender, hotelId),
  FOREIGN KEY(hotelId) REFERENCES hotels(id)
);

CREATE TABLE IF NOT EXISTS contract_matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hotelText TEXT NOT NULL,
  roomText TEXT NOT NULL,
  marketText TEXT NOT NULL,
  hotelId INTEGER NOT NULL,
  roomIdsJson TEXT NOT NULL,
  marketNamesJson TEXT NOT NULL,
  contractNamesJson TEXT NOT NULL,
  confidence REAL NOT NULL DEFAULT 0.8,
  frequency INTEGER NOT NULL DEFAULT 1,
  UNIQUE(hotelText, roomText, marketText)
);

CREATE TABLE IF NOT EXISTS room_rejects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hotelId INTEGER NOT NULL,
  roomTypeText TEXT NOT NULL,
  marketName TEXT NOT NULL,
  UNIQUE(hotelId, roomTypeText, marketName)
);

CREATE TABLE IF NOT EXISTS sender_blocks (
  sender TEXT PRIMARY KEY,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  status TEXT NOT NULL DEFAULT 'imported',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS feed_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  hotelName TEXT NOT NULL,
  roomType TEXT NOT NULL,
  marketsJson TEXT NOT NULL,
  startDate TEXT NOT NULL,
  endDate TEXT NOT NULL,
  action TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  hotelId INTEGER,
  roomIdsJson TEXT NOT NULL DEFAULT '[]',
  resolvedMarketsJson TEXT NOT NULL DEFAULT '[]',
  contractsJson TEXT NOT NULL DEFAULT '[]',
  hotelScore REAL NOT NULL DEFAULT 0,
  roomScore REAL NOT NULL DEFAULT 0,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(emailId, lineNo),
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertHotels(hotels []internal.Hotel) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO hotels (id, name, code, lastSeenAt) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, code=excluded.code, lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range hotels {
		if _, err := stmt.Exec(h.ID, h.Name, h.Code); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertRooms(rooms []internal.Room) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO rooms (id, hotelId, name, code) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET hotelId=excluded.hotelId, name=excluded.name, code=excluded.code
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rooms {
		if _, err := stmt.Exec(r.ID, r.HotelID, r.Name, r.Code); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertMarkets(markets []internal.Market) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO markets (id, name, code, active) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, code=excluded.code, active=excluded.active
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range markets {
		if _, err := stmt.Exec(m.ID, m.Name, m.Code, m.Active); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertMarketAlias(alias string, marketIDs []int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO market_aliases (alias) VALUES (?) ON CONFLICT(alias) DO NOTHING`, alias); err != nil {
		return err
	}
	var aliasID int
	if err := tx.QueryRow(`SELECT id FROM market_aliases WHERE alias = ?`, alias).Scan(&aliasID); err != nil {
		return err
	}
	for _, marketID := range marketIDs {
		if _, err := tx.Exec(`INSERT INTO market_alias_links (aliasId, marketId) VALUES (?, ?) ON CONFLICT DO NOTHING`, aliasID, marketID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertContracts(contracts []internal.Contract) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO contracts (id, hotelId, marketId, name, season, access) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET hotelId=excluded.hotelId, marketId=excluded.marketId,
  name=excluded.name, season=excluded.season, access=excluded.access
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range contracts {
		if _, err := stmt.Exec(c.ID, c.HotelID, c.MarketID, c.Name, c.Season, c.Access); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListHotels() ([]internal.Hotel, error) {
	rows, err := d.conn.Query(`SELECT id, name, code FROM hotels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Hotel
	for rows.Next() {
		var h internal.Hotel
		if err := rows.Scan(&h.ID, &h.Name, &h.Code); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (d *DB) ListRooms() ([]internal.Room, error) {
	rows, err := d.conn.Query(`SELECT id, hotelId, name, code FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Room
	for rows.Next() {
		var r internal.Room
		if err := rows.Scan(&r.ID, &r.HotelID, &r.Name, &r.Code); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) ListMarkets() ([]internal.Market, error) {
	rows, err := d.conn.Query(`SELECT id, name, code, active FROM markets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Market
	for rows.Next() {
		var m internal.Market
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) ListMarketAliases() ([]internal.MarketAlias, error) {
	rows, err := d.conn.Query(`
SELECT a.id, a.alias, l.marketId
FROM market_aliases a
LEFT JOIN market_alias_links l ON l.aliasId = a.id
ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[int]*internal.MarketAlias{}
	var order []int
	for rows.Next() {
		var id int
		var alias string
		var marketID *int
		if err := rows.Scan(&id, &alias, &marketID); err != nil {
			return nil, err
		}
		entry, ok := byID[id]
		if !ok {
			entry = &internal.MarketAlias{ID: id, Alias: alias}
			byID[id] = entry
			order = append(order, id)
		}
		if marketID != nil {
			entry.MarketIDs = append(entry.MarketIDs, *marketID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]internal.MarketAlias, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (d *DB) ListContracts() ([]internal.Contract, error) {
	rows, err := d.conn.Query(`SELECT id, hotelId, marketId, name, season, access FROM contracts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Contract
	for rows.Next() {
		var c internal.Contract
		if err := rows.Scan(&c.ID, &c.HotelID, &c.MarketID, &c.Name, &c.Season, &c.Access); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) ListRoomTypeGroups() ([]internal.RoomTypeGroup, error) {
	rows, err := d.conn.Query(`SELECT id, hotelId, name FROM room_type_groups`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomTypeGroup
	for rows.Next() {
		var g internal.RoomTypeGroup
		if err := rows.Scan(&g.ID, &g.HotelID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (d *DB) ListRoomTypeVariants() ([]internal.RoomTypeVariant, error) {
	rows, err := d.conn.Query(`SELECT id, groupId, name FROM room_type_variants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomTypeVariant
	for rows.Next() {
		var v internal.RoomTypeVariant
		if err := rows.Scan(&v.ID, &v.GroupID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (d *DB) GetOrCreateRoomTypeGroup(hotelID int, name string) (internal.RoomTypeGroup, error) {
	if _, err := d.conn.Exec(`
INSERT INTO room_type_groups (hotelId, name) VALUES (?, ?)
ON CONFLICT(hotelId, name) DO NOTHING`, hotelID, name); err != nil {
		return internal.RoomTypeGroup{}, err
	}

	var g internal.RoomTypeGroup
	err := d.conn.QueryRow(`SELECT id, hotelId, name FROM room_type_groups WHERE hotelId = ? AND name = ?`, hotelID, name).
		Scan(&g.ID, &g.HotelID, &g.Name)
	return g, err
}

func (d *DB) GetOrCreateRoomTypeVariant(groupID int, name string) (internal.RoomTypeVariant, error) {
	if _, err := d.conn.Exec(`
INSERT INTO room_type_variants (groupId, name) VALUES (?, ?)
ON CONFLICT(groupId, name) DO NOTHING`, groupID, name); err != nil {
		return internal.RoomTypeVariant{}, err
	}

	var v internal.RoomTypeVariant
	err := d.conn.QueryRow(`SELECT id, groupId, name FROM room_type_variants WHERE groupId = ? AND name = ?`, groupID, name).
		Scan(&v.ID, &v.GroupID, &v.Name)
	return v, err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, status)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, status)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, status
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, status
FROM emails WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, status
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) InsertFeedRow(emailID, lineNo int, row internal.ExtractedRow) (int64, error) {
	marketsJSON, _ := json.Marshal(row.Markets)
	result, err := d.conn.Exec(`
INSERT INTO feed_rows (emailId, lineNo, hotelName, roomType, marketsJson, startDate, endDate, action)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(emailId, lineNo) DO UPDATE SET
  hotelName=excluded.hotelName,
  roomType=excluded.roomType,
  marketsJson=excluded.marketsJson,
  startDate=excluded.startDate,
  endDate=excluded.endDate,
  action=excluded.action,
  updatedAt=CURRENT_TIMESTAMP
`, emailID, lineNo, row.HotelName, row.RoomType, string(marketsJSON), row.StartDate, row.EndDate, string(row.Action))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func scanStoredRow(scan func(dest ...any) error) (internal.StoredRow, error) {
	var row internal.StoredRow
	var marketsJSON, roomIDsJSON, resolvedMarketsJSON, contractsJSON, action, status string
	if err := scan(
		&row.ID, &row.EmailID, &row.LineNo,
		&row.Row.HotelName, &row.Row.RoomType, &marketsJSON,
		&row.Row.StartDate, &row.Row.EndDate, &action,
		&status, &row.HotelID, &roomIDsJSON, &resolvedMarketsJSON, &contractsJSON,
		&row.HotelScore, &row.RoomScore,
	); err != nil {
		return internal.StoredRow{}, err
	}
	row.Row.Action = internal.SaleAction(action)
	row.Status = internal.RowStatus(status)
	_ = json.Unmarshal([]byte(marketsJSON), &row.Row.Markets)
	_ = json.Unmarshal([]byte(roomIDsJSON), &row.RoomIDs)
	_ = json.Unmarshal([]byte(resolvedMarketsJSON), &row.Markets)
	_ = json.Unmarshal([]byte(contractsJSON), &row.Contracts)
	return row, nil
}

const feedRowColumns = `
id, emailId, lineNo, hotelName, roomType, marketsJson, startDate, endDate, action,
status, hotelId, roomIdsJson, resolvedMarketsJson, contractsJson, hotelScore, roomScore`

func (d *DB) ListFeedRows(emailID int) ([]internal.StoredRow, error) {
	rows, err := d.conn.Query(`SELECT `+feedRowColumns+` FROM feed_rows WHERE emailId = ? ORDER BY lineNo ASC`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.StoredRow
	for rows.Next() {
		row, err := scanStoredRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) GetFeedRow(rowID int) (*internal.StoredRow, error) {
	row, err := scanStoredRow(d.conn.QueryRow(`SELECT `+feedRowColumns+` FROM feed_rows WHERE id = ?`, rowID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) UpdateRowResolution(rowID int, resolved internal.ResolvedRow) error {
	roomIDs := make([]int, 0, len(resolved.Rooms))
	for _, r := range resolved.Rooms {
		roomIDs = append(roomIDs, r.ID)
	}
	roomIDsJSON, _ := json.Marshal(roomIDs)
	marketsJSON, _ := json.Marshal(resolved.Markets)
	contractsJSON, _ := json.Marshal(resolved.Contracts)

	var hotelID *int
	if resolved.Hotel != nil {
		hotelID = &resolved.Hotel.ID
	}

	_, err := d.conn.Exec(`
UPDATE feed_rows SET
  status = ?, hotelId = ?, roomIdsJson = ?, resolvedMarketsJson = ?, contractsJson = ?,
  hotelScore = ?, roomScore = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, string(resolved.Status), hotelID, string(roomIDsJSON), string(marketsJSON), string(contractsJSON),
		resolved.HotelScore, resolved.RoomScore, rowID)
	return err
}

func (d *DB) UpdateRowStatus(rowID int, status internal.RowStatus) error {
	_, err := d.conn.Exec(`UPDATE feed_rows SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), rowID)
	return err
}

func (d *DB) UpdateRowRooms(rowID int, roomIDs []int, roomScore float64, status internal.RowStatus) error {
	roomIDsJSON, _ := json.Marshal(roomIDs)
	_, err := d.conn.Exec(`
UPDATE feed_rows SET roomIdsJson = ?, roomScore = ?, status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(roomIDsJSON), roomScore, string(status), rowID)
	return err
}

func (d *DB) InsertRun(traceID string, emailID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, emailId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`,
		traceID, emailID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}
