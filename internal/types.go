package internal

// Catalog entities. The catalog is read-only from the resolution core's
// point of view; it is refreshed by the sync service.

type Hotel struct {
	ID   int
	Name string
	Code string
}

type Room struct {
	ID      int
	HotelID int
	Name    string
	Code    string
}

type Market struct {
	ID     int
	Name   string
	Code   *string
	Active bool
}

// MarketAlias maps one free-text alias to a set of markets. "Europe" may
// fan out to several canonical markets.
type MarketAlias struct {
	ID        int
	Alias     string
	MarketIDs []int
}

// Contract represents "this market may book this hotel under this
// contract/season". Unique per (hotel, name, season, market).
type Contract struct {
	ID       int
	HotelID  int
	MarketID int
	Name     string
	Season   string
	Access   string
}

// RoomTypeGroup is a per-hotel bucket of room-type spellings considered
// one conceptual room type.
type RoomTypeGroup struct {
	ID      int
	HotelID int
	Name    string
}

type RoomTypeVariant struct {
	ID      int
	GroupID int
	Name    string
}

type SaleAction string

const (
	ActionStop SaleAction = "stop"
	ActionOpen SaleAction = "open"
)

// ExtractedRow is one candidate rule produced by the upstream extraction
// subsystem. Dates are ISO YYYY-MM-DD; rows with "UNCERTAIN" dates are
// dropped at feed import.
type ExtractedRow struct {
	HotelName string     `json:"hotelName"`
	RoomType  string     `json:"roomType"`
	Markets   []string   `json:"markets"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	Action    SaleAction `json:"action"`
}

type RowStatus string

const (
	StatusPending             RowStatus = "pending"
	StatusHotelNotFound       RowStatus = "hotel_not_found"
	StatusRoomNotFound        RowStatus = "room_not_found"
	StatusApproved            RowStatus = "approved"
	StatusSentToRobot         RowStatus = "sent_to_robot"
	StatusRobotProcessed      RowStatus = "robot_processed"
	StatusRejected            RowStatus = "rejected"
	StatusRejectedHotel       RowStatus = "rejected_hotel_not_found"
	StatusRejectedRoom        RowStatus = "rejected_room_not_found"
	StatusBlockedHotelMissing RowStatus = "blocked_hotel_not_found"
)

// HotelCandidate is one ranked suggestion from the hotel resolver.
type HotelCandidate struct {
	Hotel Hotel
	Score float64
}

// ResolvedRow is the core's output for one extracted row. An empty Rooms
// slice with a non-nil Hotel means "all rooms" (sentinel input) or an
// unresolved room; Status and SearchPattern disambiguate.
type ResolvedRow struct {
	ExtractedRow
	Hotel         *Hotel
	Rooms         []Room
	Markets       []string
	Contracts     []string
	HotelScore    float64
	RoomScore     float64
	SearchPattern *string
	Status        RowStatus
}

// Learning store records. HotelLearning and RoomGroupLearning carry
// confidence on a 0..1 scale; MarketMatch and SenderHotelMatch keep the
// source system's integer 0..100 scale.

type HotelLearning struct {
	ID         int
	MailName   string
	HotelID    int
	Confidence float64
	Frequency  int
}

type RoomGroupLearning struct {
	ID           int
	HotelID      int
	MailRoomType string
	GroupID      *int
	RoomID       *int
	Confidence   float64
	Frequency    int
}

type MarketMatch struct {
	ID        int
	MailName  string
	MarketID  int
	Score     int
	Frequency int
}

type SenderHotelMatch struct {
	ID        int
	Sender    string
	HotelID   int
	Score     int
	Frequency int
}

// ContractMatch records a confirmed (hotel text, room text, market text)
// triple together with everything it resolved to.
type ContractMatch struct {
	ID            int
	HotelText     string
	RoomText      string
	MarketText    string
	HotelID       int
	RoomIDs       []int
	MarketNames   []string
	ContractNames []string
	Confidence    float64
	Frequency     int
}

// RoomReject is a recorded human decision that a (hotel, room text, market)
// combination must never auto-match again.
type RoomReject struct {
	ID           int
	HotelID      int
	RoomTypeText string
	MarketName   string
}

// EmailRow is one stored inbound feed: all rows extracted from one email.
type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Status     string
}

// StoredRow is one persisted extracted row plus its resolution state.
type StoredRow struct {
	ID         int
	EmailID    int
	LineNo     int
	Row        ExtractedRow
	Status     RowStatus
	HotelID    *int
	RoomIDs    []int
	Markets    []string
	Contracts  []string
	HotelScore float64
	RoomScore  float64
}
