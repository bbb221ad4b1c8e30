package pipeline

import (
	"strings"

	"stopsale/internal"
	"stopsale/internal/storage"
)

type roomLearningKey struct {
	hotelID  int
	roomType string
}

type rejectKey struct {
	hotelID    int
	roomType   string
	marketName string
}

// LearningView is a read snapshot of the learning store taken once per
// resolution pass. Resolution is a pure function of (catalog index,
// learning view, input row); mutations go through storage upserts and are
// picked up by the next snapshot.
type LearningView struct {
	HotelByMailName map[string]internal.HotelLearning
	RoomGroupByKey  map[roomLearningKey]internal.RoomGroupLearning
	SenderBest      map[string]internal.SenderHotelMatch
	Rejects         map[rejectKey]struct{}
	BlockedSenders  map[string]struct{}
}

func EmptyLearning() *LearningView {
	return &LearningView{
		HotelByMailName: map[string]internal.HotelLearning{},
		RoomGroupByKey:  map[roomLearningKey]internal.RoomGroupLearning{},
		SenderBest:      map[string]internal.SenderHotelMatch{},
		Rejects:         map[rejectKey]struct{}{},
		BlockedSenders:  map[string]struct{}{},
	}
}

func LoadLearning(db *storage.DB) (*LearningView, error) {
	view := EmptyLearning()

	hotelLearning, err := db.ListHotelLearning()
	if err != nil {
		return nil, err
	}
	for _, l := range hotelLearning {
		view.HotelByMailName[learnKey(l.MailName)] = l
	}

	roomLearning, err := db.ListRoomGroupLearning()
	if err != nil {
		return nil, err
	}
	for _, l := range roomLearning {
		view.RoomGroupByKey[roomLearningKey{hotelID: l.HotelID, roomType: learnKey(l.MailRoomType)}] = l
	}

	senders, err := db.ListSenderHotelMatches()
	if err != nil {
		return nil, err
	}
	for _, m := range senders {
		key := strings.ToLower(m.Sender)
		best, ok := view.SenderBest[key]
		if !ok || m.Score > best.Score || (m.Score == best.Score && m.Frequency > best.Frequency) {
			view.SenderBest[key] = m
		}
	}

	rejects, err := db.ListRoomRejects()
	if err != nil {
		return nil, err
	}
	for _, rej := range rejects {
		view.Rejects[rejectKey{hotelID: rej.HotelID, roomType: learnKey(rej.RoomTypeText), marketName: learnKey(rej.MarketName)}] = struct{}{}
	}

	blocked, err := db.ListBlockedSenders()
	if err != nil {
		return nil, err
	}
	for _, sender := range blocked {
		view.BlockedSenders[strings.ToLower(sender)] = struct{}{}
	}

	return view, nil
}

// AddHotel lets callers pre-seed or refresh a single learned hotel entry
// without reloading the whole snapshot.
func (v *LearningView) AddHotel(l internal.HotelLearning) {
	v.HotelByMailName[learnKey(l.MailName)] = l
}

func (v *LearningView) AddRoomGroup(l internal.RoomGroupLearning) {
	v.RoomGroupByKey[roomLearningKey{hotelID: l.HotelID, roomType: learnKey(l.MailRoomType)}] = l
}

func (v *LearningView) AddSender(m internal.SenderHotelMatch) {
	key := strings.ToLower(m.Sender)
	best, ok := v.SenderBest[key]
	if !ok || m.Score > best.Score {
		v.SenderBest[key] = m
	}
}

func (v *LearningView) AddReject(rej internal.RoomReject) {
	v.Rejects[rejectKey{hotelID: rej.HotelID, roomType: learnKey(rej.RoomTypeText), marketName: learnKey(rej.MarketName)}] = struct{}{}
}

func (v *LearningView) HasReject(hotelID int, roomType, marketName string) bool {
	_, ok := v.Rejects[rejectKey{hotelID: hotelID, roomType: learnKey(roomType), marketName: learnKey(marketName)}]
	return ok
}

// learnKey normalizes a learning-store lookup key: case-insensitive,
// whitespace-trimmed.
func learnKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
