package pipeline

import (
	"math"
	"sort"
	"strings"

	"stopsale/internal"
	"stopsale/internal/util"
)

// PatternAllRooms marks a row whose room type is the "all rooms" sentinel:
// no specific room restriction, nothing to resolve.
const PatternAllRooms = "ALL_ROOMS"

var allRoomsSentinels = []string{"ALL ROOM", "ALL ROOMS", "ALL ROOM TYPES", "TUM ODALAR"}

// IsAllRoomsSentinel reports whether a free-text room type means "every
// room". Comparison is case- and diacritic-insensitive so the Turkish
// spelling matches too.
func IsAllRoomsSentinel(roomType string) bool {
	folded := util.Fold(strings.TrimSpace(roomType))
	for _, sentinel := range allRoomsSentinels {
		if folded == sentinel {
			return true
		}
	}
	return false
}

// RoomResolution is the outcome of resolving one free-text room type
// against one hotel's rooms.
type RoomResolution struct {
	Best          *internal.Room
	Rooms         []internal.Room
	Score         float64
	SearchPattern *string
}

// ResolveRoom resolves a free-text room type for an already-resolved hotel.
// First applicable strategy wins: sentinel, learned mapping, room-type
// group expansion, direct fuzzy matching with contains-expansion.
// Comma-separated multi-room strings are not auto-resolved.
func (r *Resolver) ResolveRoom(hotel internal.Hotel, roomType string) RoomResolution {
	if IsAllRoomsSentinel(roomType) {
		pattern := PatternAllRooms
		return RoomResolution{Score: 100, SearchPattern: &pattern}
	}

	if learned, ok := r.view.RoomGroupByKey[roomLearningKey{hotelID: hotel.ID, roomType: learnKey(roomType)}]; ok &&
		learned.Confidence >= r.cfg.LearnedMinConfidence {
		if res, ok := r.resolveLearnedRoom(hotel, learned); ok {
			return res
		}
	}

	if group, groupScore := r.FindRoomTypeGroup(hotel.ID, roomType); group != nil {
		rooms := r.GroupRooms(group.ID)
		if len(rooms) > 0 {
			pattern := group.Name
			return RoomResolution{
				Best:          &rooms[0],
				Rooms:         rooms,
				Score:         math.Round(groupScore * 100),
				SearchPattern: &pattern,
			}
		}
	}

	if strings.Contains(roomType, ",") {
		// Multiple room types in one cell: never guess, leave for manual mapping.
		r.log.Debug().Str("roomType", roomType).Msg("comma-separated room type, skipping auto resolution")
		return RoomResolution{}
	}

	return r.resolveRoomFuzzy(hotel, roomType)
}

func (r *Resolver) resolveLearnedRoom(hotel internal.Hotel, learned internal.RoomGroupLearning) (RoomResolution, bool) {
	score := math.Round(learned.Confidence * 100)

	if learned.RoomID != nil {
		if room, ok := r.idx.RoomsByID[*learned.RoomID]; ok {
			pattern := room.Name
			return RoomResolution{Best: &room, Rooms: []internal.Room{room}, Score: score, SearchPattern: &pattern}, true
		}
	}
	if learned.GroupID != nil {
		rooms := r.GroupRooms(*learned.GroupID)
		if len(rooms) > 0 {
			pattern := r.idx.GroupsByID[*learned.GroupID].Name
			return RoomResolution{Best: &rooms[0], Rooms: rooms, Score: score, SearchPattern: &pattern}, true
		}
	}
	return RoomResolution{}, false
}

// RoomCandidate is one ranked room suggestion for manual mapping.
type RoomCandidate struct {
	Room  internal.Room
	Score float64
}

// SuggestRooms ranks every room of the hotel against the free text for the
// manual mapping flow. The resolution result comes along so the caller can
// show what automatic resolution would have done.
func (r *Resolver) SuggestRooms(hotel internal.Hotel, roomType string) (RoomResolution, []RoomCandidate) {
	res := r.ResolveRoom(hotel, roomType)

	var candidates []RoomCandidate
	for _, room := range r.idx.RoomsByHotel[hotel.ID] {
		score := ScoreRoomName(roomType, room.Name)
		if score >= r.cfg.SuggestionMinScore {
			candidates = append(candidates, RoomCandidate{Room: room, Score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Room.ID < candidates[j].Room.ID
	})
	return res, candidates
}

// resolveRoomFuzzy scores every room of the hotel, keeps all rooms tied at
// the maximum, and widens the result with rooms whose names are substring
// supersets/subsets of an accepted room (size variants such as "Superior
// Room" / "Superior Room Sea View").
func (r *Resolver) resolveRoomFuzzy(hotel internal.Hotel, roomType string) RoomResolution {
	rooms := r.idx.RoomsByHotel[hotel.ID]
	if len(rooms) == 0 {
		return RoomResolution{}
	}

	maxScore := 0.0
	var tied []internal.Room
	for _, room := range rooms {
		score := ScoreRoomName(roomType, room.Name)
		if score > maxScore {
			maxScore = score
			tied = []internal.Room{room}
		} else if score == maxScore && maxScore > 0 {
			tied = append(tied, room)
		}
	}

	if maxScore < r.cfg.RoomFuzzyMatchThreshold || len(tied) == 0 {
		return RoomResolution{Score: maxScore}
	}

	accepted := make([]internal.Room, len(tied))
	copy(accepted, tied)
	seen := map[int]struct{}{}
	for _, room := range accepted {
		seen[room.ID] = struct{}{}
	}

	for _, base := range tied {
		baseName := util.Fold(base.Name)
		for _, other := range rooms {
			if _, dup := seen[other.ID]; dup {
				continue
			}
			otherName := util.Fold(other.Name)
			if strings.Contains(otherName, baseName) || strings.Contains(baseName, otherName) {
				seen[other.ID] = struct{}{}
				accepted = append(accepted, other)
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].ID < accepted[j].ID })

	best := tied[0]
	pattern := util.NormalizeRoomType(roomType)
	return RoomResolution{Best: &best, Rooms: accepted, Score: maxScore, SearchPattern: &pattern}
}
