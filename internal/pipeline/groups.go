package pipeline

import (
	"strings"

	"stopsale/internal"
	"stopsale/internal/util"
)

// FindRoomTypeGroup locates the best room-type group of a hotel for a
// free-text room type: exact normalized name, then substring either way,
// then fuzzy with a per-word bonus. Returns nil when nothing clears the
// fuzzy threshold. The returned score is on a 0..1 scale.
func (r *Resolver) FindRoomTypeGroup(hotelID int, roomType string) (*internal.RoomTypeGroup, float64) {
	norm := util.NormalizeRoomType(roomType)
	if norm == "" {
		return nil, 0
	}

	groups := r.idx.GroupsByHotel[hotelID]

	for _, group := range groups {
		if util.Fold(group.Name) == norm {
			g := group
			return &g, 1
		}
	}

	for _, group := range groups {
		groupName := util.Fold(group.Name)
		if strings.Contains(groupName, norm) || strings.Contains(norm, groupName) {
			g := group
			return &g, 0.9
		}
	}

	var best *internal.RoomTypeGroup
	bestScore := 0.0
	for _, group := range groups {
		groupName := util.Fold(group.Name)
		score := ratio(norm, groupName)
		for _, word := range strings.Fields(norm) {
			if len(word) > 3 && strings.Contains(groupName, word) {
				score += 0.1
			}
		}
		if score > bestScore {
			g := group
			best = &g
			bestScore = score
		}
	}

	if best != nil && bestScore >= r.cfg.GroupFuzzyThreshold {
		if bestScore > 1 {
			bestScore = 1
		}
		return best, bestScore
	}
	return nil, 0
}

// GroupRooms expands a group to its variant rooms via the catalog index.
func (r *Resolver) GroupRooms(groupID int) []internal.Room {
	return r.idx.GroupRooms(groupID)
}
