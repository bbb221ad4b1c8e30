package catalog

import (
	"sort"
	"strings"

	"stopsale/internal"
	"stopsale/internal/util"
)

// Index holds the whole catalog in memory for one resolution pass. The
// hotel slice is ID-sorted so that scoring over it is deterministic.
type Index struct {
	Hotels           []internal.Hotel
	HotelsByID       map[int]internal.Hotel
	HotelIDByName    map[string]int
	RoomsByID        map[int]internal.Room
	RoomsByHotel     map[int][]internal.Room
	MarketsByID      map[int]internal.Market
	MarketByName     map[string]internal.Market
	AliasMarkets     map[string][]internal.Market
	ContractsByHotel map[int][]internal.Contract
	GroupsByID       map[int]internal.RoomTypeGroup
	GroupsByHotel    map[int][]internal.RoomTypeGroup
	VariantsByGroup  map[int][]internal.RoomTypeVariant
}

func BuildIndex(
	hotels []internal.Hotel,
	rooms []internal.Room,
	markets []internal.Market,
	aliases []internal.MarketAlias,
	contracts []internal.Contract,
	groups []internal.RoomTypeGroup,
	variants []internal.RoomTypeVariant,
) *Index {
	idx := &Index{
		HotelsByID:       map[int]internal.Hotel{},
		HotelIDByName:    map[string]int{},
		RoomsByID:        map[int]internal.Room{},
		RoomsByHotel:     map[int][]internal.Room{},
		MarketsByID:      map[int]internal.Market{},
		MarketByName:     map[string]internal.Market{},
		AliasMarkets:     map[string][]internal.Market{},
		ContractsByHotel: map[int][]internal.Contract{},
		GroupsByID:       map[int]internal.RoomTypeGroup{},
		GroupsByHotel:    map[int][]internal.RoomTypeGroup{},
		VariantsByGroup:  map[int][]internal.RoomTypeVariant{},
	}

	idx.Hotels = append(idx.Hotels, hotels...)
	sort.Slice(idx.Hotels, func(i, j int) bool { return idx.Hotels[i].ID < idx.Hotels[j].ID })
	for _, h := range idx.Hotels {
		idx.HotelsByID[h.ID] = h
		idx.HotelIDByName[exactKey(h.Name)] = h.ID
	}

	for _, r := range rooms {
		idx.RoomsByID[r.ID] = r
		idx.RoomsByHotel[r.HotelID] = append(idx.RoomsByHotel[r.HotelID], r)
	}
	for hotelID := range idx.RoomsByHotel {
		list := idx.RoomsByHotel[hotelID]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	for _, m := range markets {
		idx.MarketsByID[m.ID] = m
		idx.MarketByName[exactKey(m.Name)] = m
	}

	for _, a := range aliases {
		var linked []internal.Market
		for _, marketID := range a.MarketIDs {
			if m, ok := idx.MarketsByID[marketID]; ok {
				linked = append(linked, m)
			}
		}
		sort.Slice(linked, func(i, j int) bool { return linked[i].ID < linked[j].ID })
		idx.AliasMarkets[exactKey(a.Alias)] = linked
	}

	for _, c := range contracts {
		idx.ContractsByHotel[c.HotelID] = append(idx.ContractsByHotel[c.HotelID], c)
	}

	for _, g := range groups {
		idx.GroupsByID[g.ID] = g
		idx.GroupsByHotel[g.HotelID] = append(idx.GroupsByHotel[g.HotelID], g)
	}
	for hotelID := range idx.GroupsByHotel {
		list := idx.GroupsByHotel[hotelID]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	for _, v := range variants {
		idx.VariantsByGroup[v.GroupID] = append(idx.VariantsByGroup[v.GroupID], v)
	}

	return idx
}

// GroupRooms expands a room-type group to every catalog room of its hotel
// whose name contains any variant's stored name, case-insensitive,
// deduplicated.
func (idx *Index) GroupRooms(groupID int) []internal.Room {
	group, ok := idx.GroupsByID[groupID]
	if !ok {
		return nil
	}

	seen := map[int]struct{}{}
	var out []internal.Room
	for _, room := range idx.RoomsByHotel[group.HotelID] {
		roomName := util.Fold(room.Name)
		for _, variant := range idx.VariantsByGroup[groupID] {
			if strings.Contains(roomName, util.Fold(variant.Name)) {
				if _, dup := seen[room.ID]; !dup {
					seen[room.ID] = struct{}{}
					out = append(out, room)
				}
				break
			}
		}
	}
	return out
}

func exactKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
