package pipeline

import (
	"strings"
	"testing"

	"stopsale/internal"
	"stopsale/internal/util"
)

func TestFindRoomTypeGroupWordOrder(t *testing.T) {
	r := newTestResolver(t, nil)

	group, score := r.FindRoomTypeGroup(1, "Bunk Bed Family Room")
	if group == nil {
		t.Fatal("expected a group match")
	}
	if group.ID != 1 {
		t.Fatalf("expected group 1, got %d", group.ID)
	}
	if score < r.cfg.GroupFuzzyThreshold {
		t.Fatalf("score %.2f below threshold", score)
	}
}

func TestGroupExpansionSuperset(t *testing.T) {
	r := newTestResolver(t, nil)
	input := "Bunk Bed Family Room"

	group, _ := r.FindRoomTypeGroup(1, input)
	if group == nil {
		t.Fatal("expected a group match")
	}
	expanded := r.GroupRooms(group.ID)

	// Naive substring search against the catalog must never beat group
	// expansion for the same input.
	naive := 0
	folded := util.Fold(input)
	for _, room := range r.idx.RoomsByHotel[1] {
		if strings.Contains(util.Fold(room.Name), folded) {
			naive++
		}
	}
	if len(expanded) < naive {
		t.Fatalf("expansion (%d) narrower than naive substring match (%d)", len(expanded), naive)
	}
	if len(expanded) != 2 {
		t.Fatalf("expected both bunk bed rooms, got %+v", expanded)
	}
}

func TestNoGroupForUnrelatedText(t *testing.T) {
	r := newTestResolver(t, nil)

	group, _ := r.FindRoomTypeGroup(1, "Presidential Penthouse")
	if group != nil {
		t.Fatalf("unexpected group match: %+v", group)
	}
}

func TestLearnedRoomGroupExpansion(t *testing.T) {
	view := EmptyLearning()
	groupID := 1
	view.AddRoomGroup(internal.RoomGroupLearning{HotelID: 1, MailRoomType: "FAM BUNK", GroupID: &groupID, Confidence: 0.85})
	r := newTestResolver(t, view)

	res := r.ResolveRoom(internal.Hotel{ID: 1, Name: "Sunshine Resort"}, "fam bunk")
	if len(res.Rooms) != 2 {
		t.Fatalf("expected learned group to expand to 2 rooms, got %+v", res.Rooms)
	}
	if res.Score != 85 {
		t.Fatalf("expected confidence-derived score 85, got %.2f", res.Score)
	}
}
