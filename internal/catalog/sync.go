package catalog

import (
	"context"
	"time"

	"stopsale/internal/config"
	"stopsale/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

type SyncResult struct {
	Hotels    int
	Rooms     int
	Markets   int
	Aliases   int
	Contracts int
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// Sync pulls the full catalog from the inventory API and upserts it.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	hotels, rooms, err := s.client.GetHotels(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if err := s.db.UpsertHotels(hotels); err != nil {
		return SyncResult{}, err
	}
	if err := s.db.UpsertRooms(rooms); err != nil {
		return SyncResult{}, err
	}

	markets, aliases, err := s.client.GetMarkets(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if err := s.db.UpsertMarkets(markets); err != nil {
		return SyncResult{}, err
	}
	for _, alias := range aliases {
		if err := s.db.UpsertMarketAlias(alias.Alias, alias.MarketIDs); err != nil {
			return SyncResult{}, err
		}
	}

	contracts, err := s.client.GetContracts(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if err := s.db.UpsertContracts(contracts); err != nil {
		return SyncResult{}, err
	}

	_ = s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339))

	return SyncResult{
		Hotels:    len(hotels),
		Rooms:     len(rooms),
		Markets:   len(markets),
		Aliases:   len(aliases),
		Contracts: len(contracts),
	}, nil
}

// LoadIndex reads the catalog plus room-type grouping tables and builds the
// in-memory index used by the resolver.
func LoadIndex(db *storage.DB) (*Index, error) {
	hotels, err := db.ListHotels()
	if err != nil {
		return nil, err
	}
	rooms, err := db.ListRooms()
	if err != nil {
		return nil, err
	}
	markets, err := db.ListMarkets()
	if err != nil {
		return nil, err
	}
	aliases, err := db.ListMarketAliases()
	if err != nil {
		return nil, err
	}
	contracts, err := db.ListContracts()
	if err != nil {
		return nil, err
	}
	groups, err := db.ListRoomTypeGroups()
	if err != nil {
		return nil, err
	}
	variants, err := db.ListRoomTypeVariants()
	if err != nil {
		return nil, err
	}
	return BuildIndex(hotels, rooms, markets, aliases, contracts, groups, variants), nil
}
