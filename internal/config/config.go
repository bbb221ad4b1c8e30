package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	DBPath      string
	FeedInbox   string
	FeedArchive string
	OutputDir   string

	InventoryAPIBaseURL string
	InventoryAPIToken   string
	InventoryRateRPS    int
	InventoryTimeoutMs  int

	// Hotel auto-match uses two historical thresholds: interactive
	// (suggestion-driven) resolution accepts at 65, the batch task at 75.
	HotelAutoMatchInteractive float64
	HotelFuzzyMatchThreshold  float64
	RoomFuzzyMatchThreshold   float64
	SuggestionMinScore        float64

	// Learned-mapping acceptance. Hotel/room-group learning confidence is
	// on a 0..1 scale, sender matches on an integer 0..100 scale.
	LearnedMinConfidence float64
	SenderHotelMinScore  int
	SenderHotelFloor     float64

	GroupFuzzyThreshold float64

	WatcherIntervalSec  int
	WatcherProcessBatch int
	WatcherAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv: getEnv("APP_ENV", "production"),

		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		FeedInbox:   getEnv("FEED_INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		FeedArchive: getEnv("FEED_ARCHIVE_DIR", filepath.Join(cwd, "data", "archive")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		InventoryAPIBaseURL: getEnv("INVENTORY_API_BASE_URL", "https://inventory.local/api/v1"),
		InventoryAPIToken:   getEnv("INVENTORY_API_TOKEN", ""),
		InventoryRateRPS:    getEnvInt("INVENTORY_RATE_LIMIT_RPS", 5),
		InventoryTimeoutMs:  getEnvInt("INVENTORY_TIMEOUT_MS", 30000),

		HotelAutoMatchInteractive: getEnvFloat("HOTEL_AUTO_MATCH_INTERACTIVE", 65),
		HotelFuzzyMatchThreshold:  getEnvFloat("HOTEL_FUZZY_MATCH_THRESHOLD", 75),
		RoomFuzzyMatchThreshold:   getEnvFloat("ROOM_FUZZY_MATCH_THRESHOLD", 80),
		SuggestionMinScore:        getEnvFloat("SUGGESTION_MIN_SCORE", 55),

		LearnedMinConfidence: getEnvFloat("LEARNED_MIN_CONFIDENCE", 0.7),
		SenderHotelMinScore:  getEnvInt("SENDER_HOTEL_MIN_SCORE", 60),
		SenderHotelFloor:     getEnvFloat("SENDER_HOTEL_FLOOR_SCORE", 85),

		GroupFuzzyThreshold: getEnvFloat("GROUP_FUZZY_THRESHOLD", 0.6),

		WatcherIntervalSec:  getEnvInt("WATCHER_INTERVAL_SEC", 30),
		WatcherProcessBatch: getEnvInt("WATCHER_PROCESS_BATCH", 20),
		WatcherAutoExport:   getEnvBool("WATCHER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
