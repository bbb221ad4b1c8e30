package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"stopsale/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func TestGetHotelsPagingWithRetry(t *testing.T) {
	attempt := 0

	cfg, _ := config.Load()
	cfg.InventoryAPIToken = "test"
	cfg.InventoryAPIBaseURL = "https://example.test/api/v1"
	cfg.InventoryRateRPS = 1000

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/catalog/hotels" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("unexpected auth header %q", got)
			}
			attempt++
			if attempt == 1 {
				return jsonResponse(http.StatusInternalServerError, map[string]any{"error": "boom"}), nil
			}

			payload := map[string]any{"success": true, "data": map[string]any{"hotels": []map[string]any{}, "cursor": nil}}
			if attempt == 2 {
				payload = map[string]any{"success": true, "data": map[string]any{
					"hotels": []map[string]any{{"id": 1, "name": "Sunshine Resort", "code": "SUN", "rooms": []map[string]any{{"id": 11, "name": "Superior Room", "code": "SUP"}}}},
					"cursor": "abc",
				}}
			}
			if attempt == 3 {
				payload = map[string]any{"success": true, "data": map[string]any{
					"hotels": []map[string]any{{"id": 2, "name": "Moonlight Palace Hotel", "code": "MOON", "rooms": []map[string]any{}}},
					"cursor": nil,
				}}
			}
			return jsonResponse(http.StatusOK, payload), nil
		}),
	}

	hotels, rooms, err := client.GetHotels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(hotels) != 2 {
		t.Fatalf("expected 2 hotels, got %d", len(hotels))
	}
	if len(rooms) != 1 || rooms[0].HotelID != 1 {
		t.Fatalf("expected 1 room of hotel 1, got %+v", rooms)
	}
	if attempt != 3 {
		t.Fatalf("expected 3 requests (1 retry + 2 pages), got %d", attempt)
	}
}

func TestGetMarketsAliases(t *testing.T) {
	cfg, _ := config.Load()
	cfg.InventoryAPIToken = "test"
	cfg.InventoryAPIBaseURL = "https://example.test/api/v1"
	cfg.InventoryRateRPS = 1000

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			payload := map[string]any{"success": true, "data": map[string]any{
				"markets": []map[string]any{{"id": 1, "name": "DE", "active": true}, {"id": 2, "name": "EU GROUP", "active": true}},
				"aliases": []map[string]any{{"alias": "Europe", "marketIds": []int{1, 2}}, {"alias": " ", "marketIds": []int{1}}},
			}}
			return jsonResponse(http.StatusOK, payload), nil
		}),
	}

	markets, aliases, err := client.GetMarkets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}
	if len(aliases) != 1 || aliases[0].Alias != "Europe" {
		t.Fatalf("blank aliases must be dropped, got %+v", aliases)
	}
}

func TestFetchRequiresToken(t *testing.T) {
	cfg, _ := config.Load()
	cfg.InventoryAPIToken = ""
	client := NewClient(cfg)

	if _, err := client.GetContracts(context.Background()); err == nil {
		t.Fatal("expected error without token")
	}
}
