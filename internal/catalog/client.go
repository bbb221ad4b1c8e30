package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stopsale/internal"
	"stopsale/internal/config"
)

// Client pulls the canonical hotel/room/market/contract catalog from the
// upstream inventory API.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type hotelsPayload struct {
	Hotels []struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Code  string `json:"code"`
		Rooms []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			Code string `json:"code"`
		} `json:"rooms"`
	} `json:"hotels"`
	Cursor *string `json:"cursor"`
}

type marketsPayload struct {
	Markets []struct {
		ID     int     `json:"id"`
		Name   string  `json:"name"`
		Code   *string `json:"code"`
		Active bool    `json:"active"`
	} `json:"markets"`
	Aliases []struct {
		Alias     string `json:"alias"`
		MarketIDs []int  `json:"marketIds"`
	} `json:"aliases"`
}

type contractsPayload struct {
	Contracts []struct {
		ID       int    `json:"id"`
		HotelID  int    `json:"hotelId"`
		MarketID int    `json:"marketId"`
		Name     string `json:"name"`
		Season   string `json:"season"`
		Access   string `json:"access"`
	} `json:"contracts"`
	Cursor *string `json:"cursor"`
}

func NewClient(cfg config.Config) *Client {
	rps := cfg.InventoryRateRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.InventoryTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// GetHotels walks the paged hotels endpoint and returns all hotels with
// their rooms flattened.
func (c *Client) GetHotels(ctx context.Context) ([]internal.Hotel, []internal.Room, error) {
	var hotels []internal.Hotel
	var rooms []internal.Room
	seen := map[string]struct{}{}
	var cursor string

	for {
		params := map[string]string{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		body, err := c.fetchJSON(ctx, "catalog/hotels", params)
		if err != nil {
			return nil, nil, err
		}

		var payload hotelsPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, nil, err
		}

		for _, h := range payload.Hotels {
			if strings.TrimSpace(h.Name) == "" {
				continue
			}
			hotels = append(hotels, internal.Hotel{ID: h.ID, Name: strings.TrimSpace(h.Name), Code: h.Code})
			for _, r := range h.Rooms {
				rooms = append(rooms, internal.Room{ID: r.ID, HotelID: h.ID, Name: strings.TrimSpace(r.Name), Code: r.Code})
			}
		}

		if payload.Cursor == nil || *payload.Cursor == "" || len(payload.Hotels) == 0 {
			break
		}
		if _, ok := seen[*payload.Cursor]; ok {
			break
		}
		seen[*payload.Cursor] = struct{}{}
		cursor = *payload.Cursor
	}

	return hotels, rooms, nil
}

func (c *Client) GetMarkets(ctx context.Context) ([]internal.Market, []internal.MarketAlias, error) {
	body, err := c.fetchJSON(ctx, "catalog/markets", map[string]string{})
	if err != nil {
		return nil, nil, err
	}

	var payload marketsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, err
	}

	markets := make([]internal.Market, 0, len(payload.Markets))
	for _, m := range payload.Markets {
		markets = append(markets, internal.Market{ID: m.ID, Name: strings.TrimSpace(m.Name), Code: m.Code, Active: m.Active})
	}
	aliases := make([]internal.MarketAlias, 0, len(payload.Aliases))
	for _, a := range payload.Aliases {
		if strings.TrimSpace(a.Alias) == "" {
			continue
		}
		aliases = append(aliases, internal.MarketAlias{Alias: strings.TrimSpace(a.Alias), MarketIDs: a.MarketIDs})
	}
	return markets, aliases, nil
}

func (c *Client) GetContracts(ctx context.Context) ([]internal.Contract, error) {
	var contracts []internal.Contract
	seen := map[string]struct{}{}
	var cursor string

	for {
		params := map[string]string{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		body, err := c.fetchJSON(ctx, "catalog/contracts", params)
		if err != nil {
			return nil, err
		}

		var payload contractsPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, ct := range payload.Contracts {
			contracts = append(contracts, internal.Contract{
				ID: ct.ID, HotelID: ct.HotelID, MarketID: ct.MarketID,
				Name: strings.TrimSpace(ct.Name), Season: ct.Season, Access: ct.Access,
			})
		}

		if payload.Cursor == nil || *payload.Cursor == "" || len(payload.Contracts) == 0 {
			break
		}
		if _, ok := seen[*payload.Cursor]; ok {
			break
		}
		seen[*payload.Cursor] = struct{}{}
		cursor = *payload.Cursor
	}

	return contracts, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.InventoryAPIToken) == "" {
		return nil, errors.New("missing INVENTORY_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.InventoryAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.InventoryAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("inventory status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("inventory api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("inventory api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("inventory request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
