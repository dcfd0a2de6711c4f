package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/renegades-league/draftd/internal/draft/pick"
	"github.com/renegades-league/draftd/internal/models"
)

// Client talks to the draft HTTP API. It satisfies StateClient and
// PickClient for a Session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client for the given API base URL. token may be empty
// for spectator sessions.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Snapshot fetches the full draft state in one round trip. One-shot
// consumers use this instead of holding a WebSocket open; a live Session
// syncs in band.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.get(ctx, "/api/draft/state", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Picks fetches the pick ledger.
func (c *Client) Picks(ctx context.Context) ([]models.DraftPick, error) {
	var picks []models.DraftPick
	if err := c.get(ctx, "/api/draft/picks", &picks); err != nil {
		return nil, err
	}
	return picks, nil
}

// Players fetches the full player pool.
func (c *Client) Players(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := c.get(ctx, "/api/players", &players); err != nil {
		return nil, err
	}
	return players, nil
}

type makePickBody struct {
	PlayerID string `json:"player_id"`
}

type errorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	OnClockTeam string `json:"on_clock_team,omitempty"`
}

// MakePick submits a pick. Precondition failures come back as the typed
// pick errors so callers can branch on them.
func (c *Client) MakePick(ctx context.Context, req pick.MakePickRequest) error {
	body, err := json.Marshal(makePickBody{PlayerID: req.PlayerID.String()})
	if err != nil {
		return fmt.Errorf("failed to encode pick request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/draft/pick", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pick request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to submit pick: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}

	var apiErr errorBody
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		if typed := pick.FromCode(apiErr.Code, apiErr.OnClockTeam); typed != nil {
			return typed
		}
		if apiErr.Message != "" {
			return fmt.Errorf("pick rejected: %s", apiErr.Message)
		}
	}
	return fmt.Errorf("pick rejected: status %d", resp.StatusCode)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
