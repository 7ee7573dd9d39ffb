// Package client is the Go client for the simulation API, including
// the snapshot hydration poller. The poller is the client-resident
// half of the hydration protocol: after a turn resolves with an
// incomplete briefing, it re-fetches the snapshot on a staggered
// schedule until enrichment lands or a time budget runs out.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// Client calls the simulation API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client with a default HTTP client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response decoded from the server's error
// shape.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) CreateGame(ctx context.Context, seed string) (*geosim.GameSnapshot, error) {
	var snap geosim.GameSnapshot
	err := c.do(ctx, http.MethodPost, "/api/games", map[string]string{"seed": seed}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Latest returns the most recent game's snapshot, or nil when the
// server has no games.
func (c *Client) Latest(ctx context.Context) (*geosim.GameSnapshot, error) {
	var snap *geosim.GameSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/games/latest", nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Client) Snapshot(ctx context.Context, gameID string) (*geosim.GameSnapshot, error) {
	var snap geosim.GameSnapshot
	path := "/api/games/" + url.PathEscape(gameID)
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) SubmitTurn(ctx context.Context, gameID string, actions []string, directive string) (*geosim.TurnOutcome, error) {
	var outcome geosim.TurnOutcome
	path := "/api/games/" + url.PathEscape(gameID) + "/turn"
	body := map[string]any{"actions": actions, "directive": directive}
	if err := c.do(ctx, http.MethodPost, path, body, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Report fetches the resolution report for one turn. wait bounds an
// optional server-side synchronous wait for an in-flight enrichment.
func (c *Client) Report(ctx context.Context, gameID string, turn int, force bool, wait time.Duration) (*geosim.ResolutionReport, error) {
	q := url.Values{}
	if force {
		q.Set("force", "true")
	}
	if wait > 0 {
		q.Set("waitMs", strconv.Itoa(int(wait.Milliseconds())))
	}
	path := "/api/games/" + url.PathEscape(gameID) + "/reports/" + strconv.Itoa(turn)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var report geosim.ResolutionReport
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

type diplomacyResponse struct {
	Reply       string             `json:"reply"`
	ChatHistory []geosim.ChatEntry `json:"chatHistory"`
}

func (c *Client) Diplomacy(ctx context.Context, gameID, nationID, message string) (string, []geosim.ChatEntry, error) {
	path := "/api/games/" + url.PathEscape(gameID) + "/diplomacy/" + url.PathEscape(nationID)
	var resp diplomacyResponse
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"message": message}, &resp); err != nil {
		return "", nil, err
	}
	return resp.Reply, resp.ChatHistory, nil
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reset", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
