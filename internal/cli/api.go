package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpx "github.com/cwrk-planet/videomeet-signaling/internal/transport/http"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/ws"
)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// APIClient talks to the room REST API.
type APIClient struct {
	base *url.URL
	http *http.Client
}

func NewAPIClient(server string, timeout time.Duration) (*APIClient, error) {
	base, err := parseServer(server)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{base: base, http: &http.Client{Timeout: timeout}}, nil
}

// parseServer accepts "host:port" as well as full http(s) or ws(s) URLs.
func parseServer(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("server address is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u, nil
}

func (c *APIClient) endpoint(segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	raw := c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	path, err := url.PathUnescape(raw)
	if err != nil {
		path = raw
	}
	u.Path, u.RawPath = path, raw
	return u.String()
}

// WebSocketURL is the signaling endpoint of the same server.
func (c *APIClient) WebSocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path, u.RawPath = c.base.Path+"/ws", ""
	return u.String()
}

func (c *APIClient) CreateRoom(ctx context.Context, roomID string, capacity int) (httpx.CreateRoomResponse, error) {
	var out httpx.CreateRoomResponse
	req := httpx.CreateRoomRequest{RoomID: roomID, Capacity: capacity}
	err := c.do(ctx, http.MethodPost, c.endpoint("api", "rooms"), req, &out)
	return out, err
}

func (c *APIClient) GetRoom(ctx context.Context, roomID string) (httpx.RoomItem, error) {
	var out httpx.RoomItem
	err := c.do(ctx, http.MethodGet, c.endpoint("api", "rooms", roomID), nil, &out)
	return out, err
}

func (c *APIClient) ListRooms(ctx context.Context) ([]httpx.RoomItem, error) {
	var out httpx.RoomsListResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "rooms"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *APIClient) DeleteRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("api", "rooms", roomID), nil, nil)
}

func (c *APIClient) Stats(ctx context.Context) (ws.Stats, error) {
	var out ws.Stats
	err := c.do(ctx, http.MethodGet, c.endpoint("api", "stats"), nil, &out)
	return out, err
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *APIClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e errorEnvelope
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error.Message}
	}
	if out == nil {
		return nil
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
