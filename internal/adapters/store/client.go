// Package store is the HTTP client of the hub's signal store.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dkeye/pttstar/internal/api"
	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Client struct {
	base string
	http *http.Client
}

var _ core.SignalStore = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) signalsURL(room domain.RoomKey) string {
	return c.base + api.SignalsPath(url.PathEscape(string(room)))
}

func (c *Client) Head(ctx context.Context, room domain.RoomKey) (int64, error) {
	u := c.base + api.HeadPath(url.PathEscape(string(room)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("room head: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("room head: %w: %s", ErrUnexpectedStatus, resp.Status)
	}
	var out api.HeadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("room head: decode: %w", err)
	}
	return out.Timestamp, nil
}

func (c *Client) PostSignal(ctx context.Context, room domain.RoomKey, content string) error {
	body, err := json.Marshal(api.PostSignalRequest{Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signalsURL(room), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post signal: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("post signal: %w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return nil
}

func (c *Client) FetchSince(ctx context.Context, room domain.RoomKey, ts int64) ([]core.StoredSignal, error) {
	u := c.signalsURL(room) + "?since=" + strconv.FormatInt(ts, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signals: %w: %s", ErrUnexpectedStatus, resp.Status)
	}
	var out api.SignalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch signals: decode: %w", err)
	}
	return out.Signals, nil
}
