// Package directory reports transmit activity to the hub directory.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/pttstar/internal/api"
	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

var ErrRejected = errors.New("activity rejected")

type Client struct {
	base string
	http *http.Client
}

var _ core.ActivityReporter = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ReportActivity(ctx context.Context, a domain.Activity) error {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	body, err := json.Marshal(a)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+api.PathActivity, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report activity: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	}
	return nil
}
