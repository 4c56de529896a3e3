// internal/infra/pvpq/client.go
package pvpq

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

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL serves both the activity API and the public site.
const DefaultBaseURL = "https://pvpq.net"

const (
	maxBodyBytes    = 32 << 20
	bodyExcerptSize = 512
)

// Valid timestamps fall between 0001-01-01 and 9999-12-31 UTC.
var (
	minTimestampMillis = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxTimestampMillis = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()
)

// Custom errors returned by Client.LastUpdated
var ErrNetwork = errors.New("activity source request failed")
var ErrParse = errors.New("activity response is not valid JSON")
var ErrSchema = errors.New("activity response has no valid timestamp")

// ErrStatus marks a non-2xx response whose body still carried a valid timestamp.
var ErrStatus = fmt.Errorf("%w: unexpected HTTP status", ErrSchema)

// Client fetches activity pages from the pvpq API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Entry
}

func NewClient(baseURL string, client *http.Client, logger *logrus.Entry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// ActivityURL returns the first activity page URL for a region and bracket.
func (c *Client) ActivityURL(region, bracket string) string {
	return fmt.Sprintf("%s/api/%s/activity/%s?page=1", c.baseURL, url.PathEscape(region), url.PathEscape(bracket))
}

// LastUpdated returns the UTC instant carried in the "timestamp" field (epoch milliseconds)
// of the first activity page.
func (c *Client) LastUpdated(ctx context.Context, region, bracket string) (time.Time, error) {
	endpoint := c.ActivityURL(region, bracket)
	logCtx := c.logger.WithFields(logrus.Fields{"url": endpoint, "region": region, "bracket": bracket})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: GET %s: %w", ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read body of %s: %w", ErrNetwork, endpoint, err)
	}
	logCtx.WithFields(logrus.Fields{"status": resp.StatusCode, "bytes": len(body)}).Debug("Activity page received")

	millis, err := extractTimestamp(body)
	if err != nil {
		return time.Time{}, fmt.Errorf("GET %s (HTTP %d): %w (body: %s)", endpoint, resp.StatusCode, err, excerpt(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("GET %s: %w %d (body: %s)", endpoint, ErrStatus, resp.StatusCode, excerpt(body))
	}
	return time.UnixMilli(millis).UTC(), nil
}

func extractTimestamp(body []byte) (int64, error) {
	if !json.Valid(body) {
		return 0, ErrParse
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrParse, err)
	}

	fields, ok := doc.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: top-level value is not an object", ErrSchema)
	}
	raw, ok := fields["timestamp"]
	if !ok {
		return 0, fmt.Errorf("%w: field \"timestamp\" is missing", ErrSchema)
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: field \"timestamp\" is %T, not a number", ErrSchema, raw)
	}
	millis, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: field \"timestamp\" %q is not an integer", ErrSchema, num.String())
	}
	if millis < minTimestampMillis || millis > maxTimestampMillis {
		return 0, fmt.Errorf("%w: timestamp %d is out of range", ErrSchema, millis)
	}
	return millis, nil
}

func excerpt(body []byte) string {
	if len(body) <= bodyExcerptSize {
		return string(body)
	}
	return string(body[:bodyExcerptSize]) + "..."
}
