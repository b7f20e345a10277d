// Package https uploads snapshots with a single HTTPS GET request in the
// style of ThingSpeak channel updates.
package https

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/oshokin/climate-alarm/internal/config"
	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
	"github.com/oshokin/climate-alarm/internal/transport"
	"github.com/oshokin/climate-alarm/internal/version"
)

// Client sends readings as query parameters.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	apiKey   string
}

// maxBodyLog limits how much of an error response is kept.
const maxBodyLog = 512

var errUnexpectedStatus = errors.New("unexpected status")

// New builds a client for cfg.
func New(cfg *config.HTTPS) (*Client, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	tlsConfig, err := transport.TLSConfig(cfg.CAFile, cfg.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}

	base, _ := http.DefaultTransport.(*http.Transport)
	rt := base.Clone()
	rt.TLSClientConfig = tlsConfig

	return newClient(&http.Client{Transport: rt}, endpoint, cfg.APIKey), nil
}

func newClient(c *http.Client, endpoint *url.URL, apiKey string) *Client {
	return &Client{
		http:     c,
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// Publish sends one GET request; the deadline comes from ctx.
func (c *Client) Publish(ctx context.Context, snapshot *climate.Snapshot) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(snapshot), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: %s", errUnexpectedStatus, resp.Status, body)
	}

	logger.DebugKV(ctx, "Reading uploaded", "status", resp.StatusCode, "response", string(body))

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()

	return nil
}

func (c *Client) requestURL(snapshot *climate.Snapshot) string {
	u := *c.endpoint

	query := u.Query()
	query.Set("api_key", c.apiKey)
	query.Set("field1", strconv.FormatFloat(snapshot.Reading.Celsius(), 'f', 1, 64))
	query.Set("field2", strconv.FormatFloat(snapshot.Reading.Percent(), 'f', 1, 64))
	u.RawQuery = query.Encode()

	return u.String()
}
