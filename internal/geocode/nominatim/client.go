// Package nominatim is a geocoding provider backed by a Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mfiguera/rutero/internal/geo"
)

type Client struct {
	baseURL   string
	userAgent string
	region    string
	country   string
	viewbox   string
	client    *http.Client
}

type Config struct {
	BaseURL   string
	UserAgent string
	// Region is appended to every query ("Rosario, Santa Fe, Argentina")
	// so street-level addresses resolve inside the delivery area.
	Region string
	// Country restricts results (ISO code, e.g. "ar").
	Country string
	// Viewbox biases the first attempt ("lon1,lat1,lon2,lat2");
	// empty disables the bounded attempt.
	Viewbox string
}

func New(cfg Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		region:    cfg.Region,
		country:   cfg.Country,
		viewbox:   cfg.Viewbox,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves the address, first bounded to the configured viewbox,
// then unbounded if the bounded attempt finds nothing. A false result means
// the address is unknown to the provider.
func (c *Client) Geocode(ctx context.Context, addr string) (geo.Coordinates, bool, error) {
	query := addr
	if c.region != "" {
		query = addr + ", " + c.region
	}

	if c.viewbox != "" {
		coords, ok, err := c.search(ctx, query, true)
		if err != nil {
			return geo.Coordinates{}, false, err
		}

		if ok {
			return coords, true, nil
		}
	}

	return c.search(ctx, query, false)
}

func (c *Client) search(ctx context.Context, query string, bounded bool) (geo.Coordinates, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	if c.country != "" {
		params.Set("countrycodes", c.country)
	}

	if bounded && c.viewbox != "" {
		params.Set("viewbox", c.viewbox)
		params.Set("bounded", "1")
	}

	endpoint := c.baseURL + "/search?" + params.Encode()

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("nominatim search: %w", err)
	}
	defer resp.Body.Close()

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("decoding nominatim response: %w", err)
	}

	if len(results) == 0 {
		return geo.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("parsing nominatim latitude %q: %w", results[0].Lat, err)
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("parsing nominatim longitude %q: %w", results[0].Lon, err)
	}

	return geo.Coordinates{Lat: lat, Lon: lon}, true, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// doWithRetry retries transient failures (network errors, 429, 5xx) with
// exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, endpoint string) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, endpoint)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return resp, nil
}

func isTransient(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}

		return false
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
