// Package osrm is a street-routing provider backed by an OSRM server. It
// only refines how an already-ordered route is drawn; it never changes the
// stop order.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/mfiguera/rutero/internal/geo"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Route asks OSRM for a driving path through the ordered coordinates and
// returns the decoded polyline plus the road distance in meters. At least
// two points are required.
func (c *Client) Route(ctx context.Context, ordered []geo.Coordinates) ([]geo.Coordinates, int, error) {
	if len(ordered) < 2 {
		return nil, 0, errors.New("street route: need at least two coordinates")
	}

	var sb strings.Builder
	for i, p := range ordered {
		if i > 0 {
			sb.WriteByte(';')
		}

		// OSRM wants lon,lat order.
		sb.WriteString(strconv.FormatFloat(p.Lon, 'f', 6, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}

	endpoint := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=polyline", c.baseURL, sb.String())

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("street route: %w", err)
	}
	defer resp.Body.Close()

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, 0, fmt.Errorf("decoding osrm response: %w", err)
	}

	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return nil, 0, fmt.Errorf("osrm found no route (code %q)", decoded.Code)
	}

	coords, _, err := polyline.DecodeCoords([]byte(decoded.Routes[0].Geometry))
	if err != nil {
		return nil, 0, fmt.Errorf("decoding osrm polyline: %w", err)
	}

	path := make([]geo.Coordinates, len(coords))
	for i, c := range coords {
		path[i] = geo.Coordinates{Lat: c[0], Lon: c[1]}
	}

	return path, int(decoded.Routes[0].Distance), nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (c *Client) doWithRetry(ctx context.Context, endpoint string) (*http.Response, error) {
	const maxAttempts = 3
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
