// Package client calls the ride service's seat-management RPC surface.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
)

var (
	ErrRideNotFound = errors.New("ride not found")
	// ErrUnavailable covers transport failures, timeouts and answers we cannot interpret.
	ErrUnavailable = errors.New("ride service unavailable")
)

type RideConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RideClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewRideClient(cfg RideConfig) *RideClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &RideClient{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

func (c *RideClient) GetRideInfo(ctx context.Context, rideID string) (*contracts.RideInfo, error) {
	var info contracts.RideInfo
	status, err := c.do(ctx, http.MethodGet, c.ridePath(rideID, ""), nil, &info)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &info, nil
	case http.StatusNotFound:
		return nil, ErrRideNotFound
	default:
		return nil, fmt.Errorf("%w: get ride info: status %d", ErrUnavailable, status)
	}
}

// ReserveSeats is not idempotent: a lost response leaves the outcome unknown.
// A 409 comes back as a result with Conflict set, not as an error.
func (c *RideClient) ReserveSeats(ctx context.Context, rideID string, count int) (*contracts.SeatResult, error) {
	return c.seats(ctx, rideID, "/reserve", count)
}

func (c *RideClient) ReleaseSeats(ctx context.Context, rideID string, count int) (*contracts.SeatResult, error) {
	return c.seats(ctx, rideID, "/release", count)
}

func (c *RideClient) seats(ctx context.Context, rideID, action string, count int) (*contracts.SeatResult, error) {
	var res contracts.SeatResult
	status, err := c.do(ctx, http.MethodPost, c.ridePath(rideID, action), contracts.SeatRequest{Count: count}, &res)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return nil, fmt.Errorf("%w: %s seats: status %d", ErrUnavailable, action[1:], status)
	}
	return &res, nil
}

func (c *RideClient) ridePath(rideID, suffix string) string {
	return c.baseURL + "/rpc/v1/rides/" + url.PathEscape(rideID) + suffix
}

// do sends one request under the client's deadline and decodes a JSON body
// into out when the status is 200 or 409.
func (c *RideClient) do(ctx context.Context, method, target string, in, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusConflict {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}
