// Package identity is the client for the external identity service's user RPC.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrUnavailable covers transport failures, timeouts and 5xx answers.
	ErrUnavailable = errors.New("identity service unavailable")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// ValidateUser reports whether userID belongs to an active account. An
// unknown user is invalid, not an error.
func (c *Client) ValidateUser(ctx context.Context, userID string) (bool, error) {
	info, err := c.GetUserInfo(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsValid, nil
}

func (c *Client) GetUserInfo(ctx context.Context, userID string) (*contracts.UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rpc/v1/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info contracts.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return &info, nil
}
