// Package manifold is the REST client for the Manifold Markets API v0.
package manifold

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// maxPageSize is the largest page the API serves per request.
const maxPageSize = 1000

// rateKey is the limiter bucket shared by every request from one client.
const rateKey = "manifold:api"

// Client is the REST client for the Manifold Markets API.
//
// Authenticated endpoints use the "Authorization: Key <apiKey>" scheme.
// The key is sent on every request when set; public endpoints ignore it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	limiter    domain.RateLimiter
	ratePerMin int

	userPageSize int
}

// NewClient creates a new Manifold REST client.
//
// baseURL is the API root, e.g. "https://manifold.markets/api/v0".
// apiKey may be empty for read-only use of public endpoints.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userPageSize: maxPageSize,
	}
}

// SetRateLimiter configures client-side rate limiting. Every request first
// waits for a slot in the shared per-minute budget. perMinute <= 0 disables
// limiting.
func (c *Client) SetRateLimiter(rl domain.RateLimiter, perMinute int) {
	c.limiter = rl
	c.ratePerMin = perMinute
}

// SetUserPageSize overrides the page size used by ListUsers. Values outside
// 1..1000 are clamped.
func (c *Client) SetUserPageSize(n int) {
	if n < 1 {
		n = 1
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	c.userPageSize = n
}

// ListUsers returns every user on the platform, paging with the before
// cursor until a short page signals the end.
func (c *Client) ListUsers(ctx context.Context) ([]domain.Trader, error) {
	var (
		traders []domain.Trader
		before  string
	)
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.userPageSize))
		if before != "" {
			params.Set("before", before)
		}

		body, err := c.doGet(ctx, "/users?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("manifold: list users: %w", err)
		}

		var page []APIUser
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("manifold: decode users: %w", err)
		}

		for i := range page {
			traders = append(traders, page[i].ToDomainTrader())
		}

		if len(page) < c.userPageSize {
			return traders, nil
		}
		before = page[len(page)-1].ID
	}
}

// ListRecentBets returns the most recent bets across all markets, newest
// first, up to limit. Pages larger than the API maximum are assembled from
// multiple requests.
func (c *Client) ListRecentBets(ctx context.Context, limit int) ([]domain.Bet, error) {
	if limit < 1 {
		return nil, fmt.Errorf("manifold: list recent bets: limit must be >= 1, got %d", limit)
	}
	bets, err := c.listBets(ctx, "", limit)
	if err != nil {
		return nil, fmt.Errorf("manifold: list recent bets: %w", err)
	}
	return bets, nil
}

// CurrentAccount returns the account that owns the configured API key.
func (c *Client) CurrentAccount(ctx context.Context) (domain.Account, error) {
	body, err := c.doGet(ctx, "/me")
	if err != nil {
		return domain.Account{}, fmt.Errorf("manifold: current account: %w", err)
	}

	var me APIUser
	if err := json.Unmarshal(body, &me); err != nil {
		return domain.Account{}, fmt.Errorf("manifold: decode account: %w", err)
	}

	return me.ToDomainAccount(), nil
}

// GetMarket returns a market with its full bet history. The market document
// and its bets live behind separate endpoints, so this issues two fetches.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := c.doGet(ctx, "/market/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("manifold: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("manifold: decode market: %w", err)
	}

	bets, err := c.listBets(ctx, id, maxPageSize)
	if err != nil {
		return domain.Market{}, fmt.Errorf("manifold: get market %s bets: %w", id, err)
	}

	return apiMarket.ToDomainMarket(bets), nil
}

// listBets fetches up to limit bets, optionally scoped to one market,
// paging with the before cursor.
func (c *Client) listBets(ctx context.Context, contractID string, limit int) ([]domain.Bet, error) {
	var (
		bets   []domain.Bet
		before string
	)
	for len(bets) < limit {
		pageSize := limit - len(bets)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		if contractID != "" {
			params.Set("contractId", contractID)
		}
		if before != "" {
			params.Set("before", before)
		}

		body, err := c.doGet(ctx, "/bets?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var page []APIBet
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode bets: %w", err)
		}

		for i := range page {
			bets = append(bets, page[i].ToDomainBet())
		}

		if len(page) < pageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	return bets, nil
}

// doGet sends a GET request, honouring the rate limiter and attaching the
// API key when present.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil && c.ratePerMin > 0 {
		if err := c.limiter.Wait(ctx, rateKey, c.ratePerMin, time.Minute); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps error status codes to domain sentinel errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
