package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	APIVersion     = "2022-06-28"

	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 5
)

// Limiter paces write requests. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	timeout       time.Duration
	maxTries      uint
	retryInterval time.Duration
	writeLimiter  Limiter
	userAgent     string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout bounds every single HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithMaxTries(tries uint) Option {
	return func(c *Client) { c.maxTries = tries }
}

// WithRetryInterval sets the initial backoff interval between attempts.
func WithRetryInterval(interval time.Duration) Option {
	return func(c *Client) { c.retryInterval = interval }
}

// WithWriteLimiter makes every write request wait on limiter first.
func WithWriteLimiter(limiter Limiter) Option {
	return func(c *Client) { c.writeLimiter = limiter }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("notion API token is required")
	}

	c := &Client{
		baseURL:       DefaultBaseURL,
		token:         token,
		httpClient:    &http.Client{},
		timeout:       defaultTimeout,
		maxTries:      defaultMaxTries,
		retryInterval: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid notion API URL: %w", err)
	}

	return c, nil
}

func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var database Database
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+databaseID, nil, &database, false); err != nil {
		return nil, fmt.Errorf("failed to retrieve database: %w", err)
	}
	return &database, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+databaseID+"/query", req, &resp, false); err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	return &resp, nil
}

func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", req, &page, true); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &page, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, req UpdatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+pageID, req, &page, true); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	return &page, nil
}

func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	path := "/v1/blocks/" + blockID + "/children?page_size=100"
	if cursor != "" {
		path += "&start_cursor=" + url.QueryEscape(cursor)
	}

	var list BlockList
	if err := c.do(ctx, http.MethodGet, path, nil, &list, false); err != nil {
		return nil, fmt.Errorf("failed to list block children: %w", err)
	}
	return &list, nil
}

func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) error {
	req := AppendBlockChildrenRequest{Children: children}
	if err := c.do(ctx, http.MethodPatch, "/v1/blocks/"+blockID+"/children", req, nil, true); err != nil {
		return fmt.Errorf("failed to append block children: %w", err)
	}
	return nil
}

func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/blocks/"+blockID, nil, nil, true); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// do sends one API call, retrying retryable failures with exponential
// backoff. Non-retryable API errors are returned after the first attempt.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, write bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = 30 * time.Second

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++

		if write && c.writeLimiter != nil {
			if err := c.writeLimiter.Wait(ctx); err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
		}

		err := c.send(ctx, method, path, payload, out)
		if err == nil {
			return struct{}{}, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.IsRetryable() {
				return struct{}{}, backoff.Permanent(err)
			}
			if apiErr.RetryAfter > 0 && attempt < int(c.maxTries) {
				if waitErr := sleep(ctx, apiErr.RetryAfter); waitErr != nil {
					return struct{}{}, backoff.Permanent(err)
				}
			}
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		slog.Debug("Notion request failed, retrying", "method", method, "path", path, "attempt", attempt, "error", err)
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
	)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
