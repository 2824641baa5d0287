// Package n26 is a thin client for the N26 banking API. It covers exactly
// what the connector consumes: the OAuth password grant, the account
// endpoint, and the transactions endpoint. Retry and backoff are left to
// the invoking scheduler.
package n26

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production N26 API host.
	DefaultBaseURL = "https://api.tech26.de"

	// basicAuth is the static client credential the public N26 apps use for
	// the password grant.
	basicAuth = "android:secret"

	// transactionsPageSize is the page size for the transactions endpoint.
	transactionsPageSize = 200
)

// StatusError is returned for any non-2xx vendor response. The orchestrator
// splits provider outages (status >= 500) from credential failures on it.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("n26: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the N26 API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a Client with the provided options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session is an authenticated N26 API session.
type Session struct {
	client      *Client
	accessToken string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate performs the OAuth password grant and returns an
// authenticated session. Any non-2xx response surfaces as *StatusError.
func (c *Client) Authenticate(ctx context.Context, login, password string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", login)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("Authenticate: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(basicAuth[:strings.Index(basicAuth, ":")], basicAuth[strings.Index(basicAuth, ":")+1:])

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("Authenticate: empty access token in response")
	}

	return &Session{client: c, accessToken: tok.AccessToken}, nil
}

// GetAccount fetches the account of the authenticated user.
func (s *Session) GetAccount(ctx context.Context) (Account, error) {
	req, err := s.newGet(ctx, "/api/accounts", nil)
	if err != nil {
		return Account{}, fmt.Errorf("GetAccount: building request: %w", err)
	}

	var acc Account
	if err := s.client.do(req, &acc); err != nil {
		return Account{}, fmt.Errorf("GetAccount: %w", err)
	}
	return acc, nil
}

// GetTransactions fetches all transactions of the authenticated user,
// following the vendor's lastId pagination until the final page.
func (s *Session) GetTransactions(ctx context.Context) ([]Transaction, error) {
	var all []Transaction
	lastID := ""

	for {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(transactionsPageSize))
		if lastID != "" {
			q.Set("lastId", lastID)
		}

		req, err := s.newGet(ctx, "/api/smrt/transactions", q)
		if err != nil {
			return nil, fmt.Errorf("GetTransactions: building request: %w", err)
		}

		var page []Transaction
		if err := s.client.do(req, &page); err != nil {
			return nil, fmt.Errorf("GetTransactions: %w", err)
		}

		all = append(all, page...)
		if len(page) < transactionsPageSize {
			return all, nil
		}
		lastID = page[len(page)-1].ID
	}
}

func (s *Session) newGet(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := s.client.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	return req, nil
}

// do executes the request and decodes a JSON body into out. Non-2xx
// responses become *StatusError with a truncated body for context.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("do: reading body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		const maxLen = 500
		msg := string(body)
		if len(msg) > maxLen {
			msg = msg[:maxLen]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("do: decoding response: %w", err)
		}
	}
	return nil
}
