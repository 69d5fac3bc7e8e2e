// Package reddit is a small OAuth client for the parts of the Reddit API the bot uses.
package reddit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/httpx"
)

// ErrRejected is returned when the API accepts a request but reports errors in its payload.
var ErrRejected = errors.New("reddit rejected request")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit api error: status=%d body=%s", e.Status, e.Body)
}

// Credentials identify the script application and the account it acts for.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	RefreshToken string
}

type Client struct {
	authURL string
	apiURL  string
	creds   Credentials
	http    *fasthttp.Client
	logger  *zap.Logger
	now     func() time.Time

	defaultTimeout time.Duration
	retryMax       int

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(authURL, apiURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		authURL:        strings.TrimRight(authURL, "/"),
		apiURL:         strings.TrimRight(apiURL, "/"),
		creds:          creds,
		http:           &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		logger:         zap.NewNop(),
		now:            time.Now,
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// accessToken returns a cached bearer token, refreshing it 60s before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiry.Add(-60*time.Second)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.creds.RefreshToken)

	basic := base64.StdEncoding.EncodeToString([]byte(c.creds.ClientID + ":" + c.creds.ClientSecret))
	var tok tokenResponse
	err := c.do(ctx, fasthttp.MethodPost, c.authURL+"/api/v1/access_token", form, "Basic "+basic, &tok)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token grant %q", ErrRejected, tok.Error)
	}
	c.token = tok.AccessToken
	c.expiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("reddit_token_refreshed", zap.Time("expires_at", c.expiry))
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// call performs an authenticated API request. A 401 drops the cached token and retries once.
func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	for pass := 0; pass < 2; pass++ {
		tok, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		err = c.do(ctx, method, c.apiURL+path, form, "bearer "+tok, out)
		var apiErr *APIError
		if pass == 0 && errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusUnauthorized {
			c.logger.Info("reddit_token_rejected", zap.String("path", path))
			c.invalidateToken()
			continue
		}
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, uri string, form url.Values, auth string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.Header.Set("User-Agent", c.creds.UserAgent)
	req.Header.Set("Authorization", auth)
	if method == fasthttp.MethodGet {
		if len(form) > 0 {
			uri += "?" + form.Encode()
		}
	} else {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form.Encode())
	}
	req.SetRequestURI(uri)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, httpx.Deadline(ctx, c.defaultTimeout))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				if out != nil {
					if err := json.Unmarshal(resp.Body(), out); err != nil {
						return fmt.Errorf("decode response: %w", err)
					}
				}
				return nil
			}
			lastErr = &APIError{Status: status, Body: httpx.Truncate(string(resp.Body()), 512)}
			if !shouldRetryStatus(status) {
				return lastErr
			}
		}
		if attempt == attempts {
			break
		}
		c.logger.Debug("reddit_request_retry", zap.String("uri", uri), zap.Int("attempt", attempt), zap.Error(lastErr))
		if err := httpx.Sleep(ctx, httpx.Backoff(attempt, 100*time.Millisecond)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

