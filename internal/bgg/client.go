// Package bgg is a client for the BoardGameGeek XML API2.
package bgg

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
	"github.com/park285/r2d8-reddit-bot/internal/httpx"
)

// ErrCatalog wraps every failure talking to the catalog.
var ErrCatalog = errors.New("catalog error")

// Cache stores raw catalog responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	limiter *rate.Limiter
	cache   Cache
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithRateLimit spaces outbound requests at least every apart. Zero disables limiting.
func WithRateLimit(every time.Duration) Option {
	return func(c *Client) {
		if every <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 20 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		limiter:        rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:         zap.NewNop(),
		defaultTimeout: 20 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search lists board games (base games and expansions) whose name matches.
func (c *Client) Search(ctx context.Context, name string, exact bool) ([]domain.SearchHit, error) {
	q := url.Values{}
	q.Set("query", name)
	q.Set("type", "boardgame")
	if exact {
		q.Set("exact", "1")
	}
	var resp searchResponse
	if err := c.getXML(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(resp.Items))
	for i := range resp.Items {
		hits = append(hits, resp.Items[i].toHit())
	}
	return hits, nil
}

// GameByID fetches full details of one catalog entry. A missing id yields (nil, nil).
func (c *Client) GameByID(ctx context.Context, id string) (*domain.Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("id", id)
	q.Set("stats", "1")
	var resp thingResponse
	if err := c.getXML(ctx, "/thing", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0].toGame(), nil
}

// GameByName looks a game up by its exact name. Alternate names also match an
// exact search, so a hit carrying the queried primary name is preferred.
func (c *Client) GameByName(ctx context.Context, name string) (*domain.Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	hits, err := c.Search(ctx, name, true)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	pick := hits[0]
	for _, h := range hits {
		if strings.EqualFold(h.Name, name) {
			pick = h
			break
		}
	}
	return c.GameByID(ctx, pick.ID)
}

func (c *Client) getXML(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrCatalog, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	key := "bgg:" + path + "?" + q.Encode()
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("bgg_cache_get_failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return body, nil
		}
	}

	body, err := c.fetch(ctx, c.baseURL+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.logger.Warn("bgg_cache_set_failed", zap.String("key", key), zap.Error(err))
		}
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, uri string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(uri)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
		}
		c.logger.Debug("bgg_request", zap.String("uri", uri), zap.Int("attempt", attempt))
		err := c.http.DoDeadline(req, resp, httpx.Deadline(ctx, c.defaultTimeout))
		if err != nil {
			lastErr = fmt.Errorf("%w: request failed: %v", ErrCatalog, err)
		} else {
			status := resp.StatusCode()
			if status == fasthttp.StatusOK {
				return append([]byte(nil), resp.Body()...), nil
			}
			lastErr = fmt.Errorf("%w: status=%d body=%s", ErrCatalog, status, httpx.Truncate(string(resp.Body()), 256))
			if !shouldRetryStatus(status) {
				return nil, lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if err := httpx.Sleep(ctx, httpx.Backoff(attempt, 250*time.Millisecond)); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// 202 means the request was queued by BGG and should be retried.
func shouldRetryStatus(code int) bool {
	switch code {
	case 202, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

