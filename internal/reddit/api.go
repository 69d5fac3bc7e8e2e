package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

const (
	kindComment = "t1"
	inboxLimit  = "100"
)

type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string      `json:"kind"`
	Data commentData `json:"data"`
}

type commentData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	ParentID  string `json:"parent_id"`
	LinkID    string `json:"link_id"`
}

func (d commentData) toComment() *domain.Comment {
	fullname := d.Name
	if fullname == "" && d.ID != "" {
		fullname = kindComment + "_" + d.ID
	}
	return &domain.Comment{
		ID:        d.ID,
		Fullname:  fullname,
		Body:      d.Body,
		Author:    d.Author,
		Subreddit: d.Subreddit,
		ParentID:  d.ParentID,
		LinkID:    d.LinkID,
		IsRoot:    strings.HasPrefix(d.ParentID, "t3_"),
	}
}

// comments keeps the t1 children of l; private messages are dropped.
func (l *listing) comments() []*domain.Comment {
	out := make([]*domain.Comment, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if ch.Kind != kindComment {
			continue
		}
		out = append(out, ch.Data.toComment())
	}
	return out
}

// writeResponse is the api_type=json envelope of write endpoints.
type writeResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func (w *writeResponse) err() error {
	if len(w.JSON.Errors) == 0 {
		return nil
	}
	parts := make([]string, 0, len(w.JSON.Errors))
	for _, e := range w.JSON.Errors {
		parts = append(parts, fmt.Sprint(e...))
	}
	return fmt.Errorf("%w: %s", ErrRejected, strings.Join(parts, "; "))
}

// Mentions lists comments that mention the account.
func (c *Client) Mentions(ctx context.Context) ([]*domain.Comment, error) {
	return c.inbox(ctx, "/message/mentions")
}

// Unread lists unread inbox comments (replies and mentions).
func (c *Client) Unread(ctx context.Context) ([]*domain.Comment, error) {
	return c.inbox(ctx, "/message/unread")
}

func (c *Client) inbox(ctx context.Context, path string) ([]*domain.Comment, error) {
	q := url.Values{}
	q.Set("limit", inboxLimit)
	var l listing
	if err := c.call(ctx, fasthttp.MethodGet, path, q, &l); err != nil {
		return nil, err
	}
	return l.comments(), nil
}

// Comment loads one comment by id or fullname. A missing comment yields (nil, nil).
func (c *Client) Comment(ctx context.Context, id string) (*domain.Comment, error) {
	q := url.Values{}
	q.Set("id", Fullname(id))
	var l listing
	if err := c.call(ctx, fasthttp.MethodGet, "/api/info", q, &l); err != nil {
		return nil, err
	}
	cs := l.comments()
	if len(cs) == 0 {
		return nil, nil
	}
	return cs[0], nil
}

// Reply posts text as a reply to the comment parent and returns the new comment.
func (c *Client) Reply(ctx context.Context, parent, text string) (*domain.Comment, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", Fullname(parent))
	form.Set("text", text)
	var resp writeResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/api/comment", form, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if len(resp.JSON.Data.Things) == 0 {
		return nil, nil
	}
	return resp.JSON.Data.Things[0].Data.toComment(), nil
}

// Edit replaces the body of one of the account's comments.
func (c *Client) Edit(ctx context.Context, id, text string) error {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", Fullname(id))
	form.Set("text", text)
	var resp writeResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/api/editusertext", form, &resp); err != nil {
		return err
	}
	return resp.err()
}

// Delete removes one of the account's comments.
func (c *Client) Delete(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", Fullname(id))
	return c.call(ctx, fasthttp.MethodPost, "/api/del", form, nil)
}

// MarkRead marks inbox items read.
func (c *Client) MarkRead(ctx context.Context, ids ...string) error {
	return c.markMessages(ctx, "/api/read_message", ids)
}

// MarkUnread marks inbox items unread.
func (c *Client) MarkUnread(ctx context.Context, ids ...string) error {
	return c.markMessages(ctx, "/api/unread_message", ids)
}

func (c *Client) markMessages(ctx context.Context, path string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, Fullname(id))
	}
	form := url.Values{}
	form.Set("id", strings.Join(names, ","))
	return c.call(ctx, fasthttp.MethodPost, path, form, nil)
}

// Fullname prefixes a bare comment id with its kind; fullnames pass through.
func Fullname(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 3 && id[0] == 't' && id[2] == '_' {
		return id
	}
	return kindComment + "_" + id
}
