package reddit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// Platform is everything the bot does against Reddit. *Client implements it.
type Platform interface {
	Mentions(ctx context.Context) ([]*domain.Comment, error)
	Unread(ctx context.Context) ([]*domain.Comment, error)
	Comment(ctx context.Context, id string) (*domain.Comment, error)
	Reply(ctx context.Context, parent, text string) (*domain.Comment, error)
	Edit(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	MarkRead(ctx context.Context, ids ...string) error
	MarkUnread(ctx context.Context, ids ...string) error
}

var _ Platform = (*Client)(nil)

// NewDryRun wraps p so reads go through and every write is only logged.
func NewDryRun(p Platform, logger *zap.Logger) Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dryRun{Platform: p, logger: logger}
}

type dryRun struct {
	Platform
	logger *zap.Logger
}

func (d *dryRun) Reply(ctx context.Context, parent, text string) (*domain.Comment, error) {
	d.logger.Info("reddit_dryrun", zap.String("op", "reply"), zap.String("parent", parent), zap.String("text", text))
	return &domain.Comment{ID: "dryrun", Fullname: "t1_dryrun", Body: text, ParentID: Fullname(parent)}, nil
}

func (d *dryRun) Edit(ctx context.Context, id, text string) error {
	d.logger.Info("reddit_dryrun", zap.String("op", "edit"), zap.String("id", id), zap.String("text", text))
	return nil
}

func (d *dryRun) Delete(ctx context.Context, id string) error {
	d.logger.Info("reddit_dryrun", zap.String("op", "delete"), zap.String("id", id))
	return nil
}

func (d *dryRun) MarkRead(ctx context.Context, ids ...string) error {
	d.logger.Debug("reddit_dryrun", zap.String("op", "mark_read"), zap.String("ids", strings.Join(ids, ",")))
	return nil
}

func (d *dryRun) MarkUnread(ctx context.Context, ids ...string) error {
	d.logger.Debug("reddit_dryrun", zap.String("op", "mark_unread"), zap.String("ids", strings.Join(ids, ",")))
	return nil
}
