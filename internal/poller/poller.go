// Package poller drives the bot: it reads the inbox, skips comments already
// handled and hands the rest to the command dispatcher.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
	"github.com/park285/r2d8-reddit-bot/internal/store"
)

// Inbox is the read side of the platform.
type Inbox interface {
	Mentions(ctx context.Context) ([]*domain.Comment, error)
	Unread(ctx context.Context) ([]*domain.Comment, error)
	Comment(ctx context.Context, id string) (*domain.Comment, error)
	MarkRead(ctx context.Context, ids ...string) error
}

// Dispatcher runs the commands of one comment.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *domain.Comment) int
	Force(ctx context.Context, c *domain.Comment, keyword string) error
}

// Stats summarizes one cycle.
type Stats struct {
	Seen       int
	New        int
	Dispatched int
}

type Poller struct {
	inbox      Inbox
	ledger     store.Ledger
	dispatcher Dispatcher
	logger     *zap.Logger
	sleep      time.Duration
	markOnly   bool
	newID      func() string
}

type Option func(*Poller)

func WithSleep(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.sleep = d
		}
	}
}

// WithMarkOnly records unseen comments without running any command.
func WithMarkOnly(v bool) Option {
	return func(p *Poller) { p.markOnly = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(inbox Inbox, ledger store.Ledger, dispatcher Dispatcher, opts ...Option) *Poller {
	p := &Poller{
		inbox:      inbox,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		sleep:      5 * time.Second,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is done. In mark-only mode it stops after one cycle.
// Cycle failures are logged and the loop carries on after the sleep interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller_started", zap.Duration("sleep", p.sleep), zap.Bool("mark_only", p.markOnly))
	for {
		if _, err := p.safeCycle(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("poll_cycle_failed", zap.Error(err))
		}
		if p.markOnly {
			return nil
		}
		t := time.NewTimer(p.sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			p.logger.Info("poller_stopped")
			return nil
		case <-t.C:
		}
	}
}

// RunOnce performs a single cycle.
func (p *Poller) RunOnce(ctx context.Context) (Stats, error) {
	return p.safeCycle(ctx)
}

func (p *Poller) safeCycle(ctx context.Context) (stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
		}
	}()
	return p.Cycle(ctx)
}

// Cycle reads mentions and unread items once and processes every unseen comment in order.
func (p *Poller) Cycle(ctx context.Context) (Stats, error) {
	var stats Stats
	log := p.logger.With(zap.String("cycle_id", p.newID()))

	mentions, err := p.inbox.Mentions(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch mentions: %w", err)
	}
	unread, err := p.inbox.Unread(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch unread: %w", err)
	}

	seen := make(map[string]struct{}, len(mentions)+len(unread))
	for _, c := range append(mentions, unread...) {
		if c == nil || c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		stats.Seen++

		if err := ctx.Err(); err != nil {
			return stats, err
		}
		done, err := p.ledger.Exists(ctx, c.ID)
		if err != nil {
			log.Error("ledger_check_failed", zap.String("comment_id", c.ID), zap.Error(err))
			continue
		}
		if done {
			continue
		}
		if err := p.record(ctx, c); err != nil {
			log.Error("ledger_record_failed", zap.String("comment_id", c.ID), zap.Error(err))
			continue
		}
		stats.New++
		if p.markOnly {
			log.Debug("comment_marked", zap.String("comment_id", c.ID))
			continue
		}
		stats.Dispatched += p.process(ctx, log, c)
	}
	log.Debug("poll_cycle_done", zap.Int("seen", stats.Seen), zap.Int("new", stats.New), zap.Int("dispatched", stats.Dispatched))
	return stats, nil
}

// Target handles a single comment by id, bypassing the ledger check. A non-empty
// keyword runs only that command.
func (p *Poller) Target(ctx context.Context, id, keyword string) error {
	c, err := p.inbox.Comment(ctx, id)
	if err != nil {
		return fmt.Errorf("load comment %s: %w", id, err)
	}
	if c == nil {
		return fmt.Errorf("comment %s not found", id)
	}
	if err := p.record(ctx, c); err != nil {
		return fmt.Errorf("record %s: %w", c.ID, err)
	}
	if keyword != "" {
		p.logger.Info("comment_forced", zap.String("comment_id", c.ID), zap.String("command", keyword))
		return p.dispatcher.Force(ctx, c, keyword)
	}
	p.process(ctx, p.logger, c)
	return nil
}

// record must happen before any handler runs so a failing handler is not retried.
func (p *Poller) record(ctx context.Context, c *domain.Comment) error {
	if err := p.ledger.Record(ctx, c.ID); err != nil {
		return err
	}
	name := c.Fullname
	if name == "" {
		name = c.ID
	}
	if err := p.inbox.MarkRead(ctx, name); err != nil {
		p.logger.Warn("mark_read_failed", zap.String("comment_id", c.ID), zap.Error(err))
	}
	return nil
}

func (p *Poller) process(ctx context.Context, log *zap.Logger, c *domain.Comment) (n int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("comment_panic", zap.String("comment_id", c.ID), zap.Any("panic", r))
		}
	}()
	n = p.dispatcher.Dispatch(ctx, c)
	log.Info("comment_processed", zap.String("comment_id", c.ID), zap.String("author", c.Author), zap.Int("commands", n))
	return n
}

// IsStop reports whether err only means the loop was asked to stop.
func IsStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
