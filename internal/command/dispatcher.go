package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
	"github.com/park285/r2d8-reddit-bot/internal/format"
	"github.com/park285/r2d8-reddit-bot/internal/msgcat"
	"github.com/park285/r2d8-reddit-bot/internal/resolver"
	"github.com/park285/r2d8-reddit-bot/internal/store"
)

// Platform is the part of the social platform the handlers write to.
type Platform interface {
	Comment(ctx context.Context, id string) (*domain.Comment, error)
	Reply(ctx context.Context, parent, text string) (*domain.Comment, error)
	Edit(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, ids ...string) error
}

// Resolver turns names into games.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (resolver.Result, error)
	ResolveAll(ctx context.Context, names []string, sortBy resolver.SortKey) resolver.Batch
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Platform  Platform
	Resolver  Resolver
	Formatter *format.Formatter
	Aliases   store.AliasStore
	Ledger    store.Ledger
	Users     store.Users
	Messages  *msgcat.Catalog
	Logger    *zap.Logger
}

type Dispatcher struct {
	settings Settings
	lexer    *Lexer
	deps     Deps
	logger   *zap.Logger
	pick     func(n int) int
}

type Option func(*Dispatcher)

// WithPicker replaces the random choice of the parody rotation.
func WithPicker(pick func(n int) int) Option {
	return func(d *Dispatcher) {
		if pick != nil {
			d.pick = pick
		}
	}
}

func NewDispatcher(settings Settings, deps Deps, opts ...Option) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Messages == nil {
		deps.Messages = msgcat.Default()
	}
	if deps.Formatter == nil {
		deps.Formatter = format.NewFormatter(settings.BotName(), deps.Messages, 0, deps.Logger)
	}
	d := &Dispatcher{
		settings: settings,
		lexer:    NewLexer(settings.BotName()),
		deps:     deps,
		logger:   deps.Logger,
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lexer returns the invocation lexer for the bot account.
func (d *Dispatcher) Lexer() *Lexer { return d.lexer }

// Dispatch runs every invocation found in c, in order. Failures are logged per
// invocation and do not stop the rest. It returns how many invocations ran.
func (d *Dispatcher) Dispatch(ctx context.Context, c *domain.Comment) int {
	c = decoded(c)
	ran := 0
	for _, inv := range d.lexer.Parse(c.Body) {
		if inv.Kind == KindUnknown {
			d.logger.Info("unknown_command", zap.String("comment_id", c.ID), zap.String("keyword", inv.Keyword))
			continue
		}
		d.run(ctx, c, inv)
		ran++
	}
	if ran == 0 {
		d.logger.Debug("no_invocation", zap.String("comment_id", c.ID))
	}
	return ran
}

// Force runs keyword against c regardless of what the body says. Tokens of the
// first matching invocation in the body, if any, are kept.
func (d *Dispatcher) Force(ctx context.Context, c *domain.Comment, keyword string) error {
	kind := ParseKind(keyword)
	if kind == KindUnknown {
		return fmt.Errorf("unknown command %q", keyword)
	}
	c = decoded(c)
	inv := Invocation{Kind: kind, Keyword: kind.String()}
	for _, found := range d.lexer.Parse(c.Body) {
		if found.Kind == kind {
			inv = found
			break
		}
	}
	d.run(ctx, c, inv)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, c *domain.Comment, inv Invocation) {
	log := d.logger.With(
		zap.String("comment_id", c.ID),
		zap.String("author", c.Author),
		zap.String("command", inv.Kind.String()),
	)
	if err := d.Run(ctx, c, inv); err != nil {
		if errors.Is(err, errSkipped) {
			return
		}
		log.Error("command_failed", zap.Error(err))
		return
	}
	log.Info("command_handled")
}

// errSkipped marks an invocation that was deliberately not acted on.
var errSkipped = errors.New("skipped")

// Run executes one invocation against an already decoded comment.
func (d *Dispatcher) Run(ctx context.Context, c *domain.Comment, inv Invocation) error {
	switch inv.Kind {
	case KindXyzzy, KindGetAliases, KindAlias:
	default:
		ignored, err := d.deps.Users.IsIgnored(ctx, c.Author)
		if err != nil {
			return fmt.Errorf("ignore check: %w", err)
		}
		if ignored {
			d.logger.Info("ignored_user", zap.String("comment_id", c.ID), zap.String("author", c.Author), zap.String("command", inv.Kind.String()))
			return errSkipped
		}
	}

	switch inv.Kind {
	case KindGetInfo:
		return d.getInfo(ctx, c, inv)
	case KindGetParentInfo:
		return d.getParentInfo(ctx, c, inv)
	case KindRepair:
		return d.repair(ctx, c)
	case KindAlias:
		return d.alias(ctx, c)
	case KindGetAliases:
		return d.getAliases(ctx, c)
	case KindExpandURLs:
		return d.expandURLs(ctx, c, inv)
	case KindTryAgain:
		return d.tryAgain(ctx, c)
	case KindXyzzy:
		return d.xyzzy(ctx, c)
	case KindUnknown:
		return fmt.Errorf("unknown command %q", inv.Keyword)
	default:
		return fmt.Errorf("unhandled command kind %d", inv.Kind)
	}
}

func decoded(c *domain.Comment) *domain.Comment {
	cp := *c
	cp.Body = html.UnescapeString(c.Body)
	return &cp
}
