// Package resolver turns loosely typed game names into catalog entries.
package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// Catalog is the game database the resolver queries. Absence is (nil, nil).
type Catalog interface {
	GameByName(ctx context.Context, name string) (*domain.Game, error)
	GameByID(ctx context.Context, id string) (*domain.Game, error)
	Search(ctx context.Context, name string, exact bool) ([]domain.SearchHit, error)
}

// AliasLookup maps informal names to canonical names.
type AliasLookup interface {
	CanonicalName(ctx context.Context, alias string) (string, bool, error)
}

// Result is the outcome of resolving one name: Found when Game is non-nil.
type Result struct {
	Query string
	Game  *domain.Game
	Step  string // strategy that produced Game
}

func (r Result) Found() bool { return r.Game != nil }

// Strategy is one step of the fallback chain. It returns (nil, nil) when it does not apply or finds nothing.
type Strategy struct {
	Name   string
	Lookup func(ctx context.Context, text string) (*domain.Game, error)
}

type Resolver struct {
	catalog Catalog
	aliases AliasLookup
	logger  *zap.Logger
	pause   *rate.Limiter
	chain   []Strategy
}

type Option func(*Resolver)

// WithAliases enables alias pre-resolution in ResolveAll.
func WithAliases(a AliasLookup) Option {
	return func(r *Resolver) { r.aliases = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDetailPause sets the minimum spacing between detail fetches during disambiguation.
func WithDetailPause(d time.Duration) Option {
	return func(r *Resolver) { r.pause = newPauseLimiter(d) }
}

func New(catalog Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog: catalog,
		logger:  zap.NewNop(),
		pause:   newPauseLimiter(time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.chain = r.buildChain()
	return r
}

func newPauseLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Strategies returns the fallback chain in the order Resolve tries it.
func (r *Resolver) Strategies() []Strategy {
	return append([]Strategy(nil), r.chain...)
}

// Resolve runs the fallback chain over raw and stops at the first strategy that finds a game.
// Catalog errors abort the chain and are returned to the caller.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Result, error) {
	res := Result{Query: raw}
	text, ok := Normalize(raw)
	if !ok {
		r.logger.Info("resolve_rejected", zap.String("name", raw))
		return res, nil
	}
	for _, s := range r.chain {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		g, err := s.Lookup(ctx, text)
		if err != nil {
			return res, err
		}
		if g != nil {
			res.Game, res.Step = g, s.Name
			r.logger.Debug("resolve_found",
				zap.String("name", raw),
				zap.String("step", s.Name),
				zap.String("game_id", g.ID),
			)
			return res, nil
		}
	}
	r.logger.Info("resolve_not_found", zap.String("name", raw))
	return res, nil
}
