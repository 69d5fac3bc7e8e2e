package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// Strategy names, in chain order.
const (
	StepCatalogID     = "catalog_id"
	StepExactName     = "exact_name"
	StepBracketed     = "bracketed"
	StepStripThe      = "strip_the"
	StepPrependThe    = "prepend_the"
	StepSubstitutions = "substitutions"
	StepSearch        = "search"
)

func (r *Resolver) buildChain() []Strategy {
	return []Strategy{
		{Name: StepCatalogID, Lookup: r.byCatalogID},
		{Name: StepExactName, Lookup: r.byName},
		{Name: StepBracketed, Lookup: r.byBracketed},
		{Name: StepStripThe, Lookup: r.byStrippedArticles},
		{Name: StepPrependThe, Lookup: r.byPrependedArticle},
		{Name: StepSubstitutions, Lookup: r.bySubstitutions},
		{Name: StepSearch, Lookup: r.bySearch},
	}
}

func (r *Resolver) byCatalogID(ctx context.Context, text string) (*domain.Game, error) {
	id, ok := catalogID(text)
	if !ok {
		return nil, nil
	}
	return r.catalog.GameByID(ctx, id)
}

func (r *Resolver) byName(ctx context.Context, text string) (*domain.Game, error) {
	return r.catalog.GameByName(ctx, text)
}

func (r *Resolver) byBracketed(ctx context.Context, text string) (*domain.Game, error) {
	inner, ok := bracketText(text)
	if !ok || inner == text {
		return nil, nil
	}
	return r.catalog.GameByName(ctx, inner)
}

func (r *Resolver) byStrippedArticles(ctx context.Context, text string) (*domain.Game, error) {
	stripped := stripArticles(text)
	if stripped == text || stripped == "" {
		return nil, nil
	}
	return r.catalog.GameByName(ctx, stripped)
}

func (r *Resolver) byPrependedArticle(ctx context.Context, text string) (*domain.Game, error) {
	if strings.HasPrefix(text, "the ") {
		return nil, nil
	}
	return r.catalog.GameByName(ctx, "The "+text)
}

func (r *Resolver) bySubstitutions(ctx context.Context, text string) (*domain.Game, error) {
	for _, sub := range substitutions {
		changed := sub.apply(text)
		if changed == text || changed == "" {
			continue
		}
		g, err := r.catalog.GameByName(ctx, changed)
		if err != nil {
			return nil, err
		}
		if g != nil {
			r.logger.Debug("resolve_substitution", zap.String("rule", sub.name), zap.String("text", changed))
			return g, nil
		}
	}
	return nil, nil
}

// bySearch falls back to the catalog search API: an exact search first, then a
// broad one disambiguated by ownership.
func (r *Resolver) bySearch(ctx context.Context, text string) (*domain.Game, error) {
	hits, err := r.catalog.Search(ctx, text, true)
	if err != nil {
		return nil, err
	}
	if len(hits) == 1 {
		return r.catalog.GameByID(ctx, hits[0].ID)
	}

	hits, err = r.catalog.Search(ctx, text, false)
	if err != nil {
		return nil, err
	}
	switch len(hits) {
	case 0:
		return nil, nil
	case 1:
		return r.catalog.GameByID(ctx, hits[0].ID)
	}
	return r.disambiguate(ctx, text, hits)
}

// disambiguate fetches every hit, drops expansions and picks the most owned game.
// Ties go to the lowest catalog id.
func (r *Resolver) disambiguate(ctx context.Context, text string, hits []domain.SearchHit) (*domain.Game, error) {
	r.logger.Info("resolve_disambiguate", zap.String("name", text), zap.Int("candidates", len(hits)))
	var best *domain.Game
	for _, h := range hits {
		if err := r.pause.Wait(ctx); err != nil {
			return nil, err
		}
		g, err := r.catalog.GameByID(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if g == nil || g.IsExpansion {
			continue
		}
		if best == nil || betterGuess(g, best) {
			best = g
		}
	}
	return best, nil
}

func betterGuess(g, best *domain.Game) bool {
	if g.OwnedCount != best.OwnedCount {
		return g.OwnedCount > best.OwnedCount
	}
	gi, bi := g.NumericID(), best.NumericID()
	if gi >= 0 && bi >= 0 {
		return gi < bi
	}
	return g.ID < best.ID
}
