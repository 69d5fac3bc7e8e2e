package resolver

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// SortKey orders the games of a batch.
type SortKey int

const (
	SortNone SortKey = iota // discovery order
	SortName
	SortYear
	SortRank
)

func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return SortNone, true
	case "name":
		return SortName, true
	case "year":
		return SortYear, true
	case "rank":
		return SortRank, true
	default:
		return SortNone, false
	}
}

// Batch is the outcome of resolving a set of names.
type Batch struct {
	Games    []*domain.Game
	NotFound []string
}

// Empty reports whether there is nothing to reply with.
func (b Batch) Empty() bool { return len(b.Games) == 0 && len(b.NotFound) == 0 }

// ResolveAll resolves every distinct name. Aliases replace names before the
// chain runs; catalog failures only affect the name that caused them.
func (r *Resolver) ResolveAll(ctx context.Context, names []string, sortBy SortKey) Batch {
	var out Batch
	seenNames := make(map[string]struct{}, len(names))
	seenGames := make(map[string]struct{}, len(names))

	for _, raw := range names {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		query := r.canonical(ctx, raw)
		key := foldKey(query)
		if _, dup := seenNames[key]; dup {
			continue
		}
		seenNames[key] = struct{}{}

		res, err := r.Resolve(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Warn("resolve_interrupted", zap.String("name", raw), zap.Error(err))
			} else {
				r.logger.Error("catalog_error", zap.String("name", raw), zap.Error(err))
			}
			out.NotFound = append(out.NotFound, raw)
			continue
		}
		if !res.Found() {
			out.NotFound = append(out.NotFound, raw)
			continue
		}
		if _, dup := seenGames[res.Game.ID]; dup {
			continue
		}
		seenGames[res.Game.ID] = struct{}{}
		out.Games = append(out.Games, res.Game)
	}

	SortGames(out.Games, sortBy)
	return out
}

func (r *Resolver) canonical(ctx context.Context, raw string) string {
	if r.aliases == nil {
		return raw
	}
	name, ok, err := r.aliases.CanonicalName(ctx, raw)
	if err != nil {
		r.logger.Warn("alias_lookup_failed", zap.String("name", raw), zap.Error(err))
		return raw
	}
	if !ok {
		return raw
	}
	r.logger.Debug("alias_applied", zap.String("alias", raw), zap.String("name", name))
	return name
}

// SortGames orders games in place. SortNone leaves discovery order untouched.
func SortGames(games []*domain.Game, by SortKey) {
	switch by {
	case SortName:
		sort.SliceStable(games, func(i, j int) bool {
			return strings.ToLower(games[i].Name) < strings.ToLower(games[j].Name)
		})
	case SortYear:
		sort.SliceStable(games, func(i, j int) bool {
			return yearKey(games[i]) < yearKey(games[j])
		})
	case SortRank:
		sort.SliceStable(games, func(i, j int) bool {
			return OverallRank(games[i]) < OverallRank(games[j])
		})
	}
}

func yearKey(g *domain.Game) int {
	if g.Year == 0 {
		return math.MaxInt
	}
	return g.Year
}

// OverallRank returns the first numeric rank of g, or math.MaxInt when unranked.
func OverallRank(g *domain.Game) int {
	for _, rk := range g.Ranks {
		if n, err := strconv.Atoi(strings.TrimSpace(rk.Value)); err == nil {
			return n
		}
	}
	return math.MaxInt
}
