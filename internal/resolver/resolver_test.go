package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

type stubCatalog struct {
	byName    map[string]*domain.Game // lowercase name
	byID      map[string]*domain.Game
	exactHits map[string][]domain.SearchHit
	broadHits map[string][]domain.SearchHit
	failName  map[string]bool
	calls     []string
	idTimes   []time.Time
}

func newStub(games ...*domain.Game) *stubCatalog {
	s := &stubCatalog{
		byName:    map[string]*domain.Game{},
		byID:      map[string]*domain.Game{},
		exactHits: map[string][]domain.SearchHit{},
		broadHits: map[string][]domain.SearchHit{},
		failName:  map[string]bool{},
	}
	for _, g := range games {
		s.byName[strings.ToLower(g.Name)] = g
		s.byID[g.ID] = g
	}
	return s
}

func (s *stubCatalog) GameByName(ctx context.Context, name string) (*domain.Game, error) {
	s.calls = append(s.calls, "name:"+name)
	if s.failName[strings.ToLower(name)] {
		return nil, errors.New("catalog unavailable")
	}
	return s.byName[strings.ToLower(name)], nil
}

func (s *stubCatalog) GameByID(ctx context.Context, id string) (*domain.Game, error) {
	s.calls = append(s.calls, "id:"+id)
	s.idTimes = append(s.idTimes, time.Now())
	return s.byID[id], nil
}

func (s *stubCatalog) Search(ctx context.Context, name string, exact bool) ([]domain.SearchHit, error) {
	if exact {
		s.calls = append(s.calls, "search_exact:"+name)
		return s.exactHits[name], nil
	}
	s.calls = append(s.calls, "search:"+name)
	return s.broadHits[name], nil
}

func (s *stubCatalog) searched() bool {
	for _, c := range s.calls {
		if strings.HasPrefix(c, "search") {
			return true
		}
	}
	return false
}

type aliasMap map[string]string

func (a aliasMap) CanonicalName(ctx context.Context, alias string) (string, bool, error) {
	name, ok := a[strings.ToLower(alias)]
	return name, ok, nil
}

func newTestResolver(c Catalog, opts ...Option) *Resolver {
	return New(c, append([]Option{WithDetailPause(0)}, opts...)...)
}

func TestChainOrder(t *testing.T) {
	r := newTestResolver(newStub())
	var names []string
	for _, s := range r.Strategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StepCatalogID, StepExactName, StepBracketed, StepStripThe,
		StepPrependThe, StepSubstitutions, StepSearch,
	}, names)
}

func TestResolveReachesPrependTheStep(t *testing.T) {
	stub := newStub(&domain.Game{ID: "13", Name: "The Settlers of Catan"})
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "settlers of catan")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, StepPrependThe, res.Step)
	assert.Equal(t, []string{"name:settlers of catan", "name:The settlers of catan"}, stub.calls)
}

func TestResolveByCatalogID(t *testing.T) {
	stub := newStub(&domain.Game{ID: "822", Name: "Carcassonne"})
	r := newTestResolver(stub)

	for _, in := range []string{"822", "#822", "  #822 "} {
		stub.calls = nil
		res, err := r.Resolve(context.Background(), in)
		require.NoError(t, err)
		require.True(t, res.Found(), in)
		assert.Equal(t, StepCatalogID, res.Step)
		assert.Equal(t, []string{"id:822"}, stub.calls)
	}
}

func TestResolveBracketedText(t *testing.T) {
	stub := newStub(&domain.Game{ID: "1", Name: "Brass: Birmingham"})
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "[Brass: Birmingham](https://boardgamegeek.com/boardgame/224517)")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, StepBracketed, res.Step)
}

func TestResolveStripsArticles(t *testing.T) {
	stub := newStub(&domain.Game{ID: "2", Name: "Castles of Burgundy"})
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "The Castles of the Burgundy")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, StepStripThe, res.Step)
	assert.Contains(t, stub.calls, "name:castles of burgundy")
}

func TestResolveSubstitutions(t *testing.T) {
	tests := []struct {
		in      string
		catalog string
	}{
		{in: "Pandemic: Legacy!", catalog: "pandemic legacy"},
		{in: "Tigris and Euphrates", catalog: "Tigris & Euphrates"},
		{in: "Lewis & Clark", catalog: "Lewis and Clark"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			stub := newStub(&domain.Game{ID: "7", Name: tt.catalog})
			r := newTestResolver(stub)
			res, err := r.Resolve(context.Background(), tt.in)
			require.NoError(t, err)
			require.True(t, res.Found())
			assert.Equal(t, StepSubstitutions, res.Step)
			assert.False(t, stub.searched())
		})
	}
}

func TestResolveRejectsEmptyAndLongNames(t *testing.T) {
	stub := newStub()
	r := newTestResolver(stub)

	for _, in := range []string{"   ", strings.Repeat("x", MaxNameLength+1)} {
		res, err := r.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, res.Found())
	}
	assert.Empty(t, stub.calls)
}

func TestSearchSingleExactHit(t *testing.T) {
	stub := newStub(&domain.Game{ID: "30549", Name: "Pandemic"})
	stub.byName = map[string]*domain.Game{}
	stub.exactHits["pandemic"] = []domain.SearchHit{{ID: "30549", Name: "Pandemic"}}
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "Pandemic")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, StepSearch, res.Step)
	assert.NotContains(t, stub.calls, "search:pandemic")
}

func TestDisambiguationPicksMostOwned(t *testing.T) {
	stub := newStub()
	stub.byID = map[string]*domain.Game{
		"1": {ID: "1", Name: "Dominion A", OwnedCount: 10},
		"2": {ID: "2", Name: "Dominion B", OwnedCount: 50},
		"3": {ID: "3", Name: "Dominion C", OwnedCount: 30},
	}
	stub.broadHits["dominion"] = []domain.SearchHit{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "Dominion")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "2", res.Game.ID)
	assert.Equal(t, StepSearch, res.Step)
}

func TestDisambiguationSkipsExpansionsAndBreaksTiesByID(t *testing.T) {
	stub := newStub()
	stub.byID = map[string]*domain.Game{
		"40": {ID: "40", Name: "Root", OwnedCount: 70},
		"9":  {ID: "9", Name: "Root", OwnedCount: 70},
		"5":  {ID: "5", Name: "Root: The Riverfolk", OwnedCount: 900, IsExpansion: true},
	}
	stub.broadHits["root"] = []domain.SearchHit{{ID: "40"}, {ID: "5"}, {ID: "9"}}
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "root")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "9", res.Game.ID)
}

func TestDisambiguationPacesDetailFetches(t *testing.T) {
	const pause = 20 * time.Millisecond
	stub := newStub()
	stub.byID = map[string]*domain.Game{
		"1": {ID: "1", Name: "Dominion A", OwnedCount: 10},
		"2": {ID: "2", Name: "Dominion B", OwnedCount: 50},
		"3": {ID: "3", Name: "Dominion C", OwnedCount: 30},
	}
	stub.broadHits["dominion"] = []domain.SearchHit{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	r := newTestResolver(stub, WithDetailPause(pause))

	res, err := r.Resolve(context.Background(), "dominion")
	require.NoError(t, err)
	require.True(t, res.Found())
	require.Len(t, stub.idTimes, 3)
	for i := 1; i < len(stub.idTimes); i++ {
		gap := stub.idTimes[i].Sub(stub.idTimes[i-1])
		// small slack for timer wakeup jitter between the two recordings
		assert.GreaterOrEqual(t, gap, pause-2*time.Millisecond, "gap %d", i)
	}
}

func TestDefaultDetailPauseIsOneSecond(t *testing.T) {
	r := New(newStub())
	assert.Equal(t, rate.Every(time.Second), r.pause.Limit())
	assert.Equal(t, 1, r.pause.Burst())
}

func TestDisambiguationPauseHonorsCancellation(t *testing.T) {
	stub := newStub()
	stub.byID = map[string]*domain.Game{
		"1": {ID: "1", Name: "A", OwnedCount: 1},
		"2": {ID: "2", Name: "B", OwnedCount: 2},
	}
	stub.broadHits["ab"] = []domain.SearchHit{{ID: "1"}, {ID: "2"}}
	r := newTestResolver(stub, WithDetailPause(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, "ab")
	require.Error(t, err)
	assert.Len(t, stub.idTimes, 1)
}

func TestDisambiguationOnlyExpansions(t *testing.T) {
	stub := newStub()
	stub.byID = map[string]*domain.Game{
		"5": {ID: "5", Name: "X: Promo", IsExpansion: true},
		"6": {ID: "6", Name: "X: More", IsExpansion: true},
	}
	stub.broadHits["x"] = []domain.SearchHit{{ID: "5"}, {ID: "6"}}
	r := newTestResolver(stub)

	res, err := r.Resolve(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.Found())
}

func TestResolveAllAliasPrecedence(t *testing.T) {
	stub := newStub(&domain.Game{ID: "68448", Name: "7 Wonders"})
	r := newTestResolver(stub, WithAliases(aliasMap{"seven wonders": "7 Wonders"}))

	batch := r.ResolveAll(context.Background(), []string{"Seven Wonders"}, SortNone)
	require.Len(t, batch.Games, 1)
	assert.Empty(t, batch.NotFound)
	for _, c := range stub.calls {
		assert.NotContains(t, strings.ToLower(c), "seven")
	}
}

func TestResolveAllDeduplicates(t *testing.T) {
	stub := newStub(&domain.Game{ID: "188", Name: "Go"})
	r := newTestResolver(stub)

	batch := r.ResolveAll(context.Background(), []string{"Go", "go", " GO "}, SortNone)
	require.Len(t, batch.Games, 1)
	assert.Empty(t, batch.NotFound)
	assert.Equal(t, []string{"name:go"}, stub.calls)
}

func TestResolveAllSameGameDifferentNames(t *testing.T) {
	g := &domain.Game{ID: "13", Name: "Catan"}
	stub := newStub(g)
	stub.byName["the settlers of catan"] = g
	r := newTestResolver(stub)

	batch := r.ResolveAll(context.Background(), []string{"Catan", "The Settlers of Catan"}, SortNone)
	assert.Len(t, batch.Games, 1)
	assert.Empty(t, batch.NotFound)
}

func TestResolveAllIsolatesCatalogErrors(t *testing.T) {
	stub := newStub(&domain.Game{ID: "1", Name: "Azul"})
	stub.failName["broken"] = true
	r := newTestResolver(stub)

	batch := r.ResolveAll(context.Background(), []string{"Broken", "Azul", "Unknown Thing"}, SortNone)
	require.Len(t, batch.Games, 1)
	assert.Equal(t, "Azul", batch.Games[0].Name)
	assert.Equal(t, []string{"Broken", "Unknown Thing"}, batch.NotFound)
}

func TestResolveAllSorting(t *testing.T) {
	stub := newStub(
		&domain.Game{ID: "1", Name: "Zendo", Year: 2017, Ranks: []domain.Rank{{Label: "Board Game Rank", Value: "900"}}},
		&domain.Game{ID: "2", Name: "agricola", Year: 2007, Ranks: []domain.Rank{{Label: "Board Game Rank", Value: "Not Ranked"}}},
		&domain.Game{ID: "3", Name: "Mystery", Ranks: []domain.Rank{{Label: "Board Game Rank", Value: "40"}}},
	)
	r := newTestResolver(stub)
	names := []string{"Zendo", "Agricola", "Mystery"}

	ids := func(b Batch) []string {
		var out []string
		for _, g := range b.Games {
			out = append(out, g.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids(r.ResolveAll(context.Background(), names, SortNone)))
	assert.Equal(t, []string{"2", "3", "1"}, ids(r.ResolveAll(context.Background(), names, SortName)))
	assert.Equal(t, []string{"2", "1", "3"}, ids(r.ResolveAll(context.Background(), names, SortYear)))
	assert.Equal(t, []string{"3", "1", "2"}, ids(r.ResolveAll(context.Background(), names, SortRank)))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("Rank")
	assert.True(t, ok)
	assert.Equal(t, SortRank, k)
	_, ok = ParseSortKey("popularity")
	assert.False(t, ok)
}
