package bgg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catanThing = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
  <item type="boardgame" id="13">
    <image>https://cf.geekdo-images.com/catan.jpg</image>
    <name type="primary" sortindex="1" value="CATAN"/>
    <name type="alternate" sortindex="1" value="The Settlers of Catan"/>
    <description>Players try to be the dominant force on the island of Catan.&amp;#10;&amp;#10;Trade &amp;quot;wisely&amp;quot;.</description>
    <yearpublished value="1995"/>
    <minplayers value="3"/>
    <maxplayers value="4"/>
    <playingtime value="120"/>
    <link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
    <link type="boardgamemechanic" id="2008" value="Trading"/>
    <link type="boardgamedesigner" id="11" value="Klaus Teuber"/>
    <statistics page="1">
      <ratings>
        <usersrated value="120000"/>
        <average value="7.1"/>
        <bayesaverage value="6.9"/>
        <ranks>
          <rank type="subtype" id="1" name="boardgame" friendlyname="Board Game Rank" value="500" bayesaverage="6.9"/>
          <rank type="family" id="5497" name="strategygames" friendlyname="Strategy Game Rank" value="Not Ranked" bayesaverage="Not Ranked"/>
        </ranks>
        <stddev value="1.4"/>
        <median value="0"/>
        <owned value="230000"/>
        <averageweight value="2.3"/>
      </ratings>
    </statistics>
  </item>
</items>`

const catanSearch = `<?xml version="1.0" encoding="utf-8"?>
<items total="2">
  <item type="boardgame" id="99"><name type="alternate" value="Die Siedler von Catan"/><yearpublished value="2003"/></item>
  <item type="boardgame" id="13"><name type="primary" value="CATAN"/><yearpublished value="1995"/></item>
</items>`

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/search":
			if r.URL.Query().Get("query") == "nothing" {
				_, _ = w.Write([]byte(`<items total="0"></items>`))
				return
			}
			_, _ = w.Write([]byte(catanSearch))
		case "/thing":
			if r.URL.Query().Get("id") != "13" {
				_, _ = w.Write([]byte(`<items></items>`))
				return
			}
			_, _ = w.Write([]byte(catanThing))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGameByIDDecodesEverything(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithRateLimit(0))

	g, err := c.GameByID(context.Background(), "13")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "CATAN", g.Name)
	assert.Equal(t, 1995, g.Year)
	assert.Equal(t, 3, g.MinPlayers)
	assert.Equal(t, 4, g.MaxPlayers)
	assert.Equal(t, 120, g.PlayingTimeMinutes)
	assert.Equal(t, []string{"Klaus Teuber"}, g.Designers)
	assert.Equal(t, []string{"Dice Rolling", "Trading"}, g.Mechanics)
	assert.InDelta(t, 7.1, g.RatingAverage, 0.001)
	assert.InDelta(t, 2.3, g.RatingWeight, 0.001)
	assert.Equal(t, 120000, g.UsersRated)
	assert.Equal(t, 230000, g.OwnedCount)
	require.Len(t, g.Ranks, 2)
	assert.Equal(t, "Board Game Rank", g.Ranks[0].Label)
	assert.Equal(t, "Not Ranked", g.Ranks[1].Value)
	assert.False(t, g.IsExpansion)
	assert.Equal(t, "Players try to be the dominant force on the island of Catan.\n\nTrade \"wisely\".", g.Description)
}

func TestGameByIDMissing(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithRateLimit(0))

	g, err := c.GameByID(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGameByNamePrefersPrimaryName(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithRateLimit(0))

	g, err := c.GameByName(context.Background(), "catan")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "13", g.ID)

	g, err = c.GameByName(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestStatusErrorsWrapCatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, WithRateLimit(0), WithRetry(2))

	_, err := c.Search(context.Background(), "Catan", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalog))
}

func TestRedisCacheServesRepeatLookups(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(rdb, time.Hour)
	defer cache.Close()

	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(srv.URL, WithRateLimit(0), WithCache(cache))

	ctx := context.Background()
	_, err = c.GameByID(ctx, "13")
	require.NoError(t, err)
	_, err = c.GameByID(ctx, "13")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	mr.FastForward(2 * time.Hour)
	_, err = c.GameByID(ctx, "13")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCleanDescriptionConvertsMarkup(t *testing.T) {
	out := cleanDescription("&lt;p&gt;A &lt;b&gt;bold&lt;/b&gt; game&lt;/p&gt;")
	assert.Equal(t, "A **bold** game", out)
}
