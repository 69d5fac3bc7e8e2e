package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindsEveryInvocationInOrder(t *testing.T) {
	l := NewLexer("r2d8")
	body := "Hey /u/R2D8 GetInfo long sort year\nthanks **Catan**\n\nalso u/r2d8 xyzzy and u/r2d8 dance"

	invs := l.Parse(body)
	require.Len(t, invs, 3)

	assert.Equal(t, KindGetInfo, invs[0].Kind)
	assert.Equal(t, "getinfo", invs[0].Keyword)
	assert.Equal(t, []string{"long", "sort", "year"}, invs[0].Tokens)

	assert.Equal(t, KindXyzzy, invs[1].Kind)
	assert.Equal(t, []string{"and"}, invs[1].Tokens)

	assert.Equal(t, KindUnknown, invs[2].Kind)
	assert.Equal(t, "dance", invs[2].Keyword)
}

func TestParseIgnoresOtherAccounts(t *testing.T) {
	l := NewLexer("r2d8")
	assert.Empty(t, l.Parse("u/someoneelse getinfo **Catan**"))
	assert.Empty(t, l.Parse("r2d8 getinfo **Catan**"))
}

func TestParseKindSynonyms(t *testing.T) {
	assert.Equal(t, KindGetParentInfo, ParseKind("getinfoparent"))
	assert.Equal(t, KindGetParentInfo, ParseKind("GETPARENTINFO"))
	assert.Equal(t, KindTryAgain, ParseKind("shame"))
	assert.Equal(t, KindTryAgain, ParseKind("tryagain"))
	assert.Equal(t, KindUnknown, ParseKind("getinfos"))
}

func TestBoldedAllowList(t *testing.T) {
	body := "**Catan** and **Tigris & Euphrates** plus **Café International**"
	assert.Equal(t, []string{"Catan", "Tigris & Euphrates", "Café International"}, Bolded(body))
	assert.Empty(t, Bolded("**<script>**"))
	assert.Empty(t, Bolded("**[x](y)**"))
	assert.Empty(t, Bolded("nothing here"))
	assert.Empty(t, Bolded("**   **"))
}

func TestPairs(t *testing.T) {
	got := Pairs("u/r2d8 repair **Catn**=**Catan** and **Agricola** = **Agricola (Revised Edition)**")
	assert.Equal(t, []Pair{
		{Left: "Catn", Right: "Catan"},
		{Left: "Agricola", Right: "Agricola (Revised Edition)"},
	}, got)
}

func TestCatalogIDs(t *testing.T) {
	body := "see https://boardgamegeek.com/boardgame/13/catan and https://www.boardgamegeek.com/boardgameexpansion/325/seafarers " +
		"and boardgamegeek.com/thing/13 again, not https://boardgamegeek.com/user/13"
	assert.Equal(t, []string{"13", "325"}, CatalogIDs(body))
}

func TestReplyNames(t *testing.T) {
	body := " * [**Catan**](https://boardgamegeek.com/boardgame/13) (1995) by Klaus Teuber; [image](https://img/13.png)\n" +
		"[Azul](https://boardgamegeek.com/boardgame/230802) | 2017\n" +
		"**Brass: Birmingham**(https://boardgamegeek.com/geeksearch.php?q=Brss)\n" +
		"Bolded items not found at BGG: [Catn](https://boardgamegeek.com/geeksearch.php?q=Catn), " +
		"[Old One](http://boardgamegeek.com/geeksearch.php?action=search&q=Old+One)"
	assert.Equal(t, []string{"#13", "#230802", "Brass: Birmingham", "Catn", "Old One"}, ReplyNames(body))
	assert.Empty(t, ReplyNames("*^(r2d8 bleeps)*\n\nfooter [^Submit](/r/r2d8)"))
}
