package format

import (
	"fmt"
	"strings"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// Mode is a display mode for game info replies.
type Mode int

const (
	ModeStandard Mode = iota
	ModeShort
	ModeLong
	ModeTabular
)

func (m Mode) String() string {
	switch m {
	case ModeShort:
		return "short"
	case ModeLong:
		return "long"
	case ModeTabular:
		return "tabular"
	default:
		return "standard"
	}
}

// ParseMode maps a subcommand token to a Mode. ok is false for unknown tokens.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return ModeShort, true
	case "standard", "normal", "std":
		return ModeStandard, true
	case "long":
		return ModeLong, true
	case "tabular", "table":
		return ModeTabular, true
	default:
		return ModeStandard, false
	}
}

type column struct {
	title string
	value func(g *domain.Game) string
}

// columns is the allow-list of tabular column keys.
var columns = map[string]column{
	"year":   {title: "Year", value: func(g *domain.Game) string { return yearText(g.Year) }},
	"rank":   {title: "Rank", value: rankText},
	"rating": {title: "Rating", value: func(g *domain.Game) string { return fmt.Sprintf("%.2f", g.RatingAverage) }},
	"bayes":  {title: "Bayes Score", value: func(g *domain.Game) string { return fmt.Sprintf("%.3f", g.BayesAverage) }},
	"median": {title: "Median Rating", value: func(g *domain.Game) string { return fmt.Sprintf("%.2f", g.RatingMedian) }},
	"stddev": {title: "Rating Std Dev", value: func(g *domain.Game) string { return fmt.Sprintf("%.3f", g.RatingStdDev) }},
	"raters": {title: "Raters", value: func(g *domain.Game) string { return fmt.Sprintf("%d", g.UsersRated) }},
	"owners": {title: "Owners", value: func(g *domain.Game) string { return fmt.Sprintf("%d", g.OwnedCount) }},
	"id":     {title: "BGG ID", value: func(g *domain.Game) string { return g.ID }},
}

var columnAliases = map[string]string{
	"bayes-score": "bayes",
	"bayesscore":  "bayes",
	"geekrating":  "bayes",
	"avg":         "rating",
	"average":     "rating",
	"usersrated":  "raters",
	"owned":       "owners",
}

// DefaultColumns are used when a tabular request names no valid column.
var DefaultColumns = []string{"year", "rank", "rating"}

// IsColumn reports whether key names a tabular column.
func IsColumn(key string) bool {
	_, ok := lookupColumn(key)
	return ok
}

func lookupColumn(key string) (column, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := columnAliases[key]; ok {
		key = alias
	}
	c, ok := columns[key]
	return c, ok
}
