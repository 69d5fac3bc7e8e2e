package format

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
	"github.com/park285/r2d8-reddit-bot/internal/msgcat"
	"github.com/park285/r2d8-reddit-bot/internal/resolver"
	"github.com/park285/r2d8-reddit-bot/internal/util"
)

const (
	GameURLPrefix   = "https://boardgamegeek.com/boardgame/"
	SearchURLPrefix = "https://boardgamegeek.com/geeksearch.php"

	// DescriptionHeading opens the description block of long replies.
	DescriptionHeading = "Description:\n\n"

	divider = "-----\n"
)

// Request is everything needed to render one reply.
type Request struct {
	Games    []*domain.Game
	NotFound []string
	Mode     Mode
	Columns  []string // tabular only
	Footer   string
}

// Formatter renders resolved games into reddit markdown.
type Formatter struct {
	bot       string
	catalog   *msgcat.Catalog
	longLimit int
	logger    *zap.Logger
}

func NewFormatter(bot string, catalog *msgcat.Catalog, longLimit int, logger *zap.Logger) *Formatter {
	if catalog == nil {
		catalog = msgcat.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if longLimit <= 0 {
		longLimit = 6
	}
	return &Formatter{bot: bot, catalog: catalog, longLimit: longLimit, logger: logger}
}

// Header is the fixed text every reply starts with.
func (f *Formatter) Header() string {
	return f.catalog.RenderOr(msgcat.KeyHeader, map[string]string{"Bot": f.bot}, "")
}

// DefaultFooter is the footer used when the operator supplies none.
func (f *Formatter) DefaultFooter() string {
	return f.catalog.RenderOr(msgcat.KeyFooter, map[string]string{"Bot": f.bot}, "")
}

// EffectiveMode downgrades long replies with too many games to short ones.
func (f *Formatter) EffectiveMode(mode Mode, games int) Mode {
	if mode == ModeLong && games > f.longLimit {
		return ModeShort
	}
	return mode
}

// Format renders req. An empty string means there is nothing to reply with.
func (f *Formatter) Format(req Request) string {
	if len(req.Games) == 0 && len(req.NotFound) == 0 {
		return ""
	}
	mode := f.EffectiveMode(req.Mode, len(req.Games))
	if mode != req.Mode {
		f.logger.Info("format_mode_downgraded",
			zap.String("requested", req.Mode.String()),
			zap.String("mode", mode.String()),
			zap.Int("games", len(req.Games)),
		)
	}

	var infos []string
	switch mode {
	case ModeShort:
		for _, g := range req.Games {
			infos = append(infos, f.shortInfo(g))
		}
	case ModeTabular:
		if len(req.Games) > 0 {
			infos = append(infos, f.table(req.Games, req.Columns))
		}
	default:
		for _, g := range req.Games {
			infos = append(infos, f.detailInfo(g, mode == ModeLong))
		}
	}

	if len(req.NotFound) > 0 {
		infos = append(infos, f.notFound(req.NotFound, mode == ModeShort))
	}

	sep := divider
	if mode == ModeShort || mode == ModeTabular {
		sep = "\n"
	}
	return f.Header() + strings.Join(infos, sep) + req.Footer
}

func (f *Formatter) shortInfo(g *domain.Game) string {
	head := fmt.Sprintf(" * %s (%s) by %s", util.BoldLink(g.Name, GameURL(g.ID)), yearText(g.Year), designersText(g))
	return util.JoinNonEmpty("; ", head, playersText(g), minutesText(g))
}

func (f *Formatter) detailInfo(g *domain.Game, long bool) string {
	var sb strings.Builder
	lead := "Details for"
	if long {
		lead = "Details about"
	}
	head := fmt.Sprintf("%s %s (%s) by %s", lead, util.BoldLink(g.Name, GameURL(g.ID)), yearText(g.Year), designersText(g))
	image := ""
	if g.ImageURL != "" {
		image = util.Link("image", g.ImageURL)
	}
	sb.WriteString(util.JoinNonEmpty("; ", head, playersText(g), minutesText(g), image))
	sb.WriteString("\n\n")

	if len(g.Mechanics) > 0 {
		sb.WriteString(fmt.Sprintf(" * Mechanics: %s\n", strings.Join(g.Mechanics, ", ")))
	}
	sb.WriteString(fmt.Sprintf(" * Average rating is %.2f; rated by %d %s. Weight: %.2f\n",
		g.RatingAverage, g.UsersRated, peopleNoun(g.UsersRated), g.RatingWeight))
	if ranks := ranksText(g); ranks != "" {
		sb.WriteString(fmt.Sprintf(" * %s\n", ranks))
	}
	sb.WriteString("\n")

	if long && strings.TrimSpace(g.Description) != "" {
		sb.WriteString(DescriptionHeading + strings.TrimSpace(g.Description) + "\n\n")
	}
	return sb.String()
}

func (f *Formatter) table(games []*domain.Game, keys []string) string {
	var cols []column
	for _, k := range keys {
		c, ok := lookupColumn(k)
		if !ok {
			f.logger.Info("format_unknown_column", zap.String("column", k))
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		for _, k := range DefaultColumns {
			c, _ := lookupColumn(k)
			cols = append(cols, c)
		}
	}

	var sb strings.Builder
	sb.WriteString("Game")
	for _, c := range cols {
		sb.WriteString(" | " + c.title)
	}
	sb.WriteString("\n:--")
	for range cols {
		sb.WriteString("|--:")
	}
	sb.WriteString("\n")
	for _, g := range games {
		sb.WriteString(util.Link(util.TableCell(g.Name), GameURL(g.ID)))
		for _, c := range cols {
			sb.WriteString(" | " + util.TableCell(c.value(g)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *Formatter) notFound(names []string, short bool) string {
	links := make([]string, 0, len(names))
	for _, n := range names {
		links = append(links, util.Link(n, SearchURL(n)))
	}
	data := map[string]string{"Items": strings.Join(links, ", ")}
	if short {
		return f.catalog.RenderOr(msgcat.KeyNotFoundShort, data, "\n\n-----\nBolded items not found at BGG: "+data["Items"]+"\n\n")
	}
	return f.catalog.RenderOr(msgcat.KeyNotFoundStandard, data, "Bolded items not found at BGG: "+data["Items"]+"\n\n")
}

// StripDescriptions removes the description blocks of a rendered long reply.
// A block runs from its heading to the next divider, or to the end of the reply.
func StripDescriptions(reply string) string {
	for {
		i := strings.Index(reply, DescriptionHeading)
		if i < 0 {
			return reply
		}
		rest := reply[i+len(DescriptionHeading):]
		j := strings.Index(rest, divider)
		if j < 0 {
			return reply[:i]
		}
		reply = reply[:i] + rest[j:]
	}
}

// GameURL links to a catalog entry.
func GameURL(id string) string {
	return GameURLPrefix + id
}

// SearchURL links to a catalog search for name.
func SearchURL(name string) string {
	q := url.Values{}
	q.Set("action", "search")
	q.Set("objecttype", "boardgame")
	q.Set("q", name)
	q.Set("B1", "Go")
	return SearchURLPrefix + "?" + q.Encode()
}

func yearText(y int) string {
	if y == 0 {
		return "year unknown"
	}
	return fmt.Sprintf("%d", y)
}

func designersText(g *domain.Game) string {
	if len(g.Designers) == 0 {
		return "Unknown"
	}
	return strings.Join(g.Designers, ", ")
}

func playersText(g *domain.Game) string {
	switch {
	case g.MinPlayers == 0 && g.MaxPlayers == 0:
		return ""
	case g.MinPlayers == g.MaxPlayers || g.MaxPlayers == 0:
		return fmt.Sprintf("%d players", g.MinPlayers)
	case g.MinPlayers == 0:
		return fmt.Sprintf("up to %d players", g.MaxPlayers)
	default:
		return fmt.Sprintf("%d - %d players", g.MinPlayers, g.MaxPlayers)
	}
}

func minutesText(g *domain.Game) string {
	if g.PlayingTimeMinutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%d minutes", g.PlayingTimeMinutes)
}

func peopleNoun(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}

func ranksText(g *domain.Game) string {
	parts := make([]string, 0, len(g.Ranks))
	for _, r := range g.Ranks {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Label, r.Value))
	}
	return strings.Join(parts, ", ")
}

func rankText(g *domain.Game) string {
	n := resolver.OverallRank(g)
	if n == math.MaxInt {
		return "Not Ranked"
	}
	return fmt.Sprintf("%d", n)
}
