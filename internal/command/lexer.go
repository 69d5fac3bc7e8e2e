// Package command parses bot invocations out of comment bodies and runs them.
package command

import (
	"regexp"
	"strings"
)

// Kind is a recognized command keyword.
type Kind int

const (
	KindUnknown Kind = iota
	KindGetInfo
	KindGetParentInfo
	KindRepair
	KindAlias
	KindGetAliases
	KindExpandURLs
	KindTryAgain
	KindXyzzy
)

var keywords = map[string]Kind{
	"getinfo":       KindGetInfo,
	"getparentinfo": KindGetParentInfo,
	"getinfoparent": KindGetParentInfo,
	"repair":        KindRepair,
	"alias":         KindAlias,
	"getaliases":    KindGetAliases,
	"expandurls":    KindExpandURLs,
	"tryagain":      KindTryAgain,
	"shame":         KindTryAgain,
	"xyzzy":         KindXyzzy,
}

// ParseKind maps a keyword to its Kind, ignoring case.
func ParseKind(keyword string) Kind {
	return keywords[strings.ToLower(strings.TrimSpace(keyword))]
}

func (k Kind) String() string {
	switch k {
	case KindGetInfo:
		return "getinfo"
	case KindGetParentInfo:
		return "getparentinfo"
	case KindRepair:
		return "repair"
	case KindAlias:
		return "alias"
	case KindGetAliases:
		return "getaliases"
	case KindExpandURLs:
		return "expandurls"
	case KindTryAgain:
		return "tryagain"
	case KindXyzzy:
		return "xyzzy"
	default:
		return "unknown"
	}
}

// Invocation is one "u/<bot> <keyword> [tokens...]" occurrence.
type Invocation struct {
	Kind    Kind
	Keyword string   // as typed, lowercased
	Tokens  []string // subcommand tokens, lowercased
}

// Lexer finds invocations of one bot account.
type Lexer struct {
	re *regexp.Regexp
}

func NewLexer(botName string) *Lexer {
	return &Lexer{re: regexp.MustCompile(`(?i)/?u/` + regexp.QuoteMeta(botName) + `\s+(\w+)`)}
}

var tokenRe = regexp.MustCompile(`^[ \t]+([\w-]+)`)

// Parse returns every invocation in body, in order of appearance. Tokens run
// to the end of the line or the next mention, whichever comes first.
func (l *Lexer) Parse(body string) []Invocation {
	locs := l.re.FindAllStringSubmatchIndex(body, -1)
	out := make([]Invocation, 0, len(locs))
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		kw := strings.ToLower(body[loc[2]:loc[3]])
		out = append(out, Invocation{
			Kind:    ParseKind(kw),
			Keyword: kw,
			Tokens:  leadingTokens(body[loc[1]:end]),
		})
	}
	return out
}

func leadingTokens(tail string) []string {
	var toks []string
	for {
		m := tokenRe.FindStringSubmatchIndex(tail)
		if m == nil {
			return toks
		}
		rest := tail[m[1]:]
		if strings.HasPrefix(rest, "/") {
			return toks
		}
		toks = append(toks, strings.ToLower(tail[m[2]:m[3]]))
		tail = rest
	}
}

var (
	boldRe   = regexp.MustCompile(`\*\*([\p{L}\p{N}_\s\-'’:&.,!?()#/+]+)\*\*`)
	pairRe   = regexp.MustCompile(`\*\*([^*]+)\*\*\s*=\s*\*\*([^*]+)\*\*`)
	urlIDRe  = regexp.MustCompile(`(?i)boardgamegeek\.com/(?:boardgame|boardgameexpansion|thing)/(\d+)`)
	// a game link, a search link or a bold span, whichever comes first
	replyItemRe = regexp.MustCompile(`\[[^\[\]]*\]\(https?://(?:www\.)?boardgamegeek\.com/(?:boardgame|boardgameexpansion)/(\d+)[^)]*\)` +
		`|\[([^\[\]]+)\]\(https?://(?:www\.)?boardgamegeek\.com/geeksearch\.php[^)]*\)` +
		`|\*\*([\p{L}\p{N}_\s\-'’:&.,!?()#/+]+)\*\*`)
)

// Bolded returns the trimmed text of every bold span whose characters are allow-listed.
func Bolded(body string) []string {
	var out []string
	for _, m := range boldRe.FindAllStringSubmatch(body, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Pair is a "**left**=**right**" occurrence.
type Pair struct {
	Left  string
	Right string
}

// Pairs returns every "**left**=**right**" pair in body.
func Pairs(body string) []Pair {
	var out []Pair
	for _, m := range pairRe.FindAllStringSubmatch(body, -1) {
		l, r := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if l == "" || r == "" {
			continue
		}
		out = append(out, Pair{Left: l, Right: r})
	}
	return out
}

// CatalogIDs returns the ids of catalog item URLs in body, without duplicates.
func CatalogIDs(body string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range urlIDRe.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// ReplyNames lists the names a rendered reply covers, in order of appearance.
// Found games come back as "#<id>" so they resolve by id. Search links and bold
// spans yield their text.
func ReplyNames(body string) []string {
	var out []string
	for _, m := range replyItemRe.FindAllStringSubmatch(body, -1) {
		var name string
		switch {
		case m[1] != "":
			name = "#" + m[1]
		case m[2] != "":
			name = strings.TrimSpace(m[2])
		default:
			name = strings.TrimSpace(m[3])
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
