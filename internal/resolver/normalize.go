package resolver

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxNameLength is the longest name, in characters, the resolver will look up.
const MaxNameLength = 128

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	idPattern     = regexp.MustCompile(`^#?(\d+)$`)
	bracketed     = regexp.MustCompile(`\[([^\[\]]+)\]`)
	punctuation   = regexp.MustCompile(`[?!.:,]`)
)

// Normalize lowercases raw, trims it and collapses inner whitespace. ok is false
// when the result is empty or longer than MaxNameLength.
func Normalize(raw string) (string, bool) {
	s := cases.Lower(language.Und).String(raw)
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if s == "" || utf8.RuneCountInString(s) > MaxNameLength {
		return s, false
	}
	return s, true
}

// foldKey is the identity used to deduplicate names within one batch.
func foldKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

func catalogID(text string) (string, bool) {
	m := idPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func bracketText(text string) (string, bool) {
	m := bracketed.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	inner := strings.TrimSpace(m[1])
	return inner, inner != ""
}

func stripArticles(text string) string {
	s := strings.TrimPrefix(text, "the ")
	for strings.Contains(s, " the ") {
		s = strings.ReplaceAll(s, " the ", " ")
	}
	return strings.TrimSpace(s)
}

// substitution is a textual rewrite tried independently of the others.
type substitution struct {
	name  string
	apply func(string) string
}

var substitutions = []substitution{
	{name: "strip_punctuation", apply: func(s string) string {
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(punctuation.ReplaceAllString(s, ""), " "))
	}},
	{name: "and_to_ampersand", apply: func(s string) string { return strings.ReplaceAll(s, " and ", " & ") }},
	{name: "ampersand_to_and", apply: func(s string) string { return strings.ReplaceAll(s, " & ", " and ") }},
}
