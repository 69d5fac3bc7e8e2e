package command

import (
	"strings"

	"github.com/park285/r2d8-reddit-bot/internal/format"
)

// DefaultParodyRotation is what the bot "finds" in the parody subreddit.
var DefaultParodyRotation = [][]string{
	{"Dead of Winter: A Crossroads Game"},
	{"Ginkgopolis"},
	{"Machi Koro"},
}

// Settings is fixed at startup and shared read-only by every handler.
type Settings struct {
	botName         string
	parodySubreddit string
	parodyRotation  [][]string
	footer          string
	defaultMode     format.Mode
}

func NewSettings(botName, parodySubreddit, footer string) Settings {
	return Settings{
		botName:         strings.TrimSpace(botName),
		parodySubreddit: strings.TrimSpace(parodySubreddit),
		parodyRotation:  cloneRotation(DefaultParodyRotation),
		footer:          footer,
		defaultMode:     format.ModeStandard,
	}
}

// WithParodyRotation returns a copy of s using rotation.
func (s Settings) WithParodyRotation(rotation [][]string) Settings {
	s.parodyRotation = cloneRotation(rotation)
	return s
}

func (s Settings) BotName() string { return s.botName }
func (s Settings) Footer() string { return s.footer }
func (s Settings) DefaultMode() format.Mode { return s.defaultMode }

// IsParody reports whether subreddit gets the humorous rotation instead of real lookups.
func (s Settings) IsParody(subreddit string) bool {
	return s.parodySubreddit != "" && strings.EqualFold(strings.TrimSpace(subreddit), s.parodySubreddit)
}

// ParodyNames returns the i-th rotation entry, wrapping around.
func (s Settings) ParodyNames(i int) []string {
	if len(s.parodyRotation) == 0 {
		return nil
	}
	if i < 0 {
		i = -i
	}
	return append([]string(nil), s.parodyRotation[i%len(s.parodyRotation)]...)
}

func (s Settings) parodyCount() int { return len(s.parodyRotation) }

func cloneRotation(r [][]string) [][]string {
	out := make([][]string, 0, len(r))
	for _, names := range r {
		out = append(out, append([]string(nil), names...))
	}
	return out
}
