package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/park285/r2d8-reddit-bot/internal/obslog"
)

// ErrCredentialsMissing is returned by LoadCredentials when the file does not exist.
var ErrCredentialsMissing = errors.New("credentials file missing")

// Credentials are the OAuth values for the platform account the bot runs as.
type Credentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	RefreshToken string `yaml:"refresh_token"`
	Scopes       string `yaml:"scopes"`
}

type AppConfig struct {
	BotName string `validate:"required,alphanum_underscore"`

	StoreDriver  string `validate:"oneof=sqlite postgres memory"`
	DatabasePath string `validate:"required_if=StoreDriver sqlite"`
	DatabaseURL  string `validate:"required_if=StoreDriver postgres"`
	RedisURL     string

	Sleep         time.Duration `validate:"min=1s"`
	Once          bool
	MarkRead      bool
	TargetID      string
	ForcedCommand string
	DryRun        bool

	ConfigPath  string
	Footer      string
	MessagesDir string

	ParodySubreddit     string
	DisambiguationPause time.Duration `validate:"min=0s"`
	LongModeLimit       int           `validate:"min=1"`

	RedditAuthURL string `validate:"required,url"`
	RedditAPIURL  string `validate:"required,url"`
	BGGBaseURL    string `validate:"required,url"`
	BGGCacheTTL   time.Duration

	Credentials Credentials
	Log         obslog.Options
}

// Default returns the configuration the bot runs with when nothing is set.
func Default() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		BotName:             "r2d8",
		StoreDriver:         "sqlite",
		DatabasePath:        "r2d8-bot.db",
		Sleep:               5 * time.Second,
		ConfigPath:          filepath.Join(home, ".config", "r2d8.yaml"),
		ParodySubreddit:     "boardgamescirclejerk",
		DisambiguationPause: time.Second,
		LongModeLimit:       6,
		RedditAuthURL:       "https://www.reddit.com",
		RedditAPIURL:        "https://oauth.reddit.com",
		BGGBaseURL:          "https://boardgamegeek.com/xmlapi2",
		BGGCacheTTL:         24 * time.Hour,
		Log:                 obslog.OptionsFromEnv(),
	}
}

// Load builds the configuration from defaults and R2D8_* environment variables.
func Load() *AppConfig {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("R2D8_BOT_NAME")); v != "" {
		cfg.BotName = v
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_DATABASE")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
		cfg.StoreDriver = "postgres"
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_STORE")); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("R2D8_REDIS_URL"))

	if v := strings.TrimSpace(os.Getenv("R2D8_SLEEP")); v != "" {
		if d, ok := parseSeconds(v); ok {
			cfg.Sleep = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_CONFIG")); v != "" {
		cfg.ConfigPath = v
	}
	cfg.Footer = os.Getenv("R2D8_FOOTER")
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("R2D8_MESSAGES_DIR"))
	if v, ok := os.LookupEnv("R2D8_PARODY_SUBREDDIT"); ok {
		cfg.ParodySubreddit = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_DISAMBIGUATION_PAUSE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.DisambiguationPause = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_LONG_MODE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LongModeLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_BGG_URL")); v != "" {
		cfg.BGGBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_BGG_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BGGCacheTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("R2D8_DRY_RUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DryRun = b
		}
	}
	return cfg
}

// LoadCredentials reads the YAML credentials file at cfg.ConfigPath into cfg.Credentials.
// A missing file yields ErrCredentialsMissing; the caller decides whether that is fatal.
func (c *AppConfig) LoadCredentials() error {
	path := strings.TrimSpace(c.ConfigPath)
	if path == "" {
		return ErrCredentialsMissing
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrCredentialsMissing, path)
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	var file struct {
		Credentials `yaml:",inline"`
		Reddit      *Credentials `yaml:"reddit"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse credentials %s: %w", path, err)
	}
	creds := file.Credentials
	if file.Reddit != nil {
		creds = *file.Reddit
	}
	if strings.TrimSpace(creds.UserAgent) == "" {
		creds.UserAgent = fmt.Sprintf("go:%s:v1 (by /u/%s)", c.BotName, c.BotName)
	}
	c.Credentials = creds
	return nil
}

// HasCredentials reports whether enough OAuth values are present to log in.
func (c *AppConfig) HasCredentials() bool {
	return c.Credentials.ClientID != "" && c.Credentials.RefreshToken != ""
}

// Validate checks the assembled configuration.
func (c *AppConfig) Validate() error {
	v := validator.New()
	_ = v.RegisterValidation("alphanum_underscore", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, r := range s {
			if !(r == '_' || r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return false
			}
		}
		return s != ""
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Field(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

func parseSeconds(v string) (time.Duration, bool) {
	if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
		return time.Duration(n * float64(time.Second)), true
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
