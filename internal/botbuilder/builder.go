// Package botbuilder wires the bot's components from an AppConfig.
package botbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/bgg"
	"github.com/park285/r2d8-reddit-bot/internal/command"
	"github.com/park285/r2d8-reddit-bot/internal/config"
	"github.com/park285/r2d8-reddit-bot/internal/format"
	"github.com/park285/r2d8-reddit-bot/internal/msgcat"
	"github.com/park285/r2d8-reddit-bot/internal/poller"
	"github.com/park285/r2d8-reddit-bot/internal/reddit"
	"github.com/park285/r2d8-reddit-bot/internal/resolver"
	"github.com/park285/r2d8-reddit-bot/internal/store"
)

type Bot struct {
	Store      store.Store
	Catalog    *bgg.Client
	Cache      *bgg.RedisCache
	Platform   reddit.Platform
	Resolver   *resolver.Resolver
	Formatter  *format.Formatter
	Dispatcher *command.Dispatcher
	Poller     *poller.Poller
}

// New assembles every component. The caller owns the returned Bot and must Close it.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	b := &Bot{Store: st}

	b.Catalog, b.Cache, err = NewCatalog(ctx, cfg, logger)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	if !cfg.HasCredentials() {
		logger.Warn("reddit_credentials_missing", zap.String("config", cfg.ConfigPath))
	}
	var platform reddit.Platform = reddit.NewClient(cfg.RedditAuthURL, cfg.RedditAPIURL, reddit.Credentials{
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
		UserAgent:    cfg.Credentials.UserAgent,
		RefreshToken: cfg.Credentials.RefreshToken,
	}, reddit.WithLogger(logger.Named("reddit")))
	if cfg.DryRun {
		platform = reddit.NewDryRun(platform, logger.Named("reddit"))
	}
	b.Platform = platform

	b.Resolver = resolver.New(b.Catalog,
		resolver.WithAliases(st),
		resolver.WithDetailPause(cfg.DisambiguationPause),
		resolver.WithLogger(logger.Named("resolver")),
	)
	b.Formatter = format.NewFormatter(cfg.BotName, msgs, cfg.LongModeLimit, logger.Named("format"))

	footer := cfg.Footer
	if footer == "" {
		footer = b.Formatter.DefaultFooter()
	}
	settings := command.NewSettings(cfg.BotName, cfg.ParodySubreddit, footer)
	b.Dispatcher = command.NewDispatcher(settings, command.Deps{
		Platform:  platform,
		Resolver:  b.Resolver,
		Formatter: b.Formatter,
		Aliases:   st,
		Ledger:    st,
		Users:     st,
		Messages:  msgs,
		Logger:    logger.Named("command"),
	})

	b.Poller = poller.New(platform, st, b.Dispatcher,
		poller.WithSleep(cfg.Sleep),
		poller.WithMarkOnly(cfg.MarkRead),
		poller.WithLogger(logger.Named("poller")),
	)
	return b, nil
}

// OpenStore opens the configured store backend, seeding it on first use.
func OpenStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (store.Store, error) {
	seed := store.DefaultSeed(cfg.BotName)
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemory(seed), nil
	case "postgres":
		st, err := store.OpenPostgres(ctx, cfg.DatabaseURL, seed, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		st, err := store.OpenSQLite(ctx, cfg.DatabasePath, seed, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	}
}

// NewCatalog builds the catalog client, with a redis response cache when R2D8_REDIS_URL is set.
func NewCatalog(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*bgg.Client, *bgg.RedisCache, error) {
	opts := []bgg.Option{bgg.WithLogger(logger.Named("bgg"))}

	var cache *bgg.RedisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ropts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(ropts)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = bgg.NewRedisCache(rdb, cfg.BGGCacheTTL)
		opts = append(opts, bgg.WithCache(cache))
	}
	return bgg.NewClient(cfg.BGGBaseURL, opts...), cache, nil
}

func (b *Bot) Close() error {
	var errs []error
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}

// parseRedisURL accepts redis:// and rediss:// URLs; rediss enables TLS.
func parseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	scheme, _, _ := strings.Cut(raw, "://")
	if scheme != "redis" && scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", scheme)
	}
	return redis.ParseURL(raw)
}
