package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/botbuilder"
	"github.com/park285/r2d8-reddit-bot/internal/config"
	"github.com/park285/r2d8-reddit-bot/internal/obslog"
	"github.com/park285/r2d8-reddit-bot/internal/poller"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	sleepSec := cfg.Sleep.Seconds()

	rootCmd := &cobra.Command{
		Use:   "r2d8",
		Short: "Reddit bot that answers board game lookups",
		Long: `r2d8 watches its Reddit inbox for mentions such as

    u/r2d8 getinfo **Catan**

and replies with details from BoardGameGeek. Credentials are read from the
YAML file given by --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sleep") {
				cfg.Sleep = time.Duration(sleepSec * float64(time.Second))
			}
			if cmd.Flags().Changed("command") && cfg.TargetID == "" {
				return fmt.Errorf("--command needs --target")
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&cfg.DatabasePath, "database", "d", cfg.DatabasePath, "SQLite database file (env: R2D8_DATABASE)")
	f.Float64VarP(&sleepSec, "sleep", "s", sleepSec, "Seconds to sleep between inbox checks (env: R2D8_SLEEP)")
	f.BoolVar(&cfg.Once, "once", cfg.Once, "Run a single inbox check and exit")
	f.BoolVarP(&cfg.MarkRead, "read", "r", cfg.MarkRead, "Mark all pending comments as processed without replying, then exit")
	f.StringVarP(&cfg.TargetID, "target", "t", cfg.TargetID, "Handle only this comment id, even if already processed")
	f.StringVarP(&cfg.ForcedCommand, "command", "c", cfg.ForcedCommand, "Command to force on --target")
	f.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML credentials file (env: R2D8_CONFIG)")
	f.StringVar(&cfg.Footer, "footer", cfg.Footer, "Footer appended to info replies (env: R2D8_FOOTER)")
	f.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log replies, edits and deletes instead of sending them")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	return rootCmd
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	logger, err := obslog.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.LoadCredentials(); err != nil {
		if !errors.Is(err, config.ErrCredentialsMissing) {
			return err
		}
		logger.Warn("credentials_file_missing", zap.String("path", cfg.ConfigPath))
	}

	bot, err := botbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup_failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.Warn("shutdown_failed", zap.Error(err))
		}
	}()

	logger.Info("bot_started",
		zap.String("bot", cfg.BotName),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("dry_run", cfg.DryRun),
	)

	switch {
	case cfg.TargetID != "":
		err = bot.Poller.Target(ctx, cfg.TargetID, cfg.ForcedCommand)
	case cfg.Once:
		var stats poller.Stats
		stats, err = bot.Poller.RunOnce(ctx)
		logger.Info("single_cycle_done", zap.Int("new", stats.New), zap.Int("dispatched", stats.Dispatched))
	default:
		err = bot.Poller.Run(ctx)
	}
	if err != nil && !poller.IsStop(err) {
		logger.Error("bot_failed", zap.Error(err))
		return err
	}
	logger.Info("bot_stopped")
	return nil
}
