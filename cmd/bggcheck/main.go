// Command bggcheck looks up game names against BoardGameGeek and prints the reply the bot would post.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/r2d8-reddit-bot/internal/botbuilder"
	"github.com/park285/r2d8-reddit-bot/internal/config"
	"github.com/park285/r2d8-reddit-bot/internal/format"
	"github.com/park285/r2d8-reddit-bot/internal/msgcat"
	"github.com/park285/r2d8-reddit-bot/internal/obslog"
	"github.com/park285/r2d8-reddit-bot/internal/resolver"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: bggcheck [short|long|tabular] <game name> [<game name>...]")
	}
	args := os.Args[1:]
	mode := format.ModeStandard
	if m, ok := format.ParseMode(args[0]); ok && len(args) > 1 {
		mode = m
		args = args[1:]
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger := obslog.L()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	catalog, cache, err := botbuilder.NewCatalog(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	r := resolver.New(catalog, resolver.WithDetailPause(cfg.DisambiguationPause), resolver.WithLogger(logger))
	for _, name := range args {
		res, err := r.Resolve(ctx, name)
		switch {
		case err != nil:
			log.Printf("%q: error: %v", name, err)
		case res.Found():
			log.Printf("%q: found %s (%s) via %s", name, res.Game.Name, res.Game.ID, res.Step)
		default:
			log.Printf("%q: not found", name)
		}
	}

	batch := r.ResolveAll(ctx, args, resolver.SortNone)
	f := format.NewFormatter(cfg.BotName, msgcat.Default(), cfg.LongModeLimit, logger)
	out := f.Format(format.Request{Games: batch.Games, NotFound: batch.NotFound, Mode: mode})
	if strings.TrimSpace(out) == "" {
		log.Println("nothing to reply")
		return
	}
	fmt.Println(out)
}
