// Package store persists the bot's trust data (aliases, admins, ignored users)
// and the processed-comment ledger.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

var ErrClosed = errors.New("store closed")

// AliasStore maps informal game names to canonical catalog names. First write wins.
type AliasStore interface {
	AddAlias(ctx context.Context, alias, canonical string) (bool, error)
	CanonicalName(ctx context.Context, alias string) (string, bool, error)
	Aliases(ctx context.Context) ([]domain.Alias, error)
}

// Ledger records which inbound comment ids have been handled.
type Ledger interface {
	Exists(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, id string) error
	Forget(ctx context.Context, id string) error
}

// Users answers permission questions about platform accounts.
type Users interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
	IsIgnored(ctx context.Context, id string) (bool, error)
	AddAdmin(ctx context.Context, id string) error
	Ignore(ctx context.Context, id string) error
}

type Store interface {
	AliasStore
	Ledger
	Users
	Close() error
}

// Seed is the data written when the tables are first created.
type Seed struct {
	Aliases []domain.Alias
	Admins  []string
}

// DefaultSeed returns the starter aliases and makes botName the first admin.
func DefaultSeed(botName string) Seed {
	return Seed{
		Aliases: []domain.Alias{
			{Alias: "Dead of Winter", CanonicalName: "Dead of Winter: A Crossroads Game"},
			{Alias: "Pathfinder", CanonicalName: "Pathfinder Adventure Card Game: Rise of the Runelords - Base Set"},
			{Alias: "Descent 2", CanonicalName: "Descent: Journeys in the Dark (Second Edition)"},
			{Alias: "Seven Wonders", CanonicalName: "7 Wonders"},
			{Alias: "Caverna", CanonicalName: "Caverna: The Cave Farmers"},
		},
		Admins: []string{strings.TrimSpace(botName)},
	}
}

// aliasKey is the lookup form of an alias. Matching ignores case and outer whitespace.
func aliasKey(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}
