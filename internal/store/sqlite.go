package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	hasColumn:   `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
	ddl: map[string]string{
		"comments": `CREATE TABLE comments (id TEXT PRIMARY KEY)`,
		"aliases":  `CREATE TABLE aliases (gamename TEXT NOT NULL, alias TEXT NOT NULL, alias_key TEXT NOT NULL)`,
		"admins":   `CREATE TABLE admins (id TEXT PRIMARY KEY)`,
		"ignored":  `CREATE TABLE ignored (id TEXT PRIMARY KEY)`,
	},
	upsertNoop: ` ON CONFLICT DO NOTHING`,
	aliasOrder: `rowid`,
}

// OpenSQLite opens (creating if needed) the sqlite database at path and seeds new tables.
func OpenSQLite(ctx context.Context, path string, seed Seed, logger *zap.Logger) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single process, single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	s, err := newSQLStore(ctx, db, sqliteDialect, seed, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
