package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var postgresDialect = dialect{
	name:        "postgres",
	tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`,
	hasColumn:   `SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`,
	ddl: map[string]string{
		"comments": `CREATE TABLE comments (id TEXT PRIMARY KEY)`,
		"aliases":  `CREATE TABLE aliases (seq BIGSERIAL PRIMARY KEY, gamename TEXT NOT NULL, alias TEXT NOT NULL, alias_key TEXT NOT NULL)`,
		"admins":   `CREATE TABLE admins (id TEXT PRIMARY KEY)`,
		"ignored":  `CREATE TABLE ignored (id TEXT PRIMARY KEY)`,
	},
	upsertNoop: ` ON CONFLICT DO NOTHING`,
	aliasOrder: `seq`,
}

// OpenPostgres connects to databaseURL and seeds any tables it has to create.
func OpenPostgres(ctx context.Context, databaseURL string, seed Seed, logger *zap.Logger) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("R2D8_DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, postgresDialect, seed, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
