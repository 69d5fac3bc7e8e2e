package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

type dialect struct {
	name        string
	tableExists string
	hasColumn   string // args: table, column
	ddl         map[string]string
	upsertNoop  string // suffix making an INSERT a no-op on conflict
	aliasOrder  string
}

// sqlStore implements Store over database/sql for both sqlite and postgres.
// Every statement runs in autocommit mode, so each mutation is durable on return.
type sqlStore struct {
	db     *sql.DB
	d      dialect
	logger *zap.Logger
}

var tableOrder = []string{"comments", "aliases", "admins", "ignored"}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, seed Seed, logger *zap.Logger) (*sqlStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &sqlStore{db: db, d: d, logger: logger}
	if err := s.bootstrap(ctx, seed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) bootstrap(ctx context.Context, seed Seed) error {
	for _, table := range tableOrder {
		var n int
		if err := s.db.QueryRowContext(ctx, s.d.tableExists, table).Scan(&n); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if n > 0 {
			if table == "aliases" {
				if err := s.ensureAliasKeys(ctx); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := s.db.ExecContext(ctx, s.d.ddl[table]); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		s.logger.Info("store_table_created", zap.String("table", table), zap.String("driver", s.d.name))

		switch table {
		case "aliases":
			for _, a := range seed.Aliases {
				if _, err := s.AddAlias(ctx, a.Alias, a.CanonicalName); err != nil {
					return fmt.Errorf("seed alias %q: %w", a.Alias, err)
				}
			}
		case "admins":
			for _, id := range seed.Admins {
				if strings.TrimSpace(id) == "" {
					continue
				}
				if err := s.AddAdmin(ctx, id); err != nil {
					return fmt.Errorf("seed admin %q: %w", id, err)
				}
				s.logger.Info("store_admin_seeded", zap.String("user", id))
			}
		}
	}
	return nil
}

// ensureAliasKeys adds and backfills alias_key on alias tables created without it.
// Keys are computed in Go because sqlite's LOWER only folds ASCII.
func (s *sqlStore) ensureAliasKeys(ctx context.Context) error {
	n, err := s.count(ctx, s.d.hasColumn, "aliases", "alias_key")
	if err != nil {
		return fmt.Errorf("check alias_key column: %w", err)
	}
	if n == 0 {
		if err := s.exec(ctx, `ALTER TABLE aliases ADD COLUMN alias_key TEXT`); err != nil {
			return fmt.Errorf("add alias_key column: %w", err)
		}
		s.logger.Info("store_alias_key_added", zap.String("driver", s.d.name))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT alias FROM aliases WHERE alias_key IS NULL`)
	if err != nil {
		return fmt.Errorf("list unkeyed aliases: %w", err)
	}
	var pending []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, alias)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, alias := range pending {
		if err := s.exec(ctx, `UPDATE aliases SET alias_key = ? WHERE alias = ? AND alias_key IS NULL`, aliasKey(alias), alias); err != nil {
			return fmt.Errorf("backfill alias_key for %q: %w", alias, err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info("store_alias_keys_backfilled", zap.Int("aliases", len(pending)))
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *sqlStore) rebind(q string) string {
	if s.d.name != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, q string, args ...any) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	return err
}

func (s *sqlStore) count(ctx context.Context, q string, args ...any) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(q), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *sqlStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM comments WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("comment exists: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) Record(ctx context.Context, id string) error {
	s.logger.Debug("ledger_record", zap.String("comment_id", id))
	if err := s.exec(ctx, `INSERT INTO comments (id) VALUES (?)`+s.d.upsertNoop, id); err != nil {
		return fmt.Errorf("record comment: %w", err)
	}
	return nil
}

func (s *sqlStore) Forget(ctx context.Context, id string) error {
	s.logger.Debug("ledger_forget", zap.String("comment_id", id))
	if err := s.exec(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("forget comment: %w", err)
	}
	return nil
}

func (s *sqlStore) AddAlias(ctx context.Context, alias, canonical string) (bool, error) {
	alias, canonical = strings.TrimSpace(alias), strings.TrimSpace(canonical)
	if alias == "" || canonical == "" {
		return false, nil
	}
	if _, ok, err := s.CanonicalName(ctx, alias); err != nil || ok {
		return false, err
	}
	if err := s.exec(ctx, `INSERT INTO aliases (gamename, alias, alias_key) VALUES (?, ?, ?)`, canonical, alias, aliasKey(alias)); err != nil {
		return false, fmt.Errorf("add alias: %w", err)
	}
	s.logger.Info("alias_added", zap.String("alias", alias), zap.String("name", canonical))
	return true, nil
}

func (s *sqlStore) CanonicalName(ctx context.Context, alias string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrClosed
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT gamename FROM aliases WHERE alias_key = ? ORDER BY `+s.d.aliasOrder+` LIMIT 1`),
		aliasKey(alias)).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup alias: %w", err)
	}
	return name, true, nil
}

func (s *sqlStore) Aliases(ctx context.Context) ([]domain.Alias, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT gamename, alias FROM aliases ORDER BY `+s.d.aliasOrder)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()
	var out []domain.Alias
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.CanonicalName, &a.Alias); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqlStore) IsAdmin(ctx context.Context, id string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM admins WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("is admin: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) IsIgnored(ctx context.Context, id string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM ignored WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("is ignored: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) AddAdmin(ctx context.Context, id string) error {
	return s.exec(ctx, `INSERT INTO admins (id) VALUES (?)`+s.d.upsertNoop, strings.TrimSpace(id))
}

func (s *sqlStore) Ignore(ctx context.Context, id string) error {
	return s.exec(ctx, `INSERT INTO ignored (id) VALUES (?)`+s.d.upsertNoop, strings.TrimSpace(id))
}
