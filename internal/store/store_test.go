package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openSQLite(t *testing.T, path string) Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path, DefaultSeed("r2d8"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(DefaultSeed("r2d8")),
		"sqlite": openSQLite(t, filepath.Join(t.TempDir(), "bot.db")),
	}
}

func TestLedgerRecordForget(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := s.Exists(ctx, "c1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Record(ctx, "c1"))
			require.NoError(t, s.Record(ctx, "c1"))
			ok, err = s.Exists(ctx, "c1")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Forget(ctx, "c1"))
			ok, err = s.Exists(ctx, "c1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAliasesFirstWriteWins(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			added, err := s.AddAlias(ctx, "TM", "Terraforming Mars")
			require.NoError(t, err)
			assert.True(t, added)

			added, err = s.AddAlias(ctx, "tm", "Twilight Imperium")
			require.NoError(t, err)
			assert.False(t, added)

			got, ok, err := s.CanonicalName(ctx, " Tm ")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Terraforming Mars", got)

			_, ok, err = s.CanonicalName(ctx, "Nothing Here")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAliasesFoldNonASCII(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			added, err := s.AddAlias(ctx, "Ärger", "Mensch ärgere Dich nicht")
			require.NoError(t, err)
			assert.True(t, added)

			for _, q := range []string{"Ärger", "ärger", " ÄRGER "} {
				got, ok, err := s.CanonicalName(ctx, q)
				require.NoError(t, err)
				require.True(t, ok, q)
				assert.Equal(t, "Mensch ärgere Dich nicht", got)
			}

			added, err = s.AddAlias(ctx, "ärger", "Other")
			require.NoError(t, err)
			assert.False(t, added)
		})
	}
}

func TestSQLiteBackfillsAliasKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE aliases (gamename TEXT NOT NULL, alias TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO aliases (gamename, alias) VALUES ('Übersee', 'Überfahrt')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := openSQLite(t, path)
	got, ok, err := s.CanonicalName(ctx, "überfahrt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Übersee", got)

	// existing table is kept as is, so no starter aliases are added
	all, err := s.Aliases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	added, err := s.AddAlias(ctx, "ÜBERFAHRT", "Other")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestSeededData(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			got, ok, err := s.CanonicalName(ctx, "Seven Wonders")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "7 Wonders", got)

			all, err := s.Aliases(ctx)
			require.NoError(t, err)
			require.Len(t, all, 5)
			assert.Equal(t, "Dead of Winter", all[0].Alias)

			admin, err := s.IsAdmin(ctx, "r2d8")
			require.NoError(t, err)
			assert.True(t, admin)

			ignored, err := s.IsIgnored(ctx, "someone")
			require.NoError(t, err)
			assert.False(t, ignored)
			require.NoError(t, s.Ignore(ctx, "someone"))
			ignored, err = s.IsIgnored(ctx, "someone")
			require.NoError(t, err)
			assert.True(t, ignored)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path, DefaultSeed("r2d8"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, "abc"))
	_, err = s.AddAlias(ctx, "Spirit Island Expansion", "Spirit Island: Branch & Claw")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// a reopen must not re-seed or lose state
	s2 := openSQLite(t, path)
	ok, err := s2.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	all, err := s2.Aliases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestRebindPostgres(t *testing.T) {
	s := &sqlStore{d: postgresDialect}
	assert.Equal(t, "SELECT a FROM b WHERE c = $1 AND d = $2", s.rebind("SELECT a FROM b WHERE c = ? AND d = ?"))
	s.d = sqliteDialect
	assert.Equal(t, "x = ?", s.rebind("x = ?"))
}
