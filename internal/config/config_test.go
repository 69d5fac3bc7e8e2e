package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("R2D8_SLEEP", "")
	t.Setenv("R2D8_DATABASE_URL", "")
	t.Setenv("R2D8_STORE", "")
	cfg := Load()
	assert.Equal(t, "r2d8", cfg.BotName)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.Sleep)
	assert.Equal(t, time.Second, cfg.DisambiguationPause)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("R2D8_SLEEP", "30")
	t.Setenv("R2D8_DATABASE_URL", "postgres://bot@localhost/r2d8?sslmode=disable")
	t.Setenv("R2D8_STORE", "")
	t.Setenv("R2D8_PARODY_SUBREDDIT", "")
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.Sleep)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "", cfg.ParodySubreddit)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Sleep = 10 * time.Millisecond
	cfg.StoreDriver = "mongo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sleep")
	assert.Contains(t, err.Error(), "StoreDriver")
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	cfg := Default()
	cfg.ConfigPath = filepath.Join(t.TempDir(), "absent.yaml")
	err := cfg.LoadCredentials()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCredentialsMissing))
	assert.False(t, cfg.HasCredentials())
}

func TestLoadCredentialsNestedSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r2d8.yaml")
	body := "reddit:\n  client_id: abc\n  client_secret: shh\n  refresh_token: tok\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg := Default()
	cfg.ConfigPath = path
	require.NoError(t, cfg.LoadCredentials())
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "shh", cfg.Credentials.ClientSecret)
	assert.Contains(t, cfg.Credentials.UserAgent, "r2d8")
}
