package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.json")
	t.Setenv("PAYSTAT_TELEGRAM_TOKEN", "123:abc")

	cfg, created, err := loadConfig(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "data", cfg.StorageDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "INBOX", cfg.ImapMailbox)
	assert.FileExists(t, path)

	_, created, err = loadConfig(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"storage_dir": "/srv/pay", "owner_id": 42, "log_level": "debug"}`), 0o644))
	t.Setenv("PAYSTAT_OWNER_ID", "7")

	cfg, created, err := loadConfig(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "/srv/pay", cfg.StorageDir)
	assert.Equal(t, int64(7), cfg.OwnerID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"storage_dir": `), 0o644))
	_, _, err := loadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.validate(false))
	assert.Error(t, Config{StorageDir: "data"}.validate(true))
	assert.NoError(t, Config{StorageDir: "data"}.validate(false))
	assert.NoError(t, Config{StorageDir: "data", TelegramToken: "t"}.validate(true))
}
