package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	StorageDir     string `mapstructure:"storage_dir"`
	OwnerID        int64  `mapstructure:"owner_id"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddress string `mapstructure:"metrics_address"`
	ImapAddress    string `mapstructure:"imap_address"`
	ImapUsername   string `mapstructure:"imap_username"`
	ImapPassword   string `mapstructure:"imap_password"`
	ImapMailbox    string `mapstructure:"imap_mailbox"`
	BackupFrom     string `mapstructure:"backup_from"`
}

func configPath() string {
	if p := os.Getenv("PAYSTAT_CONFIG_FILE"); p != "" {
		return p
	}
	return "config.json"
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("telegram_token", "")
	v.SetDefault("storage_dir", "data")
	v.SetDefault("owner_id", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_address", "")
	v.SetDefault("imap_address", "")
	v.SetDefault("imap_username", "")
	v.SetDefault("imap_password", "")
	v.SetDefault("imap_mailbox", "INBOX")
	v.SetDefault("backup_from", "")
}

// loadConfig reads the process config from path, with PAYSTAT_* environment
// variables taking precedence. A missing file is created from the defaults
// and the environment so there is something to edit on the next start.
func loadConfig(path string) (Config, bool, error) {
	v := viper.New()
	setConfigDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("PAYSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	created := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Config{}, false, err
			}
		}
		if err := v.WriteConfigAs(path); err != nil {
			return Config{}, false, fmt.Errorf("create default config %v: %w", path, err)
		}
		created = true
	} else if err := v.ReadInConfig(); err != nil {
		return Config{}, false, fmt.Errorf("read config %v: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, created, fmt.Errorf("decode config: %w", err)
	}
	return cfg, created, nil
}

func (c Config) validate(needToken bool) error {
	if c.StorageDir == "" {
		return errors.New("storage_dir (PAYSTAT_STORAGE_DIR) is not set")
	}
	if needToken && c.TelegramToken == "" {
		return errors.New("telegram_token (PAYSTAT_TELEGRAM_TOKEN) is not set")
	}
	return nil
}

func (c Config) settingsPath() string { return filepath.Join(c.StorageDir, "server.json") }
func (c Config) voidsPath() string    { return filepath.Join(c.StorageDir, "voids.json") }
func (c Config) backupDir() string    { return filepath.Join(c.StorageDir, "backups") }
func (c Config) databasePath() string { return filepath.Join(c.StorageDir, "paystat.db") }
