package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alufers/paystat-bot/internal/backup"
	"github.com/alufers/paystat-bot/internal/botstate"
	"github.com/alufers/paystat-bot/internal/clock"
	"github.com/alufers/paystat-bot/internal/ledger"
	"github.com/alufers/paystat-bot/internal/metrics"
	"github.com/alufers/paystat-bot/internal/settings"
	"github.com/alufers/paystat-bot/internal/voids"
	"go.uber.org/zap"
)

// App holds the stores every entry point needs, with or without Telegram.
type App struct {
	cfg      Config
	log      *zap.Logger
	clock    clock.Clock
	settings settings.Loader
	shelf    *ledger.Shelf
	voids    *voids.Tracker
	state    *botstate.Store
	backups  *backup.Manager
	metrics  *metrics.Metrics
}

func openApp(cfg Config, c clock.Clock, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, err
	}
	a := &App{
		cfg:      cfg,
		log:      log,
		clock:    c,
		settings: settings.Loader{Path: cfg.settingsPath(), Log: log.Named("settings")},
		metrics:  metrics.New(),
	}
	s := a.settings.Load()
	if err := s.Validate(); err != nil {
		log.Warn("settings invalid, falling back where needed", zap.Error(err))
	}

	a.shelf = ledger.NewShelf(cfg.StorageDir, ledger.WithLogger(log))

	var err error
	a.voids, err = voids.NewTracker(voids.FileStorage{Path: cfg.voidsPath()}, c, s.Location(), log)
	if err != nil {
		return nil, err
	}

	a.state, err = botstate.Open(cfg.databasePath())
	if err != nil {
		return nil, err
	}

	a.backups = &backup.Manager{
		LedgerDir: cfg.StorageDir,
		Dir:       cfg.backupDir(),
		Retention: backup.DefaultRetention,
		Log:       a.state,
		Logger:    log.Named("backup"),
	}
	if cfg.ImapAddress != "" {
		a.backups.Uploader = &backup.IMAPUploader{
			Address:  cfg.ImapAddress,
			Username: cfg.ImapUsername,
			Password: cfg.ImapPassword,
			Mailbox:  cfg.ImapMailbox,
			From:     cfg.BackupFrom,
			Logger:   log.Named("imap"),
		}
	}
	return a, nil
}

func (a *App) Close() {
	if err := a.state.Close(); err != nil {
		a.log.Warn("error closing database", zap.Error(err))
	}
}

// now is the current time in the community's timezone.
func (a *App) now(s settings.Settings) time.Time {
	return a.clock.Now().In(s.Location())
}

// resetVoids is the weekly job body, also exposed as a CLI command.
func (a *App) resetVoids() error {
	if err := a.voids.Reset(); err != nil {
		return fmt.Errorf("weekly void reset: %w", err)
	}
	return nil
}
