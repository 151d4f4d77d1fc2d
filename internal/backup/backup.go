// Package backup snapshots the active period file once a day, keeps a week
// of snapshots and optionally mails each one to an IMAP mailbox.
package backup

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/botstate"
	"github.com/alufers/paystat-bot/internal/ledger"
	"go.uber.org/zap"
)

const (
	DefaultRetention = 7 * 24 * time.Hour
	stampLayout      = "20060102_150405"
)

var backupName = regexp.MustCompile(`^([A-Z]+_\d{4})_(\d{8}_\d{6})\.json$`)

// Log records the snapshots taken and whether each reached the mailbox.
type Log interface {
	RecordBackup(b botstate.BackupLog) error
	MarkUploaded(fileName string) error
}

// Uploader stores a copy of a snapshot off the host.
type Uploader interface {
	Upload(ctx context.Context, name string, content []byte) error
}

type Result struct {
	Period  string
	Path    string
	Stamp   string
	Sha256  string
	Skipped bool
	// UploadErr is set when the local snapshot was written but the
	// off-site copy failed.
	UploadErr error
}

type Manager struct {
	LedgerDir string
	Dir       string
	Retention time.Duration
	Log       Log
	Uploader  Uploader
	Logger    *zap.Logger
}

func (m *Manager) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Create snapshots the period file that is active at now. It is skipped
// when the newest snapshot of that period still on disk and inside the
// retention has the same content.
func (m *Manager) Create(ctx context.Context, now time.Time) (Result, error) {
	period := ledger.PeriodName(now)
	res := Result{Period: period, Stamp: now.Format(stampLayout)}

	content, err := os.ReadFile(ledger.PeriodFile(m.LedgerDir, period))
	if errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("no ledger for %v: %w", period, apperr.ErrNotFound)
	}
	if err != nil {
		return res, err
	}
	res.Sha256 = fmt.Sprintf("%x", sha256.Sum256(content))

	same, err := m.unchanged(period, res.Sha256, now)
	if err != nil {
		return res, err
	}
	if same {
		res.Skipped = true
		m.logger().Info("ledger unchanged since last backup", zap.String("period", period))
		return res, nil
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return res, err
	}
	name := fmt.Sprintf("%s_%s.json", period, res.Stamp)
	res.Path = filepath.Join(m.Dir, name)
	if err := os.WriteFile(res.Path, content, 0o644); err != nil {
		return res, fmt.Errorf("write backup: %w", err)
	}
	m.logger().Info("backup created", zap.String("path", res.Path), zap.String("sha256", res.Sha256))

	if m.Log != nil {
		if err := m.Log.RecordBackup(botstate.BackupLog{Period: period, FileName: name, Sha256: res.Sha256}); err != nil {
			return res, err
		}
	}

	if m.Uploader != nil {
		if err := m.Uploader.Upload(ctx, name, content); err != nil {
			m.logger().Warn("off-site backup copy failed", zap.String("file", name), zap.Error(err))
			res.UploadErr = err
		} else if m.Log != nil {
			if err := m.Log.MarkUploaded(name); err != nil {
				m.logger().Warn("failed to mark backup uploaded", zap.Error(err))
			}
		}
	}
	return res, nil
}

func (m *Manager) retention() time.Duration {
	if m.Retention <= 0 {
		return DefaultRetention
	}
	return m.Retention
}

// unchanged reports whether the newest retained snapshot of period hashes
// to sha.
func (m *Manager) unchanged(period, sha string, now time.Time) (bool, error) {
	names, err := m.List()
	if err != nil {
		return false, err
	}
	for i := len(names) - 1; i >= 0; i-- {
		match := backupName.FindStringSubmatch(names[i])
		if match[1] != period {
			continue
		}
		taken, err := time.ParseInLocation(stampLayout, match[2], now.Location())
		if err != nil || now.Sub(taken) > m.retention() {
			return false, nil
		}
		content, err := os.ReadFile(filepath.Join(m.Dir, names[i]))
		if err != nil {
			return false, err
		}
		return fmt.Sprintf("%x", sha256.Sum256(content)) == sha, nil
	}
	return false, nil
}

// Prune removes snapshots whose timestamp is older than the retention.
// Files not named like a snapshot are left alone.
func (m *Manager) Prune(now time.Time) ([]string, error) {
	retention := m.retention()
	entries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := backupName.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		taken, err := time.ParseInLocation(stampLayout, match[2], now.Location())
		if err != nil {
			continue
		}
		if now.Sub(taken) <= retention {
			continue
		}
		if err := os.Remove(filepath.Join(m.Dir, e.Name())); err != nil {
			return removed, err
		}
		removed = append(removed, e.Name())
	}
	if len(removed) > 0 {
		m.logger().Info("pruned old backups", zap.Strings("files", removed))
	}
	return removed, nil
}

// List returns the snapshot file names in dir, oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && backupName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return backupName.FindStringSubmatch(names[i])[2] < backupName.FindStringSubmatch(names[j])[2]
	})
	return names, nil
}
