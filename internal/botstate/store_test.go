package botstate

import (
	"path/filepath"
	"testing"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoleGrants(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.GrantRole(1, "alice", "payer"))
	require.NoError(t, s.GrantRole(1, "alice_renamed", "payer"))
	require.NoError(t, s.GrantRole(2, "bob", "stat_edit"))

	ok, err := s.HasRole(1, "payer", "trial_payer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasRole(2, "payer", "trial_payer")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasRole(1)
	require.NoError(t, err)
	assert.False(t, ok)

	holders, err := s.Holders("payer", "stat_edit")
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, "alice_renamed", holders[0].UserName)

	require.NoError(t, s.RevokeRole(1, "payer"))
	ok, err = s.HasRole(1, "payer")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.RevokeRole(1, "payer"), apperr.ErrNotFound)

	// re-granting after a revoke works despite the unique index
	require.NoError(t, s.GrantRole(1, "alice", "payer"))
}

func TestRelayTarget(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.RecordRelay(-100, 42, 555, "carol"))

	m, err := s.RelayTarget(-100, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(555), m.UserChatID)
	assert.Equal(t, "carol", m.UserName)

	_, err = s.RelayTarget(-100, 43)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuditEntries(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.RecordAudit(AuditEntry{Kind: "command", Command: "paystat"}))
	require.NoError(t, s.RecordAudit(AuditEntry{Kind: "error", Command: "editpay", Error: "boom"}))

	got, err := s.RecentAudit(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "editpay", got[0].Command)
}

func TestBackupLog(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.RecordBackup(BackupLog{Period: "OCT_2026", FileName: "OCT_2026_20261016_230000.json", Sha256: "abc"}))
	require.NoError(t, s.RecordBackup(BackupLog{Period: "OCT_2026", FileName: "OCT_2026_20261024_230000.json", Sha256: "abc"}))
	require.NoError(t, s.RecordBackup(BackupLog{Period: "OCT_2026", FileName: "OCT_2026_20261024_230000.json", Sha256: "abc"}))

	require.NoError(t, s.MarkUploaded("OCT_2026_20261024_230000.json"))
	got, err := s.Backups("OCT_2026")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "OCT_2026_20261024_230000.json", got[0].FileName)
	assert.True(t, got[0].Uploaded)
	assert.False(t, got[1].Uploaded)

	got, err = s.Backups("SEP_2026")
	require.NoError(t, err)
	assert.Empty(t, got)
}
