// Package botstate is the bot's own bookkeeping in SQLite: role grants, the
// direct message relay map, the audit trail and the backup log. Pay records
// and voids are not stored here; they live in their JSON files.
package botstate

import (
	"errors"
	"fmt"

	"github.com/alufers/paystat-bot/internal/apperr"
	"gorm.io/driver/sqlite" // Sqlite driver based on GGO
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	// Migrate the schema
	if err := db.AutoMigrate(&RoleGrant{}, &RelayMessage{}, &AuditEntry{}, &BackupLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GrantRole(userID int64, userName, role string) error {
	grant := RoleGrant{TelegramID: userID, Role: role}
	if err := s.db.Where(&grant).Assign(RoleGrant{UserName: userName}).FirstOrCreate(&grant).Error; err != nil {
		return fmt.Errorf("grant %v to %v: %w", role, userID, err)
	}
	return nil
}

func (s *Store) RevokeRole(userID int64, role string) error {
	res := s.db.Unscoped().Where("telegram_id = ? AND role = ?", userID, role).Delete(&RoleGrant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %v does not have role %v: %w", userID, role, apperr.ErrNotFound)
	}
	return nil
}

// HasRole reports whether the user holds any of roles.
func (s *Store) HasRole(userID int64, roles ...string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var n int64
	if err := s.db.Model(&RoleGrant{}).Where("telegram_id = ? AND role IN ?", userID, roles).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Holders lists grants for any of roles, one entry per user.
func (s *Store) Holders(roles ...string) ([]RoleGrant, error) {
	var grants []RoleGrant
	if err := s.db.Where("role IN ?", roles).Order("telegram_id").Find(&grants).Error; err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	out := grants[:0]
	for _, g := range grants {
		if !seen[g.TelegramID] {
			seen[g.TelegramID] = true
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) RecordRelay(staffChatID int64, staffMessageID int, userChatID int64, userName string) error {
	return s.db.Create(&RelayMessage{
		StaffChatID:    staffChatID,
		StaffMessageID: staffMessageID,
		UserChatID:     userChatID,
		UserName:       userName,
	}).Error
}

// RelayTarget finds who a staff chat message was relayed from.
func (s *Store) RelayTarget(staffChatID int64, staffMessageID int) (RelayMessage, error) {
	var m RelayMessage
	err := s.db.Where("staff_chat_id = ? AND staff_message_id = ?", staffChatID, staffMessageID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, fmt.Errorf("message %v was not relayed: %w", staffMessageID, apperr.ErrNotFound)
	}
	return m, err
}

func (s *Store) RecordAudit(e AuditEntry) error {
	return s.db.Create(&e).Error
}

func (s *Store) RecentAudit(limit int) ([]AuditEntry, error) {
	var out []AuditEntry
	err := s.db.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) RecordBackup(b BackupLog) error {
	return s.db.Where("file_name = ?", b.FileName).FirstOrCreate(&b).Error
}

func (s *Store) MarkUploaded(fileName string) error {
	return s.db.Model(&BackupLog{}).Where("file_name = ?", fileName).Update("uploaded", true).Error
}

// Backups returns the logged snapshots of period, newest first.
func (s *Store) Backups(period string) ([]BackupLog, error) {
	var out []BackupLog
	err := s.db.Where("period = ?", period).Order("id DESC").Find(&out).Error
	return out, err
}
