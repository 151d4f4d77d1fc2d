package botstate

import (
	"gorm.io/gorm"
)

// RoleGrant gives a Telegram user one of the community roles (payer,
// stat_edit, ...). Telegram has no server roles, so the bot keeps its own.
type RoleGrant struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex:idx_grant_user_role"`
	UserName   string
	Role       string `gorm:"uniqueIndex:idx_grant_user_role"`
}

// RelayMessage maps a direct message forwarded into the staff chat back to
// the user who sent it.
type RelayMessage struct {
	gorm.Model
	StaffChatID    int64 `gorm:"uniqueIndex:idx_relay_staff_msg"`
	StaffMessageID int   `gorm:"uniqueIndex:idx_relay_staff_msg"`
	UserChatID     int64 `gorm:"index"`
	UserName       string
}

// AuditEntry is a mirrored command use, command error or member change.
type AuditEntry struct {
	gorm.Model
	Kind     string `gorm:"index"`
	UserID   int64
	UserName string
	Command  string
	ChatID   int64
	Args     string
	Error    string
}

type BackupLog struct {
	gorm.Model
	Period   string `gorm:"index"`
	FileName string `gorm:"unique"`
	Sha256   string `gorm:"index"`
	Uploaded bool
}
