// Package settings is the community configuration kept in server.json:
// which chats each command is allowed in, the role names that gate
// commands, the daily reset time and the watched user.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/alufers/paystat-bot/internal/jsonfile"
	"github.com/alufers/paystat-bot/internal/schedule"
	"go.uber.org/zap"
)

// Channel keys.
const (
	ChannelPaystat             = "paystat_allowed"
	ChannelAdminStats          = "admin_stats"
	ChannelPayvoid             = "payvoid_allowed"
	ChannelAuditLog            = "audit_log"
	ChannelBackupNotifications = "backup_notifications"
	ChannelMentionLog          = "mention_log"
	ChannelRelayStaff          = "relay_staff"
)

// Role keys.
const (
	RolePayer      = "payer"
	RoleTrialPayer = "trial_payer"
	RoleStatEdit   = "stat_edit"
	RoleFoundation = "foundation"
)

const UserTarget = "target_user"

type Time struct {
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Timezone string `json:"timezone"`
}

type Settings struct {
	Channels map[string]int64  `json:"channels"`
	Roles    map[string]string `json:"roles"`
	Time     Time              `json:"time"`
	Users    map[string]int64  `json:"users"`
}

// File is server.json as found on disk. Every field is optional; Merge fills
// the gaps from the defaults.
type File struct {
	Channels map[string]int64  `json:"channels,omitempty"`
	Roles    map[string]string `json:"roles,omitempty"`
	Time     *FileTime         `json:"time,omitempty"`
	Users    map[string]int64  `json:"users,omitempty"`
}

type FileTime struct {
	Hour     *int    `json:"hour,omitempty"`
	Minute   *int    `json:"minute,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

func Defaults() Settings {
	return Settings{
		Channels: map[string]int64{
			ChannelPaystat:             0,
			ChannelAdminStats:          0,
			ChannelPayvoid:             0,
			ChannelAuditLog:            0,
			ChannelBackupNotifications: 0,
			ChannelMentionLog:          0,
			ChannelRelayStaff:          0,
		},
		Roles: map[string]string{
			RolePayer:      "Payer",
			RoleTrialPayer: "Trial Payer",
			RoleStatEdit:   "Stat Edit",
			RoleFoundation: "Foundation",
		},
		Time: Time{
			Hour:     23,
			Minute:   0,
			Timezone: "Europe/London",
		},
		Users: map[string]int64{
			UserTarget: 0,
		},
	}
}

// Merge overlays f on base section by section. Keys missing from f keep
// their base value, keys unknown to base are kept as they are in f.
func Merge(base Settings, f File) Settings {
	out := Settings{
		Channels: mergeMap(base.Channels, f.Channels),
		Roles:    mergeMap(base.Roles, f.Roles),
		Time:     base.Time,
		Users:    mergeMap(base.Users, f.Users),
	}
	if f.Time != nil {
		if f.Time.Hour != nil {
			out.Time.Hour = *f.Time.Hour
		}
		if f.Time.Minute != nil {
			out.Time.Minute = *f.Time.Minute
		}
		if f.Time.Timezone != nil {
			out.Time.Timezone = *f.Time.Timezone
		}
	}
	return out
}

func mergeMap[V any](base, over map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Loader reads server.json on every call; edits to the file are picked up
// by the next command without a restart.
type Loader struct {
	Path string
	Log  *zap.Logger
}

// Load returns the merged settings. On first run the defaults are written to
// Path. An unreadable file falls back to the defaults.
func (l Loader) Load() Settings {
	def := Defaults()
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	var f File
	err := jsonfile.Read(l.Path, &f)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := jsonfile.Write(l.Path, def); werr != nil {
			log.Warn("could not write default settings", zap.String("path", l.Path), zap.Error(werr))
		} else {
			log.Info("created default settings file", zap.String("path", l.Path))
		}
		return def
	}
	if err != nil {
		log.Warn("settings unreadable, using defaults", zap.String("path", l.Path), zap.Error(err))
		return def
	}
	return Merge(def, f)
}

func (s Settings) Channel(name string) int64 {
	return s.Channels[name]
}

// Role returns the configured display name for a role key, or the key itself
// when nothing is configured.
func (s Settings) Role(name string) string {
	if r, ok := s.Roles[name]; ok && r != "" {
		return r
	}
	return name
}

func (s Settings) User(name string) int64 {
	return s.Users[name]
}

// Location resolves the configured timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Time.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Settings) ResetTime() schedule.TimeOfDay {
	return schedule.TimeOfDay{Hour: s.Time.Hour, Minute: s.Time.Minute}
}

// Validate checks the time section; channel and role maps are free-form.
func (s Settings) Validate() error {
	if _, err := time.LoadLocation(s.Time.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Time.Timezone, err)
	}
	return s.ResetTime().Validate()
}
