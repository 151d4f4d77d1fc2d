package main

import (
	"context"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/backup"
	"github.com/alufers/paystat-bot/internal/notify"
	"github.com/alufers/paystat-bot/internal/settings"
	"github.com/alufers/paystat-bot/internal/voids"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var grantableRoles = []string{settings.RolePayer, settings.RoleTrialPayer, settings.RoleStatEdit, settings.RoleFoundation}

func (b *Bot) cmdPayvoid(ctx context.Context, inv *invocation) error {
	if err := b.requireChannel(inv, settings.ChannelPayvoid, "pay void"); err != nil {
		return err
	}
	if err := b.requireRole(inv, settings.RolePayer, settings.RoleTrialPayer); err != nil {
		return err
	}
	username := strings.TrimPrefix(strings.TrimSpace(inv.args), "@")
	out, err := b.voids.RecordVoid(username)
	if err != nil {
		return err
	}
	b.metrics.Voids.WithLabelValues(out.Kind.String()).Inc()

	mentions := ""
	if out.Kind != voids.VoidRecorded {
		mentions = b.payerMentions(inv.settings)
	}
	// the void is saved; the notifier logs a failed send
	b.notifier.Send(inv.chatID, notify.VoidOutcome(out, mentions, inv.settings.Location()))
	return nil
}

// payerMentions pings everyone holding a payer role.
func (b *Bot) payerMentions(s settings.Settings) string {
	holders, err := b.state.Holders(s.Role(settings.RolePayer), s.Role(settings.RoleTrialPayer))
	if err != nil {
		b.log.Warn("could not list payers", zap.Error(err))
		return ""
	}
	parts := make([]string, 0, len(holders))
	for _, h := range holders {
		name := h.UserName
		if name == "" {
			name = strconv.FormatInt(h.TelegramID, 10)
		}
		parts = append(parts, fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, h.TelegramID, html.EscapeString(name)))
	}
	return strings.Join(parts, " ")
}

func (b *Bot) cmdBackup(ctx context.Context, inv *invocation) error {
	if err := b.requireRole(inv, settings.RoleFoundation); err != nil {
		return err
	}
	res, err := b.runBackup(ctx, inv.settings)
	if err != nil {
		return err
	}
	text := notify.BackupCreated(res.Period, res.Stamp)
	if res.Skipped {
		text = html.EscapeString(fmt.Sprintf("The %v ledger has not changed since the last backup.", res.Period))
	}
	b.notifier.Reply(inv.chatID, inv.msg.MessageID, text)
	return nil
}

// runBackup snapshots the current period, prunes old snapshots and sends
// the new file to the backup chat.
func (b *Bot) runBackup(ctx context.Context, s settings.Settings) (backup.Result, error) {
	now := b.now(s)
	// make sure the period file exists even when nothing was recorded yet
	if _, err := b.shelf.At(now); err != nil {
		return backup.Result{}, err
	}
	res, err := b.backups.Create(ctx, now)
	if err != nil {
		b.metrics.Backups.WithLabelValues("error").Inc()
		return res, err
	}
	if _, err := b.backups.Prune(now); err != nil {
		b.log.Warn("error pruning backups", zap.Error(err))
	}
	if res.Skipped {
		b.metrics.Backups.WithLabelValues("unchanged").Inc()
		return res, nil
	}
	b.metrics.Backups.WithLabelValues("created").Inc()
	if res.UploadErr != nil {
		b.metrics.Backups.WithLabelValues("upload_error").Inc()
	}

	ch := s.Channel(settings.ChannelBackupNotifications)
	if ch == 0 {
		return res, nil
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		b.log.Warn("could not read backup for upload", zap.String("path", res.Path), zap.Error(err))
		return res, nil
	}
	name := res.Period + "_" + res.Stamp + ".json"
	b.notifier.Document(ch, name, data, notify.BackupCreated(res.Period, res.Stamp))
	return res, nil
}

// roleTarget resolves the role key and the user a /grant or /revoke is about.
func (b *Bot) roleTarget(inv *invocation) (string, *tgbotapi.User, error) {
	key := strings.ToLower(strings.TrimSpace(inv.args))
	valid := false
	for _, r := range grantableRoles {
		if r == key {
			valid = true
		}
	}
	if !valid {
		return "", nil, fmt.Errorf("role must be one of %v: %w", strings.Join(grantableRoles, ", "), apperr.ErrValidation)
	}
	if inv.msg.ReplyToMessage == nil || inv.msg.ReplyToMessage.From == nil {
		return "", nil, fmt.Errorf("reply to a message from the user: %w", apperr.ErrValidation)
	}
	return key, inv.msg.ReplyToMessage.From, nil
}

func (b *Bot) cmdGrant(ctx context.Context, inv *invocation) error {
	if err := b.requireOwner(inv); err != nil {
		return err
	}
	key, user, err := b.roleTarget(inv)
	if err != nil {
		return err
	}
	role := inv.settings.Role(key)
	if err := b.state.GrantRole(user.ID, user.UserName, role); err != nil {
		return err
	}
	b.notifier.Reply(inv.chatID, inv.msg.MessageID,
		html.EscapeString(fmt.Sprintf("%v now has the %v role.", userLabel(user), role)))
	return nil
}

func (b *Bot) cmdRevoke(ctx context.Context, inv *invocation) error {
	if err := b.requireOwner(inv); err != nil {
		return err
	}
	key, user, err := b.roleTarget(inv)
	if err != nil {
		return err
	}
	role := inv.settings.Role(key)
	if err := b.state.RevokeRole(user.ID, role); err != nil {
		return err
	}
	b.notifier.Reply(inv.chatID, inv.msg.MessageID,
		html.EscapeString(fmt.Sprintf("%v no longer has the %v role.", userLabel(user), role)))
	return nil
}

func (b *Bot) leaveChat(chatID int64) error {
	_, err := b.api.Request(tgbotapi.LeaveChatConfig{ChatID: chatID})
	return err
}

func (b *Bot) cmdLeave(ctx context.Context, inv *invocation) error {
	if err := b.requireOwner(inv); err != nil {
		return err
	}
	if inv.msg.Chat.IsPrivate() {
		return fmt.Errorf("cannot leave a private chat: %w", apperr.ErrValidation)
	}
	b.notifier.Send(inv.chatID, "Leaving this chat.")
	return b.leaveChat(inv.chatID)
}

func (b *Bot) cmdDelete(ctx context.Context, inv *invocation) error {
	if err := b.requireOwner(inv); err != nil {
		return err
	}
	var target int
	arg := strings.TrimSpace(inv.args)
	switch {
	case arg != "":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("message id %q is not a number: %w", arg, apperr.ErrValidation)
		}
		target = id
	case inv.msg.ReplyToMessage != nil:
		target = inv.msg.ReplyToMessage.MessageID
	default:
		return fmt.Errorf("give a message id or reply to the message: %w", apperr.ErrValidation)
	}
	if err := b.notifier.Delete(inv.chatID, target); err != nil {
		return fmt.Errorf("could not delete message %v: %w", target, apperr.ErrNotFound)
	}
	b.notifier.Delete(inv.chatID, inv.msg.MessageID)
	return nil
}
