package main

import (
	"fmt"
	"html"

	"github.com/alufers/paystat-bot/internal/botstate"
	"github.com/alufers/paystat-bot/internal/notify"
	"github.com/alufers/paystat-bot/internal/settings"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const autoReplyText = "Your message has been passed on. Someone will reply as soon as they can."

func messageBody(msg *tgbotapi.Message) string {
	switch {
	case msg.Text != "":
		return msg.Text
	case msg.Caption != "":
		return msg.Caption
	}
	return "[non-text message]"
}

// relayInbound forwards a private message to the staff chat.
func (b *Bot) relayInbound(s settings.Settings, msg *tgbotapi.Message) {
	if !b.throttle.Allow(msg.From.ID, b.clock.Now()) {
		b.notifier.Send(msg.Chat.ID, "You are sending messages too quickly. Please slow down.")
		return
	}
	staff := s.Channel(settings.ChannelRelayStaff)
	if staff == 0 {
		b.log.Warn("relay chat not configured, private message dropped", zap.Int64("from_id", msg.From.ID))
		return
	}
	text := fmt.Sprintf("<b>%v</b> (<code>%d</code>):\n%v",
		html.EscapeString(userLabel(msg.From)), msg.From.ID, html.EscapeString(messageBody(msg)))
	sent, err := b.notifier.Send(staff, text)
	if err != nil {
		return
	}
	if err := b.state.RecordRelay(staff, sent.MessageID, msg.Chat.ID, msg.From.UserName); err != nil {
		b.log.Warn("error storing relay", zap.Error(err))
		return
	}
	b.autoReply.Arm(msg.Chat.ID)
}

// relayOutbound sends a staff reply back to whoever the replied-to message
// was relayed from.
func (b *Bot) relayOutbound(msg *tgbotapi.Message) {
	target, err := b.state.RelayTarget(msg.Chat.ID, msg.ReplyToMessage.MessageID)
	if err != nil {
		return
	}
	b.autoReply.Answered(target.UserChatID)
	text := fmt.Sprintf("<b>Reply from %v:</b>\n%v",
		html.EscapeString(userLabel(msg.From)), html.EscapeString(messageBody(msg)))
	if _, err := b.notifier.Send(target.UserChatID, text); err != nil {
		b.notifier.Reply(msg.Chat.ID, msg.MessageID, "Could not deliver the reply to the user.")
		return
	}
	// later messages in the thread can reply to the staff reply too
	if err := b.state.RecordRelay(msg.Chat.ID, msg.MessageID, target.UserChatID, target.UserName); err != nil {
		b.log.Warn("error storing relay", zap.Error(err))
	}
}

func (b *Bot) sendAutoReply(userChatID int64) {
	b.notifier.Send(userChatID, autoReplyText)
}

// mentionsUser reports whether msg mentions or replies to userID.
func mentionsUser(msg *tgbotapi.Message, userID int64) bool {
	if userID == 0 {
		return false
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == userID {
		return true
	}
	entities := append(append([]tgbotapi.MessageEntity{}, msg.Entities...), msg.CaptionEntities...)
	for _, e := range entities {
		if e.Type == "text_mention" && e.User != nil && e.User.ID == userID {
			return true
		}
	}
	return false
}

// logMention copies messages mentioning the watched user to the mention log.
func (b *Bot) logMention(s settings.Settings, msg *tgbotapi.Message) {
	target := s.User(settings.UserTarget)
	if msg.From.ID == target || !mentionsUser(msg, target) {
		return
	}
	ch := s.Channel(settings.ChannelMentionLog)
	if ch == 0 {
		return
	}
	chat := msg.Chat.Title
	if chat == "" {
		chat = fmt.Sprint(msg.Chat.ID)
	}
	b.notifier.Send(ch, notify.MentionLog(userLabel(msg.From), chat, messageBody(msg), msg.MessageID))
}

// handleMemberChange mirrors joins, leaves and bans to the audit chat. When
// the bot itself removed the watched user, it leaves the chat.
func (b *Bot) handleMemberChange(u *tgbotapi.ChatMemberUpdated) {
	s := b.settings.Load()
	member := u.NewChatMember.User
	if member == nil {
		return
	}

	var title string
	switch u.NewChatMember.Status {
	case "kicked":
		title = "Member Banned"
	case "left":
		title = "Member Left"
	case "member":
		if u.OldChatMember.Status == "left" || u.OldChatMember.Status == "kicked" {
			title = "Member Joined"
		}
	}
	if title == "" {
		return
	}

	entry := botstate.AuditEntry{
		Kind:     "member",
		UserID:   member.ID,
		UserName: userLabel(member),
		Command:  title,
		ChatID:   u.Chat.ID,
	}
	if err := b.state.RecordAudit(entry); err != nil {
		b.log.Warn("error storing audit entry", zap.Error(err))
	}
	if ch := s.Channel(settings.ChannelAuditLog); ch != 0 {
		b.notifier.Send(ch, notify.MemberChange(title, userLabel(member), member.ID,
			fmt.Sprintf("Chat: %v", u.Chat.Title),
			fmt.Sprintf("By: %v", userLabel(&u.From))))
	}

	removed := u.NewChatMember.Status == "kicked" || u.NewChatMember.Status == "left"
	target := s.User(settings.UserTarget)
	if removed && target != 0 && member.ID == target && u.From.ID == b.self && member.ID != b.self {
		b.log.Info("watched user removed by the bot, leaving chat", zap.Int64("chat_id", u.Chat.ID))
		if err := b.leaveChat(u.Chat.ID); err != nil {
			b.log.Warn("error leaving chat", zap.Int64("chat_id", u.Chat.ID), zap.Error(err))
		}
	}
}
