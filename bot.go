package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/botstate"
	"github.com/alufers/paystat-bot/internal/notify"
	"github.com/alufers/paystat-bot/internal/paytime"
	"github.com/alufers/paystat-bot/internal/relay"
	"github.com/alufers/paystat-bot/internal/settings"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// errDeferred is returned by handlers that finish the command in the
// background and report the result themselves.
var errDeferred = errors.New("command continues in background")

var errForbidden = fmt.Errorf("you do not have permission to use this command: %w", apperr.ErrValidation)

// Bot is the Telegram surface on top of App.
type Bot struct {
	*App
	api       Sender
	notifier  *Notifier
	self      int64
	broker    *paytime.Broker
	throttle  *relay.Throttle
	autoReply *relay.AutoReply

	choiceTimeout time.Duration
	commands      map[string]commandHandler

	// in-flight pay time confirmations
	wg sync.WaitGroup
}

// invocation is one command as received.
type invocation struct {
	command  string
	args     string
	chatID   int64
	msg      *tgbotapi.Message
	user     *tgbotapi.User
	settings settings.Settings
}

type commandHandler func(ctx context.Context, inv *invocation) error

func newBot(app *App, api Sender, self int64) *Bot {
	b := &Bot{
		App:           app,
		api:           api,
		notifier:      &Notifier{api: api, log: app.log.Named("notifier")},
		self:          self,
		broker:        paytime.NewBroker(),
		throttle:      relay.NewThrottle(relay.MessageLimit, relay.TimeWindow),
		choiceTimeout: paytime.ChoiceTimeout,
	}
	b.autoReply = relay.NewAutoReply(relay.AutoReplyDelay, b.sendAutoReply)
	b.commands = map[string]commandHandler{
		"paystat":  b.cmdPaystat,
		"editpay":  b.cmdEditpay,
		"daystat":  b.cmdDaystat,
		"weekstat": b.cmdWeekstat,
		"lookup":   b.cmdLookup,
		"payvoid":  b.cmdPayvoid,
		"backup":   b.cmdBackup,
		"grant":    b.cmdGrant,
		"revoke":   b.cmdRevoke,
		"leave":    b.cmdLeave,
		"delete":   b.cmdDelete,
	}
	return b
}

var botCommands = []tgbotapi.BotCommand{
	{Command: "paystat", Description: "Record a pay run: total_claiming people_paid paytime_paid bonus_paid"},
	{Command: "editpay", Description: "Edit a pay record: record_id key=value..."},
	{Command: "daystat", Description: "Daily totals for YYYY-MM-DD"},
	{Command: "weekstat", Description: "Weekly totals for the week containing YYYY-MM-DD"},
	{Command: "lookup", Description: "Find pay records: key=value..."},
	{Command: "payvoid", Description: "Record a void against a username"},
	{Command: "backup", Description: "Back up the current pay ledger now"},
}

// Wait blocks until pending pay time confirmations are done.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func userLabel(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprint(u.ID)
	}
	return name
}

func (b *Bot) isOwner(u *tgbotapi.User) bool {
	return u != nil && b.cfg.OwnerID != 0 && u.ID == b.cfg.OwnerID
}

func (b *Bot) requireOwner(inv *invocation) error {
	if !b.isOwner(inv.user) {
		return errForbidden
	}
	return nil
}

// requireRole passes the owner and anyone holding one of the role keys.
func (b *Bot) requireRole(inv *invocation, keys ...string) error {
	if b.isOwner(inv.user) {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = inv.settings.Role(k)
	}
	ok, err := b.state.HasRole(inv.user.ID, names...)
	if err != nil {
		return err
	}
	if !ok {
		return errForbidden
	}
	return nil
}

func (b *Bot) requireChannel(inv *invocation, key string, what string) error {
	allowed := inv.settings.Channel(key)
	if allowed == 0 || inv.chatID != allowed {
		return fmt.Errorf("this command can only be used in the configured %v chat: %w", what, apperr.ErrValidation)
	}
	return nil
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.ChatMember != nil:
		b.handleMemberChange(update.ChatMember)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	b.log.Debug("message",
		zap.String("from", msg.From.UserName),
		zap.Int64("from_id", msg.From.ID),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.runCommand(ctx, &invocation{
			command:  strings.ToLower(msg.Command()),
			args:     msg.CommandArguments(),
			chatID:   msg.Chat.ID,
			msg:      msg,
			user:     msg.From,
			settings: b.settings.Load(),
		})
		return
	}

	s := b.settings.Load()
	if msg.Chat.IsPrivate() {
		b.relayInbound(s, msg)
		return
	}
	if msg.Chat.ID == s.Channel(settings.ChannelRelayStaff) && msg.ReplyToMessage != nil {
		b.relayOutbound(msg)
		return
	}
	b.logMention(s, msg)
}

func (b *Bot) runCommand(ctx context.Context, inv *invocation) {
	handler, ok := b.commands[inv.command]
	if !ok {
		return
	}
	b.log.Info("command", zap.String("command", inv.command), zap.String("args", inv.args), zap.Int64("user_id", inv.user.ID))
	b.audit(inv, nil)
	err := handler(ctx, inv)
	if err == errDeferred {
		return
	}
	b.finish(inv, err)
}

// finish reports the result of a command that has run to completion.
func (b *Bot) finish(inv *invocation, err error) {
	switch {
	case err == nil:
		b.metrics.Commands.WithLabelValues(inv.command, "ok").Inc()
	case apperr.IsUserError(err):
		b.metrics.Commands.WithLabelValues(inv.command, "rejected").Inc()
		b.notifier.Reply(inv.chatID, inv.msg.MessageID, "Error: "+html.EscapeString(userMessage(err)))
	default:
		b.metrics.Commands.WithLabelValues(inv.command, "error").Inc()
		b.log.Error("command failed", zap.String("command", inv.command), zap.Error(err))
		b.notifier.Reply(inv.chatID, inv.msg.MessageID, "Something went wrong, nothing was changed. The error has been logged.")
	}
	if err != nil {
		b.audit(inv, err)
	}
}

// userMessage drops the trailing error kind, which means nothing to users.
func userMessage(err error) string {
	text := err.Error()
	for _, kind := range []error{apperr.ErrValidation, apperr.ErrNotFound, apperr.ErrDuplicate, apperr.ErrCancelled} {
		if errors.Is(err, kind) {
			text = strings.TrimSuffix(text, ": "+kind.Error())
		}
	}
	return text
}

// audit stores a command use (err == nil) or failure and mirrors it to the
// audit chat.
func (b *Bot) audit(inv *invocation, err error) {
	entry := botstate.AuditEntry{
		Kind:     "command",
		UserID:   inv.user.ID,
		UserName: userLabel(inv.user),
		Command:  inv.command,
		ChatID:   inv.chatID,
		Args:     inv.args,
	}
	event := notify.AuditEvent{
		Title:   "Command Used",
		User:    entry.UserName,
		UserID:  entry.UserID,
		Command: entry.Command,
		ChatID:  entry.ChatID,
		Args:    entry.Args,
	}
	if err != nil {
		entry.Kind = "error"
		entry.Error = err.Error()
		event.Title = "Command Error"
		event.Err = err.Error()
	}
	if err := b.state.RecordAudit(entry); err != nil {
		b.log.Warn("error storing audit entry", zap.Error(err))
	}
	if ch := inv.settings.Channel(settings.ChannelAuditLog); ch != 0 {
		b.notifier.Send(ch, notify.Audit(event))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}
	// callback data is a command line, e.g. "/paytime <token> 7-8 PM"
	command, args, _ := strings.Cut(q.Data, " ")
	command = strings.TrimPrefix(command, "/")
	b.log.Debug("callback", zap.String("from", q.From.UserName), zap.String("data", q.Data))

	switch command {
	case "paytime":
		inv := &invocation{
			command:  command,
			args:     args,
			chatID:   q.Message.Chat.ID,
			msg:      q.Message,
			user:     q.From,
			settings: b.settings.Load(),
		}
		if err := b.requireRole(inv, settings.RolePayer, settings.RoleTrialPayer); err != nil {
			b.notifier.AnswerCallback(q.ID, "You do not have permission to choose the pay time.")
			return
		}
		token, slot, _ := strings.Cut(args, " ")
		switch err := b.broker.Deliver(token, q.From.ID, slot); {
		case errors.Is(err, paytime.ErrNotAsker):
			b.notifier.AnswerCallback(q.ID, "Only the person who sent /paystat can choose the pay time.")
			return
		case err != nil:
			b.notifier.AnswerCallback(q.ID, "This choice is no longer open.")
			return
		}
		b.notifier.AnswerCallback(q.ID, slot+" selected.")
	default:
		b.notifier.AnswerCallback(q.ID, "")
	}
}
