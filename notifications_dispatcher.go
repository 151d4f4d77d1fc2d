package main

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier sends HTML messages. Delivery failures are logged here and never
// reach the ledger or the void tracker.
type Notifier struct {
	api Sender
	log *zap.Logger
}

func (n *Notifier) send(c tgbotapi.Chattable, chatID int64) (tgbotapi.Message, error) {
	msg, err := n.api.Send(c)
	if err != nil {
		n.log.Warn("error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return msg, err
}

func (n *Notifier) Send(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return n.send(msg, chatID)
}

func (n *Notifier) Reply(chatID int64, replyTo int, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	return n.send(msg, chatID)
}

func (n *Notifier) Keyboard(chatID int64, replyTo int, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	msg.ReplyMarkup = keyboard
	return n.send(msg, chatID)
}

// Post sends text to a configured chat. An unconfigured chat (id 0) is
// logged and skipped.
func (n *Notifier) Post(chatID int64, key, text string) (tgbotapi.Message, error) {
	if chatID == 0 {
		n.log.Warn("chat not configured, notification dropped", zap.String("chat", key))
		return tgbotapi.Message{}, fmt.Errorf("chat %v is not configured", key)
	}
	return n.Send(chatID, text)
}

func (n *Notifier) Edit(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := n.api.Send(edit); err != nil {
		n.log.Info("could not edit message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
		return err
	}
	return nil
}

func (n *Notifier) Delete(chatID int64, messageID int) error {
	if _, err := n.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		n.log.Warn("error deleting message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
		return err
	}
	return nil
}

func (n *Notifier) Document(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	_, err := n.send(doc, chatID)
	return err
}

func (n *Notifier) AnswerCallback(id, text string) {
	if _, err := n.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		n.log.Warn("error answering callback", zap.Error(err))
	}
}
