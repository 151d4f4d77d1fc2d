package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/cmdargs"
	"github.com/alufers/paystat-bot/internal/ledger"
	"github.com/alufers/paystat-bot/internal/notify"
	"github.com/alufers/paystat-bot/internal/paytime"
	"github.com/alufers/paystat-bot/internal/settings"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// lookupLimit caps how many records one /lookup prints.
const lookupLimit = 10

func (b *Bot) cmdPaystat(ctx context.Context, inv *invocation) error {
	if err := b.requireChannel(inv, settings.ChannelPaystat, "pay stats"); err != nil {
		return err
	}
	if err := b.requireRole(inv, settings.RolePayer, settings.RoleTrialPayer); err != nil {
		return err
	}
	args, err := cmdargs.Parse(inv.args)
	if err != nil {
		return err
	}
	n, err := args.Ints(4, "total_claiming", "people_paid", "paytime_paid", "bonus_paid")
	if err != nil {
		return err
	}
	c := ledger.Candidate{TotalClaiming: n[0], PeoplePaid: n[1], PaytimePaid: n[2], BonusPaid: n[3]}
	if err := c.CheckCounts(); err != nil {
		return err
	}

	res := paytime.Resolve(b.now(inv.settings))
	c.PayDate = res.Date
	if !res.Ambiguous {
		c.PayTime = res.Slot
		return b.recordPay(inv, c)
	}

	// Waiting for the button press must not hold up the update loop.
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		slot, err := paytime.Await(ctx, res, &buttonChooser{b: b, inv: inv}, b.choiceTimeout)
		if err == nil {
			c.PayTime = slot
			err = b.recordPay(inv, c)
		}
		b.finish(inv, err)
	}()
	return errDeferred
}

// recordPay stores the record, posts its card and, after the last slot of
// the day, the daily (and on Sundays weekly) stats.
func (b *Bot) recordPay(inv *invocation, c ledger.Candidate) error {
	book, err := b.shelf.ForDate(c.PayDate)
	if err != nil {
		return err
	}
	rec, err := book.AddRecord(c)
	if err != nil {
		return err
	}
	b.metrics.RecordsAdded.Inc()
	b.metrics.AmountPaid.WithLabelValues("paytime").Add(float64(rec.PaytimePaid))
	b.metrics.AmountPaid.WithLabelValues("bonus").Add(float64(rec.BonusPaid))

	sent, err := b.notifier.Send(inv.chatID, notify.RecordCard(rec, userLabel(inv.user)))
	if err == nil {
		if err := book.AttachMessageReference(rec.RecordID, int64(sent.MessageID)); err != nil {
			b.log.Warn("could not attach card to record", zap.String("record_id", rec.RecordID), zap.Error(err))
		}
	}

	if rec.PayTime == paytime.LastSlot {
		b.postDailyStats(inv.settings, book, rec.PayDate)
		if d, _ := ledger.ParseDate(rec.PayDate); d.Weekday() == time.Sunday {
			b.postWeeklyStats(inv.settings, book, rec.PayDate)
		}
	}
	return nil
}

func (b *Bot) postDailyStats(s settings.Settings, book *ledger.Book, date string) {
	week, err := ledger.WeekStart(date)
	if err != nil {
		return
	}
	text := notify.DailyStats(date, book.DailyTotals(date), book.WeeklyTotals(week))
	b.notifier.Post(s.Channel(settings.ChannelAdminStats), settings.ChannelAdminStats, text)
}

func (b *Bot) postWeeklyStats(s settings.Settings, book *ledger.Book, date string) {
	week, err := ledger.WeekStart(date)
	if err != nil {
		return
	}
	text := notify.WeeklyStats(week, book.WeeklyTotals(week), true)
	b.notifier.Post(s.Channel(settings.ChannelAdminStats), settings.ChannelAdminStats, text)
}

// buttonChooser asks in the command's chat with one inline button per slot.
type buttonChooser struct {
	b   *Bot
	inv *invocation
}

func (c *buttonChooser) Choose(ctx context.Context, options []string) (paytime.Choice, error) {
	token := c.b.broker.Open(c.inv.user.ID)
	row := tgbotapi.NewInlineKeyboardRow()
	for _, o := range options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(o, fmt.Sprintf("/paytime %v %v", token, o)))
	}
	prompt, err := c.b.notifier.Keyboard(c.inv.chatID, c.inv.msg.MessageID,
		"This pay run is close to a slot boundary. Which pay time was it?",
		tgbotapi.NewInlineKeyboardMarkup(row))
	if err != nil {
		c.b.broker.Cancel(token)
		return paytime.Choice{}, err
	}
	choice, err := c.b.broker.Wait(ctx, token)
	c.b.notifier.Delete(c.inv.chatID, prompt.MessageID)
	return choice, err
}

var editKeys = []string{"total_claiming", "people_paid", "paytime_paid", "amount_paid", "bonus_paid", "pay_time"}

func parseEdit(args cmdargs.Args) (ledger.Edit, error) {
	if unknown := args.Unknown(editKeys...); len(unknown) > 0 {
		return ledger.Edit{}, fmt.Errorf("unknown fields: %v (allowed: %v): %w",
			strings.Join(unknown, ", "), strings.Join(editKeys, ", "), apperr.ErrValidation)
	}
	var (
		e   ledger.Edit
		err error
	)
	if e.TotalClaiming, err = args.Int("total_claiming"); err != nil {
		return e, err
	}
	if e.PeoplePaid, err = args.Int("people_paid"); err != nil {
		return e, err
	}
	if e.PaytimePaid, err = args.Int("paytime_paid"); err != nil {
		return e, err
	}
	if e.PaytimePaid == nil {
		if e.PaytimePaid, err = args.Int("amount_paid"); err != nil {
			return e, err
		}
	}
	if e.BonusPaid, err = args.Int("bonus_paid"); err != nil {
		return e, err
	}
	if pt := args.String("pay_time"); pt != nil {
		if !paytime.Valid(*pt) {
			return e, fmt.Errorf("pay_time %q is not one of %v: %w", *pt, strings.Join(paytime.Labels(), ", "), apperr.ErrValidation)
		}
		e.PayTime = pt
	}
	return e, nil
}

// bookFor finds the period holding recordID, looking at this month and then
// the previous one.
func (b *Bot) bookFor(s settings.Settings, recordID string) (*ledger.Book, error) {
	now := b.now(s)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, t := range []time.Time{now, first.AddDate(0, 0, -1)} {
		book, err := b.shelf.At(t)
		if err != nil {
			return nil, err
		}
		if _, err := book.FindByID(recordID); err == nil {
			return book, nil
		}
	}
	return nil, fmt.Errorf("no record found with ID %v: %w", recordID, apperr.ErrNotFound)
}

func (b *Bot) cmdEditpay(ctx context.Context, inv *invocation) error {
	if err := b.requireRole(inv, settings.RoleStatEdit); err != nil {
		return err
	}
	args, err := cmdargs.Parse(inv.args)
	if err != nil {
		return err
	}
	if len(args.Positional) != 1 {
		return fmt.Errorf("usage: /editpay record_id key=value...: %w", apperr.ErrValidation)
	}
	recordID := args.Positional[0]
	e, err := parseEdit(args)
	if err != nil {
		return err
	}
	book, err := b.bookFor(inv.settings, recordID)
	if err != nil {
		return err
	}
	rec, changes, err := book.EditRecord(recordID, e)
	if err != nil {
		return err
	}
	b.metrics.RecordsEdited.Inc()

	card := notify.EditCard(rec, changes, userLabel(inv.user))
	cardChat := inv.settings.Channel(settings.ChannelPaystat)
	if cardChat == 0 {
		cardChat = inv.chatID
	}
	if rec.MessageID != nil && b.notifier.Edit(cardChat, int(*rec.MessageID), card) == nil {
		return nil
	}
	sent, err := b.notifier.Send(cardChat, card)
	if err != nil {
		return nil
	}
	if err := book.AttachMessageReference(rec.RecordID, int64(sent.MessageID)); err != nil {
		b.log.Warn("could not re-attach card to record", zap.String("record_id", rec.RecordID), zap.Error(err))
	}
	return nil
}

// statsDate is the command's date argument, today when omitted.
func (b *Bot) statsDate(inv *invocation) (string, error) {
	date := strings.TrimSpace(inv.args)
	if date == "" {
		return b.now(inv.settings).Format(ledger.DateLayout), nil
	}
	if _, err := ledger.ParseDate(date); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, apperr.ErrValidation)
	}
	return date, nil
}

func (b *Bot) cmdDaystat(ctx context.Context, inv *invocation) error {
	if err := b.requireChannel(inv, settings.ChannelAdminStats, "admin stats"); err != nil {
		return err
	}
	date, err := b.statsDate(inv)
	if err != nil {
		return err
	}
	book, err := b.shelf.ForDate(date)
	if err != nil {
		return err
	}
	week, _ := ledger.WeekStart(date)
	b.notifier.Send(inv.chatID, notify.DailyStats(date, book.DailyTotals(date), book.WeeklyTotals(week)))
	return nil
}

func (b *Bot) cmdWeekstat(ctx context.Context, inv *invocation) error {
	if err := b.requireChannel(inv, settings.ChannelAdminStats, "admin stats"); err != nil {
		return err
	}
	date, err := b.statsDate(inv)
	if err != nil {
		return err
	}
	book, err := b.shelf.ForDate(date)
	if err != nil {
		return err
	}
	week, _ := ledger.WeekStart(date)
	b.notifier.Send(inv.chatID, notify.WeeklyStats(week, book.WeeklyTotals(week), false))
	return nil
}

var lookupKeys = []string{"message_id", "record_id", "pay_date", "pay_time", "min_amount", "max_amount", "min_bonus", "max_bonus"}

func parseCriteria(args cmdargs.Args) (ledger.Criteria, error) {
	var (
		c   ledger.Criteria
		err error
	)
	if unknown := args.Unknown(lookupKeys...); len(unknown) > 0 {
		return c, fmt.Errorf("unknown fields: %v (allowed: %v): %w",
			strings.Join(unknown, ", "), strings.Join(lookupKeys, ", "), apperr.ErrValidation)
	}
	if v := args.String("message_id"); v != nil {
		id, err := ledger.ParseMessageID(*v)
		if err != nil {
			return c, err
		}
		c.MessageID = &id
	}
	if v := args.String("record_id"); v != nil {
		c.RecordID = *v
	}
	if v := args.String("pay_date"); v != nil {
		c.PayDate = *v
	}
	if v := args.String("pay_time"); v != nil {
		c.PayTime = *v
	}
	if c.MinAmount, err = args.Int("min_amount"); err != nil {
		return c, err
	}
	if c.MaxAmount, err = args.Int("max_amount"); err != nil {
		return c, err
	}
	if c.MinBonus, err = args.Int("min_bonus"); err != nil {
		return c, err
	}
	if c.MaxBonus, err = args.Int("max_bonus"); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.Empty() {
		return c, fmt.Errorf("give at least one of %v: %w", strings.Join(lookupKeys, ", "), apperr.ErrValidation)
	}
	return c, nil
}

func (b *Bot) cmdLookup(ctx context.Context, inv *invocation) error {
	if err := b.requireRole(inv, settings.RoleFoundation); err != nil {
		return err
	}
	args, err := cmdargs.Parse(inv.args)
	if err != nil {
		return err
	}
	c, err := parseCriteria(args)
	if err != nil {
		return err
	}
	var book *ledger.Book
	if c.PayDate != "" {
		book, err = b.shelf.ForDate(c.PayDate)
	} else {
		book, err = b.shelf.At(b.now(inv.settings))
	}
	if err != nil {
		return err
	}
	recs, err := book.Search(c)
	if err != nil {
		return err
	}
	b.notifier.Reply(inv.chatID, inv.msg.MessageID, notify.LookupSummary(len(recs)))
	for i, rec := range recs {
		if i == lookupLimit {
			b.notifier.Send(inv.chatID, fmt.Sprintf("<i>%d more not shown, narrow the search.</i>", len(recs)-lookupLimit))
			break
		}
		b.notifier.Send(inv.chatID, notify.LookupResult(rec))
	}
	return nil
}
