// Package notify renders ledger and tracker state as Telegram HTML messages.
// Everything here is a pure function of its arguments.
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/alufers/paystat-bot/internal/ledger"
	"github.com/alufers/paystat-bot/internal/voids"
)

type card struct {
	b strings.Builder
}

func newCard(title string) *card {
	c := &card{}
	fmt.Fprintf(&c.b, "<b>%v</b>\n", html.EscapeString(title))
	return c
}

func (c *card) line(s string) *card {
	c.b.WriteString(s)
	c.b.WriteString("\n")
	return c
}

func (c *card) field(name string, value any) *card {
	fmt.Fprintf(&c.b, "%v: <b>%v</b>\n", name, html.EscapeString(fmt.Sprint(value)))
	return c
}

func (c *card) footer(s string) *card {
	fmt.Fprintf(&c.b, "\n<i>%v</i>\n", html.EscapeString(s))
	return c
}

func (c *card) String() string {
	return strings.TrimRight(c.b.String(), "\n")
}

func coins(v int) string {
	return fmt.Sprintf("%dc", v)
}

// RecordCard is the confirmation posted in the pay chat for a new record.
func RecordCard(rec ledger.PayRecord, recordedBy string) string {
	return newCard(rec.PayDate).
		field("Pay Time", rec.PayTime).
		field("Total Claiming", rec.TotalClaiming).
		field("People Paid", rec.PeoplePaid).
		field("People Denied", rec.PeopleDenied).
		field("Total Paid", coins(rec.TotalPaid)).
		field("Record ID", rec.RecordID).
		footer("Recorded by " + recordedBy).
		String()
}

// EditCard replaces a record's confirmation after an edit.
func EditCard(rec ledger.PayRecord, changes []ledger.Change, updatedBy string) string {
	c := newCard(rec.PayDate)
	if len(changes) == 0 {
		c.line("No changes made.")
	} else {
		c.line("Changes:")
		for _, ch := range changes {
			c.line(html.EscapeString(ch.String()))
		}
	}
	c.line("")
	return c.
		field("Pay Time", rec.PayTime).
		field("Total Claiming", rec.TotalClaiming).
		field("People Paid", rec.PeoplePaid).
		field("People Denied", rec.PeopleDenied).
		field("Total Paid", coins(rec.TotalPaid)).
		field("Record ID", rec.RecordID).
		footer("Updated by " + updatedBy).
		String()
}

func DailyStats(date string, daily, weekly ledger.Totals) string {
	return newCard("Daily Stats").
		line(html.EscapeString(fmt.Sprintf("Summary for %v:", date))).
		field("Total People Paid", daily.PeoplePaid).
		field("Total People Denied", daily.PeopleDenied).
		field("Total Amount Paid Out", coins(daily.PaytimePaid)).
		field("Total Bonus Paid", coins(daily.BonusPaid)).
		field("Running Total Paid", coins(daily.TotalPaid)).
		field("Running Weekly Total Paid", coins(weekly.TotalPaid)).
		String()
}

// WeeklyStats summarises a week. endOfWeek adds the end-of-week footer used
// for the automatic Sunday summary.
func WeeklyStats(weekStart string, weekly ledger.Totals, endOfWeek bool) string {
	c := newCard("Weekly Stats").
		line(html.EscapeString(fmt.Sprintf("Summary for the week starting %v:", weekStart))).
		field("Total People Paid", weekly.PeoplePaid).
		field("Total People Denied", weekly.PeopleDenied).
		field("Total Amount Paid Out", coins(weekly.PaytimePaid)).
		field("Total Bonus Paid", coins(weekly.BonusPaid)).
		field("Total Paid", coins(weekly.TotalPaid))
	if endOfWeek {
		c.footer("End of Week Summary")
	}
	return c.String()
}

// VoidOutcome announces a void or a ban. mentions is prepended to ban
// announcements so the payers get pinged.
func VoidOutcome(o voids.Outcome, mentions string, loc *time.Location) string {
	switch o.Kind {
	case voids.BanApplied, voids.BanExtended:
		c := &card{}
		if mentions != "" {
			c.line(mentions)
		}
		c.line("<b>Pay Ban</b>")
		return c.
			field("User", o.Label).
			field("Until", o.BanUntil.In(loc).Format("Mon 2 Jan 2006 15:04 MST")).
			String()
	default:
		return newCard("Void Recorded").
			field("User", o.Label).
			field("Voids", o.Count).
			String()
	}
}

func LookupResult(rec ledger.PayRecord) string {
	id := rec.RecordID
	if id == "" {
		id = "XXXXX"
	}
	msg := "N/A"
	if rec.MessageID != nil {
		msg = fmt.Sprint(*rec.MessageID)
	}
	c := newCard("Pay Record Lookup Result").
		field("Record ID", id).
		field("Pay Date", rec.PayDate).
		field("Pay Time", rec.PayTime).
		field("Total Claiming", rec.TotalClaiming).
		field("People Paid", rec.PeoplePaid).
		field("People Denied", rec.PeopleDenied).
		field("Amount Paid", coins(rec.PaytimePaid)).
		field("Bonus Paid", coins(rec.BonusPaid)).
		field("Message ID", msg)
	if rec.RecordID != "" {
		c.footer(fmt.Sprintf("Use /editpay %v to change this record", rec.RecordID))
	} else {
		c.footer("Record ID is unavailable for edit")
	}
	return c.String()
}

func LookupSummary(n int) string {
	if n == 0 {
		return "<b>No matching records found</b>"
	}
	if n == 1 {
		return "<b>1 result</b>"
	}
	return fmt.Sprintf("<b>%d results</b>", n)
}

// AuditEvent is one mirrored command use or error.
type AuditEvent struct {
	Title   string
	User    string
	UserID  int64
	Command string
	ChatID  int64
	Args    string
	Err     string
}

func Audit(e AuditEvent) string {
	args := e.Args
	if args == "" {
		args = "No arguments"
	}
	c := newCard(e.Title).
		field("User", e.User).
		field("Command", "/"+e.Command).
		field("Chat", e.ChatID).
		line("Arguments:").
		line("<pre>" + html.EscapeString(args) + "</pre>")
	if e.Err != "" {
		c.field("Error", e.Err)
	}
	return c.footer(fmt.Sprintf("User ID: %v", e.UserID)).String()
}

func MentionLog(author, chat, text string, messageID int) string {
	return newCard("Target User Mentioned").
		field("Author", author).
		field("Chat", chat).
		line("").
		line("Message:").
		line(html.EscapeString(text)).
		footer(fmt.Sprintf("Message ID: %v", messageID)).
		String()
}

func BackupCreated(period, stamp string) string {
	return html.EscapeString(fmt.Sprintf("Backup created for %v at %v.", period, stamp))
}

func MemberChange(title, user string, userID int64, lines ...string) string {
	c := newCard(title).field("User", user)
	for _, l := range lines {
		c.line(html.EscapeString(l))
	}
	return c.footer(fmt.Sprintf("User ID: %v", userID)).String()
}
