package notify

import (
	"testing"
	"time"

	"github.com/alufers/paystat-bot/internal/ledger"
	"github.com/alufers/paystat-bot/internal/voids"
	"github.com/stretchr/testify/assert"
)

func sampleRecord() ledger.PayRecord {
	msg := int64(314)
	return ledger.PayRecord{
		RecordID: "12345", PayDate: "2026-10-16", PayTime: "7-8 PM",
		TotalClaiming: 10, PeoplePaid: 8, PeopleDenied: 2,
		PaytimePaid: 400, BonusPaid: 50, TotalPaid: 450, MessageID: &msg,
	}
}

func TestRecordCard(t *testing.T) {
	got := RecordCard(sampleRecord(), "alice")
	assert.Equal(t, "<b>2026-10-16</b>\n"+
		"Pay Time: <b>7-8 PM</b>\n"+
		"Total Claiming: <b>10</b>\n"+
		"People Paid: <b>8</b>\n"+
		"People Denied: <b>2</b>\n"+
		"Total Paid: <b>450c</b>\n"+
		"Record ID: <b>12345</b>\n"+
		"\n<i>Recorded by alice</i>", got)
}

func TestEditCardListsChanges(t *testing.T) {
	got := EditCard(sampleRecord(), []ledger.Change{{Field: "People Paid", Old: "9", New: "8"}}, "bob")
	assert.Contains(t, got, "Changes:\nPeople Paid: 9 -&gt; 8\n")
	assert.Contains(t, got, "<i>Updated by bob</i>")

	got = EditCard(sampleRecord(), nil, "bob")
	assert.Contains(t, got, "No changes made.")
}

func TestDailyStats(t *testing.T) {
	got := DailyStats("2026-10-16",
		ledger.Totals{PeoplePaid: 3, PeopleDenied: 1, PaytimePaid: 30, BonusPaid: 5, TotalPaid: 35},
		ledger.Totals{TotalPaid: 900})
	assert.Contains(t, got, "<b>Daily Stats</b>")
	assert.Contains(t, got, "Summary for 2026-10-16:")
	assert.Contains(t, got, "Running Total Paid: <b>35c</b>")
	assert.Contains(t, got, "Running Weekly Total Paid: <b>900c</b>")
}

func TestWeeklyStatsFooter(t *testing.T) {
	assert.Contains(t, WeeklyStats("2026-10-12", ledger.Totals{}, true), "End of Week Summary")
	assert.NotContains(t, WeeklyStats("2026-10-12", ledger.Totals{}, false), "End of Week Summary")
}

func TestVoidOutcome(t *testing.T) {
	got := VoidOutcome(voids.Outcome{Kind: voids.VoidRecorded, Label: "Alice", Count: 2}, "@payers", time.UTC)
	assert.Equal(t, "<b>Void Recorded</b>\nUser: <b>Alice</b>\nVoids: <b>2</b>", got)

	until := time.Date(2026, 10, 17, 11, 0, 0, 0, time.UTC)
	got = VoidOutcome(voids.Outcome{Kind: voids.BanApplied, Label: "Alice", BanUntil: until}, "@payers", time.UTC)
	assert.Equal(t, "@payers\n<b>Pay Ban</b>\nUser: <b>Alice</b>\nUntil: <b>Sat 17 Oct 2026 11:00 UTC</b>", got)
}

func TestLookupResult(t *testing.T) {
	got := LookupResult(sampleRecord())
	assert.Contains(t, got, "Message ID: <b>314</b>")
	assert.Contains(t, got, "Use /editpay 12345")

	rec := sampleRecord()
	rec.RecordID, rec.MessageID = "", nil
	got = LookupResult(rec)
	assert.Contains(t, got, "Record ID: <b>XXXXX</b>")
	assert.Contains(t, got, "Message ID: <b>N/A</b>")
	assert.Contains(t, got, "unavailable for edit")
}

func TestLookupSummary(t *testing.T) {
	assert.Equal(t, "<b>No matching records found</b>", LookupSummary(0))
	assert.Equal(t, "<b>1 result</b>", LookupSummary(1))
	assert.Equal(t, "<b>4 results</b>", LookupSummary(4))
}

func TestAuditEscapesArguments(t *testing.T) {
	got := Audit(AuditEvent{Title: "Command Error", User: "eve", UserID: 7, Command: "paystat", ChatID: -100, Args: "<script>", Err: "boom"})
	assert.Contains(t, got, "<pre>&lt;script&gt;</pre>")
	assert.Contains(t, got, "Error: <b>boom</b>")
	assert.Contains(t, got, "User ID: 7")

	got = Audit(AuditEvent{Title: "Command Used", Command: "daystat"})
	assert.Contains(t, got, "No arguments")
}

func TestMentionLog(t *testing.T) {
	got := MentionLog("mallory", "Pay Chat", "hey @boss <3", 99)
	assert.Contains(t, got, "hey @boss &lt;3")
	assert.Contains(t, got, "Message ID: 99")
}
