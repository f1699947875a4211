package action

import (
	"context"
	"testing"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, h *harness, text string) {
	t.Helper()
	require.NoError(t, h.engine.HandleCommand(context.Background(), CommandEvent{
		Text: text, ActorID: "U1", ActorName: "alice",
	}))
}

func decide(t *testing.T, h *harness, p Proposal, accepted bool) {
	t.Helper()
	require.NoError(t, h.engine.HandleDecision(context.Background(), Decision{
		Proposal: p, Accepted: accepted, CallbackRef: "cb-1", ResponderID: p.ActorID,
	}))
}

func TestAdd_ProposeAndAccept(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21:2020-05-23 8")

	require.Len(t, h.msg.prompts, 1)
	assert.Empty(t, h.msg.messages)
	assert.Empty(t, h.repo.created, "nothing is written before the decision")

	p := h.msg.prompts[0]
	assert.Equal(t, command.Add, p.Kind)
	assert.Equal(t, "U1", p.ActorID)
	assert.Equal(t, "alice", p.ActorName)
	assert.Equal(t, "vab", p.Reason)
	assert.Equal(t, "2020-05-21:2020-05-23", p.DateSpec)
	require.True(t, p.Hours.Valid)
	assert.Equal(t, "8", p.Hours.Decimal.String())

	decide(t, h, p, true)

	require.Len(t, h.repo.created, 3)
	for _, e := range h.repo.created {
		assert.Equal(t, "vab", e.Reason)
		assert.Equal(t, "8", e.Hours.String())
		assert.Equal(t, "U1", e.UserID)
		assert.Equal(t, "alice", e.UserName)
	}
	assert.Equal(t, []string{"2020-05-21", "2020-05-22", "2020-05-23"}, h.repo.createdDates())
	assert.Equal(t, []string{"cb-1"}, h.msg.acks)
	assert.Contains(t, h.msg.lastText(), "Added 3 of 3")
	assert.Equal(t, "U1", h.msg.messages[0].Recipient)
}

func TestAdd_LockedMonth(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.locks = []model.Lock{{UserID: "U1", Month: "2020-05"}}

	send(t, h, "add vab 2020-05-21:2020-05-23 8")

	assert.Empty(t, h.msg.prompts)
	assert.Empty(t, h.repo.created)
	assert.Contains(t, h.msg.lastText(), "2020-05 is locked")
}

func TestAdd_LockBackendFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.locksErr = errBackend

	send(t, h, "add vab 2020-05-21 8")

	assert.Empty(t, h.msg.prompts)
	assert.Contains(t, h.msg.lastText(), "Could not check locks for 2020-05-21")
}

func TestAdd_PartialFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.failCreate = map[string]bool{"2020-05-22": true}

	send(t, h, "add vab 2020-05-21:2020-05-23 8")
	require.Len(t, h.msg.prompts, 1)
	decide(t, h, h.msg.prompts[0], true)

	assert.Equal(t, []string{"2020-05-21", "2020-05-23"}, h.repo.createdDates())
	text := h.msg.lastText()
	assert.Contains(t, text, "Added 2 of 3")
	assert.Contains(t, text, "Failed: 2020-05-22")
}

func TestAdd_Rejected(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add sjuk today")
	require.Len(t, h.msg.prompts, 1)
	decide(t, h, h.msg.prompts[0], false)

	assert.Empty(t, h.repo.created)
	assert.Equal(t, "Action canceled.", h.msg.lastText())
}

func TestAdd_TodayIsPinnedAndHoursDefault(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add sjuk today")

	require.Len(t, h.msg.prompts, 1)
	p := h.msg.prompts[0]
	assert.Equal(t, "2020-05-21", p.DateSpec)
	assert.Equal(t, "8", p.Hours.Decimal.String())
}

func TestAdd_ZeroDefaultHoursKept(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultHours = decimal.Zero
	h := newHarness(t, cfg)

	send(t, h, "add intern today")

	require.Len(t, h.msg.prompts, 1)
	assert.Equal(t, "0", h.msg.prompts[0].Hours.Decimal.String())
}

func TestAdd_FractionalHoursKept(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21 4.5")
	require.Len(t, h.msg.prompts, 1)
	decide(t, h, h.msg.prompts[0], true)

	require.Len(t, h.repo.created, 1)
	assert.Equal(t, "4.5", h.repo.created[0].Hours.String())
}

func TestAdd_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"invalid reason", "add party 2020-05-21 8", "Reason party is not valid"},
		{"bad hours", "add vab 2020-05-21 eight", "Could not parse hours: eight"},
		{"bad date", "add vab 2020-5-21 8", "Could not parse date 2020-5-21"},
		{"reversed range", "add vab 2020-05-23:2020-05-21 8", "Could not parse date 2020-05-23:2020-05-21"},
		{"too few args", "add vab", "Wrong number of arguments for add"},
		{"too many args", "add vab 2020-05-21 8 extra", "Wrong number of arguments for add"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())

			send(t, h, tt.text)

			assert.Empty(t, h.msg.prompts)
			assert.Empty(t, h.repo.created)
			assert.Contains(t, h.msg.lastText(), tt.want)
		})
	}
}

func TestAdd_HoursBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinHours = decimal.NewNullDecimal(decimal.RequireFromString("0.5"))
	cfg.MaxHours = decimal.NewNullDecimal(decimal.NewFromInt(24))
	h := newHarness(t, cfg)

	send(t, h, "add vab 2020-05-21 0")
	assert.Contains(t, h.msg.lastText(), "Hours must be at least 0.5")

	send(t, h, "add vab 2020-05-21 25")
	assert.Contains(t, h.msg.lastText(), "Hours must be at most 24")

	assert.Empty(t, h.msg.prompts)
}

func TestAdd_UnboundedHoursPassThrough(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21 -2")

	require.Len(t, h.msg.prompts, 1)
	assert.Equal(t, "-2", h.msg.prompts[0].Hours.Decimal.String())

	decide(t, h, h.msg.prompts[0], true)
	require.Len(t, h.repo.created, 1)
	assert.Equal(t, "-2", h.repo.created[0].Hours.String())
	assert.Contains(t, h.msg.lastText(), "Added 1 of 1")
}

func TestDecision_LockedAfterProposal(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21:2020-05-23 8")
	require.Len(t, h.msg.prompts, 1)

	h.repo.locks = []model.Lock{{UserID: "U1", Month: "2020-05"}}
	decide(t, h, h.msg.prompts[0], true)

	assert.Empty(t, h.repo.created)
	assert.Contains(t, h.msg.lastText(), "locked")
}

func TestDecision_FromAnotherUser(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21 8")
	require.Len(t, h.msg.prompts, 1)

	require.NoError(t, h.engine.HandleDecision(context.Background(), Decision{
		Proposal: h.msg.prompts[0], Accepted: true, ResponderID: "U2",
	}))

	assert.Empty(t, h.repo.created)
	assert.Contains(t, h.msg.lastText(), "belongs to another user")
}

func TestDecision_NotConfirmable(t *testing.T) {
	h := newHarness(t, testConfig())

	reply := h.engine.Decide(context.Background(), Decision{
		Proposal: Proposal{Kind: command.List, ActorID: "U1"}, Accepted: true,
	})
	assert.Contains(t, reply.Text, "Unsupported confirmation")
}

func TestDecision_TamperedReason(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "add vab 2020-05-21 8")
	require.Len(t, h.msg.prompts, 1)
	p := h.msg.prompts[0]
	p.Reason = "party"
	decide(t, h, p, true)

	assert.Empty(t, h.repo.created)
	assert.Contains(t, h.msg.lastText(), "Reason party is not valid")
}

func TestPrompt_DeliveryFailureFallsBackToText(t *testing.T) {
	h := newHarness(t, testConfig())
	h.msg.promptErr = errBackend

	send(t, h, "add vab 2020-05-21 8")

	assert.Contains(t, h.msg.lastText(), "Could not send the confirmation")
}

func TestEdit(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{ev("U1", "2020-05-20", "vab", "8")}

	send(t, h, "edit sjuk 2020-05-20 4")
	require.Len(t, h.msg.prompts, 1)
	p := h.msg.prompts[0]
	assert.Equal(t, command.Edit, p.Kind)
	assert.Equal(t, "2020-05-20", p.DateSpec)

	decide(t, h, p, true)
	require.Len(t, h.repo.created, 1)
	assert.Equal(t, "sjuk", h.repo.created[0].Reason)
	assert.Equal(t, "4", h.repo.created[0].Hours.String())
	assert.Contains(t, h.msg.lastText(), "Updated 1 of 1")
}

func TestEdit_Preconditions(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "edit vab 2020-05-20 4")
	assert.Equal(t, "No event for 2020-05-20 to edit.", h.msg.lastText())

	send(t, h, "edit vab 2020-05-20:2020-05-21 4")
	assert.Equal(t, "Edit doesn't support date range", h.msg.lastText())

	send(t, h, "edit vab 2020-05-20")
	assert.Contains(t, h.msg.lastText(), "Wrong number of arguments for edit")

	h.repo.readErr = errBackend
	send(t, h, "edit vab 2020-05-20 4")
	assert.Contains(t, h.msg.lastText(), "Something went wrong fetching the event of 2020-05-20")

	assert.Empty(t, h.msg.prompts)
}

func TestDelete_NothingToDelete(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "delete today")

	assert.Empty(t, h.msg.prompts)
	assert.Equal(t, "Nothing to delete for 2020-05-21.", h.msg.lastText())
}

func TestDelete_ProposeAndAccept(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{
		ev("U1", "2020-05-21", "vab", "8"),
		ev("U1", "2020-05-22", "vab", "4"),
		ev("U2", "2020-05-21", "vab", "8"),
	}

	send(t, h, "delete 2020-05-21:2020-05-22")
	require.Len(t, h.msg.prompts, 1)
	p := h.msg.prompts[0]
	assert.Equal(t, command.Delete, p.Kind)
	assert.False(t, p.Hours.Valid)
	assert.Empty(t, p.Reason)

	decide(t, h, p, true)

	assert.ElementsMatch(t, []string{"2020-05-21", "2020-05-22"}, h.repo.deletedOn)
	assert.Equal(t, "Deleted 2 events in 2020-05-21:2020-05-22.", h.msg.lastText())
	assert.Len(t, h.repo.events, 1, "other users' events stay")
}

func TestDelete_PartialFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{
		ev("U1", "2020-05-18", "vab", "8"),
		ev("U1", "2020-05-19", "vab", "8"),
	}
	h.repo.failDelete = map[string]bool{"2020-05-19": true}

	send(t, h, "delete 2020-05-18:2020-05-19")
	require.Len(t, h.msg.prompts, 1)
	decide(t, h, h.msg.prompts[0], true)

	text := h.msg.lastText()
	assert.Contains(t, text, "Deleted 1 events in 1 of 2 days")
	assert.Contains(t, text, "Failed: 2020-05-19")
}

func TestDelete_Locked(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{ev("U1", "2020-05-21", "vab", "8")}
	h.repo.locks = []model.Lock{{UserID: "U1", Month: "2020-05"}}

	send(t, h, "delete today")

	assert.Empty(t, h.msg.prompts)
	assert.Contains(t, h.msg.lastText(), "Unable to delete today since 2020-05 is locked")
}

func TestList(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{
		ev("U1", "2020-05-22", "vab", "8"),
		ev("U1", "2020-05-23", "vab", "8"), // Saturday
		ev("U1", "2020-05-25", "sjuk", "4.5"),
	}
	h.cal.facts["2020-05"] = model.CalendarFacts{TotalWorkdays: 20}

	send(t, h, "list")

	text := h.msg.lastText()
	assert.Contains(t, text, "Reported time for period 2020-05-01:2020-05-31")
	assert.Contains(t, text, "Total hours: 147.5 / 160 (-12.5)")
	assert.Contains(t, text, "sjuk: 4.5h")
	assert.Contains(t, text, "vab: 8h")
	assert.Contains(t, text, "2020-05-23  vab  8h")
	assert.Empty(t, h.msg.prompts)
}

func TestList_Arguments(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{ev("U1", "2020-04-02", "vab", "8")}
	h.cal.facts["2020-04"] = model.CalendarFacts{TotalWorkdays: 20}

	send(t, h, "list 2020-04")
	assert.Contains(t, h.msg.lastText(), "Reported time for period 2020-04-01:2020-04-30")
	assert.Contains(t, h.msg.lastText(), "Total hours: 152 / 160 (-8)")

	send(t, h, "list today")
	assert.Contains(t, h.msg.lastText(), "Reported time for period 2020-05-21")
	assert.Contains(t, h.msg.lastText(), "No information about worked hours")
	assert.Contains(t, h.msg.lastText(), "No events reported for this period.")

	send(t, h, "list someday")
	assert.Contains(t, h.msg.lastText(), "Could not parse date someday")

	h.repo.readErr = errBackend
	send(t, h, "list 2020-04")
	assert.Contains(t, h.msg.lastText(), "Could not list events for 2020-04-01:2020-04-30")
}

func TestList_MergesMonths(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.events = []model.Event{
		ev("U1", "2020-04-30", "vab", "8"),
		ev("U1", "2020-05-01", "vab", "8"), // holiday
	}
	h.cal.facts["2020-04"] = model.CalendarFacts{TotalWorkdays: 21}
	h.cal.facts["2020-05"] = model.CalendarFacts{TotalWorkdays: 19, Holidays: map[string]struct{}{"2020-05-01": {}}}

	send(t, h, "list 2020-04-30:2020-05-01")

	assert.Contains(t, h.msg.lastText(), "Total hours: 312 / 320 (-8)")
}

func TestLock(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "lock 2020-04")
	assert.Equal(t, "Lock successful! 2020-04 is now locked.", h.msg.lastText())
	assert.Equal(t, []model.Lock{{UserID: "U1", Month: "2020-04"}}, h.repo.locks)
	assert.Empty(t, h.msg.prompts, "lock has no confirmation step")

	send(t, h, "lock 2020-4")
	assert.Contains(t, h.msg.lastText(), "Could not parse month 2020-4")

	send(t, h, "lock 2020-04 2020-05")
	assert.Contains(t, h.msg.lastText(), "Wrong number of arguments for lock")

	send(t, h, "add vab 2020-04-02 8")
	assert.Contains(t, h.msg.lastText(), "2020-04 is locked")
}

func TestLock_List(t *testing.T) {
	h := newHarness(t, testConfig())
	h.repo.locks = []model.Lock{
		{UserID: "U1", Month: "2020-03"},
		{UserID: "U1", Month: "2020-01"},
		{UserID: "U1", Month: "2019-12"},
	}

	send(t, h, "lock list")
	text := h.msg.lastText()
	assert.Contains(t, text, "Locks found for months in 2020")
	assert.Contains(t, text, "2020-01 locked\n2020-03 locked")
	assert.NotContains(t, text, "2019-12")

	send(t, h, "lock list 2018")
	assert.Equal(t, "No locks found for year 2018", h.msg.lastText())

	send(t, h, "lock list twenty")
	assert.Contains(t, h.msg.lastText(), "Could not parse year twenty")

	h.repo.locksErr = errBackend
	send(t, h, "lock 2020-06")
	assert.Contains(t, h.msg.lastText(), "Lock of 2020-06 failed")
}

func TestHelp(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "")
	text := h.msg.lastText()
	assert.Contains(t, text, "Supported actions are:")
	assert.Contains(t, text, "add - Add one or more events in timereport")
	assert.Contains(t, text, "lock - Lock month")
	assert.NotContains(t, text, "unsupported")

	send(t, h, "help delete")
	assert.Contains(t, h.msg.lastText(), "/delete <date>")

	send(t, h, "help nothing")
	assert.Contains(t, h.msg.lastText(), "Supported actions are:")
}

func TestUnsupported(t *testing.T) {
	h := newHarness(t, testConfig())

	send(t, h, "frobnicate 1 2 3")

	assert.Equal(t, "Unsupported action: frobnicate. Try /help", h.msg.lastText())
}

func TestHandleCommand_Recipient(t *testing.T) {
	h := newHarness(t, testConfig())

	require.NoError(t, h.engine.HandleCommand(context.Background(), CommandEvent{
		Text: "help", ActorID: "U1", Recipient: "C42",
	}))
	assert.Equal(t, "C42", h.msg.messages[0].Recipient)
}
