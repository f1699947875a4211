package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/shopspring/decimal"
)

type addAction struct{ e *Engine }

func (a *addAction) Name() command.Name { return command.Add }

func (a *addAction) Doc() Doc {
	return Doc{
		Short: "Add one or more events in timereport",
		Usage: "Add one or more events in timereport\n\n" +
			"/add <reason> <day> [hours]\n\n" +
			"<reason> is one of the configured reasons, e.g. vab, sjuk, intern, semester\n" +
			"<day> is \"today\", a date like 2020-03-10 or a range like 2020-03-10:2020-03-17\n" +
			"[hours] defaults to a full day\n\n" +
			"Example: /add vab 2020-05-21:2020-05-23 8",
		MinArgs: 2,
		MaxArgs: 3,
	}
}

func (a *addAction) Perform(ctx context.Context, cmd command.Command) Reply {
	reason, dateText := cmd.Arguments[0], cmd.Arguments[1]
	hoursText := ""
	if len(cmd.Arguments) == 3 {
		hoursText = cmd.Arguments[2]
	}

	if err := a.e.checkReason(reason); err != nil {
		return a.e.fail(command.Add, cmd.ActorID, err)
	}
	hours, err := a.e.parseHours(hoursText)
	if err != nil {
		return a.e.fail(command.Add, cmd.ActorID, err)
	}
	spec, err := a.e.resolveDates(dateText)
	if err != nil {
		return a.e.fail(command.Add, cmd.ActorID, err)
	}
	if err := a.e.checkLocks(ctx, command.Add, cmd.ActorID, spec, dateText); err != nil {
		return a.e.fail(command.Add, cmd.ActorID, err)
	}

	return Reply{Proposal: &Proposal{
		Kind:      command.Add,
		ActorID:   cmd.ActorID,
		ActorName: cmd.ActorName,
		Reason:    reason,
		DateSpec:  a.e.dates.Format(spec),
		Hours:     decimal.NewNullDecimal(hours),
	}}
}

func (a *addAction) OnDecision(ctx context.Context, d Decision) Reply {
	if !d.Accepted {
		return textReply("Action canceled.")
	}
	spec, err := a.e.checkProposal(ctx, d.Proposal)
	if err != nil {
		return a.e.fail(command.Add, d.Proposal.ActorID, err)
	}
	return a.e.writeEvents(ctx, "Added", d.Proposal, spec)
}

type editAction struct{ e *Engine }

func (a *editAction) Name() command.Name { return command.Edit }

func (a *editAction) Doc() Doc {
	return Doc{
		Short: "Edit a single event in timereport",
		Usage: "Edit event in timereport.\n\n" +
			"/edit <reason> <date> <hours>\n\n" +
			"Example: /edit vab 2019-01-01 4",
		MinArgs: 3,
		MaxArgs: 3,
	}
}

func (a *editAction) Perform(ctx context.Context, cmd command.Command) Reply {
	reason, dateText, hoursText := cmd.Arguments[0], cmd.Arguments[1], cmd.Arguments[2]

	if err := a.e.checkReason(reason); err != nil {
		return a.e.fail(command.Edit, cmd.ActorID, err)
	}
	hours, err := a.e.parseHours(hoursText)
	if err != nil {
		return a.e.fail(command.Edit, cmd.ActorID, err)
	}
	spec, err := a.e.resolveDates(dateText)
	if err != nil {
		return a.e.fail(command.Edit, cmd.ActorID, err)
	}
	if !spec.IsSingleDay() {
		return a.e.fail(command.Edit, cmd.ActorID, errs.Validation("Edit doesn't support date range"))
	}
	if err := a.e.checkLocks(ctx, command.Edit, cmd.ActorID, spec, dateText); err != nil {
		return a.e.fail(command.Edit, cmd.ActorID, err)
	}

	day := a.e.dates.Format(spec)
	exists, err := a.e.eventExists(ctx, cmd.ActorID, spec.From)
	if err != nil {
		return a.e.fail(command.Edit, cmd.ActorID,
			errs.Backend("Something went wrong fetching the event of %s to edit, please try again", day).Wrap(err))
	}
	if !exists {
		return textReply(fmt.Sprintf("No event for %s to edit.", day))
	}

	return Reply{Proposal: &Proposal{
		Kind:      command.Edit,
		ActorID:   cmd.ActorID,
		ActorName: cmd.ActorName,
		Reason:    reason,
		DateSpec:  day,
		Hours:     decimal.NewNullDecimal(hours),
	}}
}

func (a *editAction) OnDecision(ctx context.Context, d Decision) Reply {
	if !d.Accepted {
		return textReply("Action canceled.")
	}
	spec, err := a.e.checkProposal(ctx, d.Proposal)
	if err != nil {
		return a.e.fail(command.Edit, d.Proposal.ActorID, err)
	}
	if !spec.IsSingleDay() {
		return a.e.fail(command.Edit, d.Proposal.ActorID, errs.Validation("Edit doesn't support date range"))
	}
	return a.e.writeEvents(ctx, "Updated", d.Proposal, spec)
}

type deleteAction struct{ e *Engine }

func (a *deleteAction) Name() command.Name { return command.Delete }

func (a *deleteAction) Doc() Doc {
	return Doc{
		Short: "Delete events in timereport",
		Usage: "Delete the events of a day or a range in timereport.\n\n" +
			"/delete <date>\n\n" +
			"Example: /delete today",
		MinArgs: 1,
		MaxArgs: 1,
	}
}

func (a *deleteAction) Perform(ctx context.Context, cmd command.Command) Reply {
	dateText := cmd.Arguments[0]

	spec, err := a.e.resolveDates(dateText)
	if err != nil {
		return a.e.fail(command.Delete, cmd.ActorID, err)
	}
	if err := a.e.checkLocks(ctx, command.Delete, cmd.ActorID, spec, dateText); err != nil {
		return a.e.fail(command.Delete, cmd.ActorID, err)
	}

	text := a.e.dates.Format(spec)
	cctx, cancel := a.e.call(ctx)
	defer cancel()
	events, err := a.e.events.ReadEvents(cctx, cmd.ActorID, spec.From, spec.To)
	if err != nil {
		return a.e.fail(command.Delete, cmd.ActorID,
			errs.Backend("Could not read events for %s, please try again", text).Wrap(err))
	}
	if len(events) == 0 {
		return textReply(fmt.Sprintf("Nothing to delete for %s.", text))
	}

	return Reply{Proposal: &Proposal{
		Kind:      command.Delete,
		ActorID:   cmd.ActorID,
		ActorName: cmd.ActorName,
		DateSpec:  text,
	}}
}

func (a *deleteAction) OnDecision(ctx context.Context, d Decision) Reply {
	if !d.Accepted {
		return textReply("Action canceled.")
	}
	p := d.Proposal
	spec, err := a.e.checkProposal(ctx, p)
	if err != nil {
		return a.e.fail(command.Delete, p.ActorID, err)
	}

	results := a.e.forEachDay(ctx, spec, func(ctx context.Context, day time.Time) (int64, error) {
		return a.e.events.DeleteEvents(ctx, p.ActorID, day)
	})

	var deleted int64
	for _, r := range results {
		if r.Err != nil {
			a.e.logger.Error().Err(r.Err).Str("user_id", p.ActorID).Time("date", r.Day).Msg("delete events")
			continue
		}
		deleted += r.Count
	}

	failed := a.e.failedDays(results)
	if len(failed) == 0 {
		return textReply(fmt.Sprintf("Deleted %d events in %s.", deleted, p.DateSpec))
	}
	return textReply(fmt.Sprintf("Deleted %d events in %d of %d days. Failed: %s. Please retry these dates.",
		deleted, len(results)-len(failed), len(results), strings.Join(failed, ", ")))
}

func (e *Engine) eventExists(ctx context.Context, userID string, day time.Time) (bool, error) {
	cctx, cancel := e.call(ctx)
	defer cancel()

	ev, err := e.events.ReadEvent(cctx, userID, day)
	if err != nil {
		return false, err
	}
	return ev != nil, nil
}
