package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/period"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
)

type listAction struct{ e *Engine }

func (a *listAction) Name() command.Name { return command.List }

func (a *listAction) Doc() Doc {
	return Doc{
		Short: "List one or more events in timereport",
		Usage: "List timereport for user.\n" +
			"If no arguments supplied it will default to current month.\n" +
			"Supported arguments:\n" +
			"\"today\" - List the event for todays date\n" +
			"a date, a range like 2020-03-10:2020-03-17 or a month like 2020-03\n\n" +
			"Example: /list 2020-05",
		MinArgs: 0,
		MaxArgs: 1,
	}
}

func (a *listAction) Perform(ctx context.Context, cmd command.Command) Reply {
	var spec calendar.DateSpec
	if len(cmd.Arguments) == 0 {
		spec = a.e.dates.CurrentMonth()
	} else {
		arg := cmd.Arguments[0]
		spec = a.e.dates.Parse(arg)
		if spec.IsZero() {
			spec = a.e.dates.ParseMonth(arg)
		}
		if spec.IsZero() {
			_, err := a.e.resolveDates(arg)
			return a.e.fail(command.List, cmd.ActorID, err)
		}
	}
	window := a.e.dates.Format(spec)

	cctx, cancel := a.e.call(ctx)
	defer cancel()
	events, err := a.e.events.ReadEvents(cctx, cmd.ActorID, spec.From, spec.To)
	if err != nil {
		return a.e.fail(command.List, cmd.ActorID,
			errs.Backend("Could not list events for %s, please try again", window).Wrap(err))
	}

	facts := a.e.calendarFacts(ctx, calendar.MonthsTouched(spec))
	return textReply(a.render(window, events, facts))
}

// calendarFacts merges the facts of every month it can get. Months the calendar cannot
// answer are skipped; nil means no month was answered.
func (e *Engine) calendarFacts(ctx context.Context, months []string) *model.CalendarFacts {
	if e.cal == nil {
		return nil
	}
	var merged *model.CalendarFacts
	for _, m := range months {
		cctx, cancel := e.call(ctx)
		f, err := e.cal.GetCalendarFacts(cctx, m)
		cancel()
		if err != nil || f == nil {
			e.logger.Warn().Err(err).Str("month", m).Msg("work calendar unavailable")
			continue
		}
		if merged == nil {
			merged = &model.CalendarFacts{}
		}
		next := merged.Merge(*f)
		merged = &next
	}
	return merged
}

func (a *listAction) render(window string, events []model.Event, facts *model.CalendarFacts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reported time for period %s\n", window)

	if facts == nil {
		b.WriteString("No information about worked hours\n")
	} else {
		s := period.Summarize(events, *facts)
		fmt.Fprintf(&b, "Total hours: %s / %s (-%s)\n", s.WorkedHours(), s.TotalWorkHours(), s.TotalAbsentHours)
		for _, reason := range s.Reasons() {
			fmt.Fprintf(&b, "%s: %sh\n", reason, s.PerReasonHours[reason])
		}
	}

	b.WriteString("\n")
	if len(events) == 0 {
		b.WriteString("No events reported for this period.")
		return b.String()
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "%s  %s  %sh\n", ev.EventDate.Format(a.e.cfg.DateLayout), ev.Reason, ev.Hours)
	}
	return strings.TrimRight(b.String(), "\n")
}
