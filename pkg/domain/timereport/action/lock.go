package action

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
)

const lockListArg = "list"

// lockAction creates locks without confirmation: a lock only narrows what can be written.
type lockAction struct{ e *Engine }

func (a *lockAction) Name() command.Name { return command.Lock }

func (a *lockAction) Doc() Doc {
	return Doc{
		Short: "Lock month to show you're done with the reporting",
		Usage: "Lock the timereport for month\n\n" +
			"create lock:\n/lock 2019-08\n\n" +
			"list locks:\n/lock list 2020",
		MinArgs: 1,
		MaxArgs: 2,
	}
}

func (a *lockAction) Perform(ctx context.Context, cmd command.Command) Reply {
	if cmd.Arguments[0] == lockListArg {
		return a.list(ctx, cmd)
	}
	if len(cmd.Arguments) != 1 {
		return textReply("Wrong number of arguments for lock. Usage:\n" + a.Doc().Usage)
	}

	month := cmd.Arguments[0]
	if t, err := time.Parse(model.MonthLayout, month); err != nil || t.Format(model.MonthLayout) != month {
		return a.e.fail(command.Lock, cmd.ActorID, errs.Parse("Could not parse month %s, expected YYYY-MM", month))
	}

	cctx, cancel := a.e.call(ctx)
	defer cancel()
	if err := a.e.locks.CreateLock(cctx, model.Lock{UserID: cmd.ActorID, Month: month}); err != nil {
		return a.e.fail(command.Lock, cmd.ActorID,
			errs.Backend("Lock of %s failed, please try again", month).Wrap(err))
	}
	a.e.logger.Info().Str("user_id", cmd.ActorID).Str("month", month).Msg("month locked")
	return textReply(fmt.Sprintf("Lock successful! %s is now locked.", month))
}

func (a *lockAction) list(ctx context.Context, cmd command.Command) Reply {
	year := a.e.dates.Today().Year()
	if len(cmd.Arguments) == 2 {
		y, err := strconv.Atoi(cmd.Arguments[1])
		if err != nil || len(cmd.Arguments[1]) != 4 {
			return a.e.fail(command.Lock, cmd.ActorID, errs.Parse("Could not parse year %s", cmd.Arguments[1]))
		}
		year = y
	}

	cctx, cancel := a.e.call(ctx)
	defer cancel()
	locks, err := a.e.locks.ReadLocks(cctx, cmd.ActorID)
	if err != nil {
		return a.e.fail(command.Lock, cmd.ActorID,
			errs.Backend("Could not read locks for %d, please try again", year).Wrap(err))
	}

	prefix := strconv.Itoa(year) + "-"
	var months []string
	for _, l := range locks {
		if strings.HasPrefix(l.Month, prefix) {
			months = append(months, l.Month)
		}
	}
	if len(months) == 0 {
		return textReply(fmt.Sprintf("No locks found for year %d", year))
	}
	sort.Strings(months)

	var b strings.Builder
	fmt.Fprintf(&b, "Locks found for months in %d\n", year)
	for _, m := range months {
		fmt.Fprintf(&b, "\n%s locked", m)
	}
	return textReply(b.String())
}
