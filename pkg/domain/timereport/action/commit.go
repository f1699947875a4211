package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"golang.org/x/sync/errgroup"
)

type dayResult struct {
	Day   time.Time
	Count int64
	Err   error
}

// forEachDay runs fn once per day of spec, at most Workers at a time, and collects every
// result. The writes are detached from ctx cancellation: once started they finish.
func (e *Engine) forEachDay(ctx context.Context, spec calendar.DateSpec, fn func(ctx context.Context, day time.Time) (int64, error)) []dayResult {
	days := make([]time.Time, 0, spec.Days())
	for day := range calendar.ExpandDays(spec) {
		days = append(days, day)
	}
	results := make([]dayResult, len(days))

	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i, day := range days {
		g.Go(func() error {
			cctx, cancel := e.call(ctx)
			defer cancel()

			n, err := fn(cctx, day)
			results[i] = dayResult{Day: day, Count: n, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// failedDays returns the dates of failed results, ascending.
func (e *Engine) failedDays(results []dayResult) []string {
	var out []string
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Day.Format(e.cfg.DateLayout))
		}
	}
	return out
}

// writeEvents stores one event per day of spec and reports the outcome.
func (e *Engine) writeEvents(ctx context.Context, verb string, p Proposal, spec calendar.DateSpec) Reply {
	results := e.forEachDay(ctx, spec, func(ctx context.Context, day time.Time) (int64, error) {
		return 1, e.events.CreateEvent(ctx, model.Event{
			UserID:    p.ActorID,
			UserName:  p.ActorName,
			Reason:    p.Reason,
			EventDate: day,
			Hours:     p.Hours.Decimal,
		})
	})

	failed := e.failedDays(results)
	for _, r := range results {
		if r.Err != nil {
			e.logger.Error().Err(r.Err).
				Str("user_id", p.ActorID).
				Str("reason", p.Reason).
				Time("date", r.Day).
				Msg("create event")
		}
	}

	total := len(results)
	ok := total - len(failed)
	if len(failed) == 0 {
		return textReply(fmt.Sprintf("%s %d of %d events: %s %sh on %s.", verb, ok, total, p.Reason, p.Hours.Decimal, p.DateSpec))
	}
	return textReply(fmt.Sprintf("%s %d of %d events (%s %sh). Failed: %s. Please retry these dates.",
		verb, ok, total, p.Reason, p.Hours.Decimal, strings.Join(failed, ", ")))
}
