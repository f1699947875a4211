package action

import (
	"context"
	"slices"
	"strings"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/shopspring/decimal"
)

func (e *Engine) checkReason(reason string) error {
	if !slices.Contains(e.cfg.ValidReasons, reason) {
		return errs.Validation("Reason %s is not valid. Valid reasons: %s", reason, strings.Join(e.cfg.ValidReasons, ", ")).
			Arg("reason", reason)
	}
	return nil
}

// parseHours parses text as a number and applies the configured bounds. An empty text
// yields the default hours. No rounding or clamping takes place.
func (e *Engine) parseHours(text string) (decimal.Decimal, error) {
	if text == "" {
		return e.cfg.DefaultHours, nil
	}
	h, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, errs.Parse("Could not parse hours: %s", text).Wrap(err)
	}
	return h, e.checkHours(h)
}

func (e *Engine) checkHours(h decimal.Decimal) error {
	if e.cfg.MinHours.Valid && h.LessThan(e.cfg.MinHours.Decimal) {
		return errs.Validation("Hours must be at least %s, got %s", e.cfg.MinHours.Decimal, h)
	}
	if e.cfg.MaxHours.Valid && h.GreaterThan(e.cfg.MaxHours.Decimal) {
		return errs.Validation("Hours must be at most %s, got %s", e.cfg.MaxHours.Decimal, h)
	}
	return nil
}

func (e *Engine) resolveDates(text string) (calendar.DateSpec, error) {
	spec := e.dates.Parse(text)
	if spec.IsZero() {
		return spec, errs.Parse("Could not parse date %s. Use today, a date like %s or a range like %s",
			text, e.cfg.DateLayout, e.cfg.DateLayout+calendar.RangeSeparator+e.cfg.DateLayout).Arg("date", text)
	}
	return spec, nil
}

// checkLocks rejects spec if any touched month is locked for the user.
func (e *Engine) checkLocks(ctx context.Context, name command.Name, userID string, spec calendar.DateSpec, dateText string) error {
	cctx, cancel := e.call(ctx)
	defer cancel()

	locked, err := e.gate.FindLockedMonths(cctx, userID, spec)
	if err != nil {
		return errs.Backend("Could not check locks for %s, please try again", dateText).Wrap(err)
	}
	if len(locked) > 0 {
		return errs.Validation("Unable to %s %s since %s is locked", name, dateText, strings.Join(locked, ", ")).
			Arg("months", locked)
	}
	return nil
}

// checkProposal re-validates an embedded proposal before it is committed and returns
// the resolved range.
func (e *Engine) checkProposal(ctx context.Context, p Proposal) (calendar.DateSpec, error) {
	if p.Kind != command.Delete {
		if err := e.checkReason(p.Reason); err != nil {
			return calendar.DateSpec{}, err
		}
		if !p.Hours.Valid {
			return calendar.DateSpec{}, errs.Validation("Confirmation carries no hours")
		}
		if err := e.checkHours(p.Hours.Decimal); err != nil {
			return calendar.DateSpec{}, err
		}
	}
	spec, err := e.resolveDates(p.DateSpec)
	if err != nil {
		return spec, err
	}
	if err := e.checkLocks(ctx, p.Kind, p.ActorID, spec, p.DateSpec); err != nil {
		return spec, err
	}
	return spec, nil
}
