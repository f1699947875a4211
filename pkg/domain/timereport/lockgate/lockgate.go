package lockgate

import (
	"context"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
)

// Gate answers which months of a date range are locked for a user. It never writes.
type Gate struct {
	locks  model.LockStore
	logger zerolog.Logger
}

func New(locks model.LockStore, logger zerolog.Logger) *Gate {
	return &Gate{
		locks:  locks,
		logger: logger.With().Str("component", "lockgate").Logger(),
	}
}

// FindLockedMonths returns the touched months of spec that carry a lock, ascending.
// The user's whole lock list is fetched once per call. A failing backend is reported
// as an error, never as "not locked".
func (g *Gate) FindLockedMonths(ctx context.Context, userID string, spec calendar.DateSpec) ([]string, error) {
	touched := calendar.MonthsTouched(spec)
	if len(touched) == 0 {
		return nil, nil
	}

	locks, err := g.locks.ReadLocks(ctx, userID)
	if err != nil {
		return nil, errs.Backend("failed to read locks").Arg("user_id", userID).Wrap(err)
	}
	if len(locks) == 0 {
		return nil, nil
	}

	locked := make(map[string]struct{}, len(locks))
	for _, l := range locks {
		locked[l.Month] = struct{}{}
	}

	var out []string
	for _, m := range touched {
		if _, ok := locked[m]; ok {
			out = append(out, m)
		}
	}

	if len(out) > 0 {
		g.logger.Debug().Str("user_id", userID).Strs("months", out).Msg("locked months in range")
	}
	return out, nil
}
